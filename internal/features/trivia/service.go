// Package trivia: service.go is the session manager.
//
// SubmitAnswer persists in a fixed order: the answer row first (its
// primary key rejects double submits), then the progress deltas together
// with the ledger credit in one transaction, then the level advance. Events are published only
// after all of that, in the order correct|wrong, level-up,
// session-complete, so subscribers always see committed state.
package trivia

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/config"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/events"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/questions"
)

// Store persists sessions and progress.
type Store interface {
	// CreateSession returns common.ErrActiveSessionExists if the user
	// already holds an active session.
	CreateSession(ctx context.Context, s *Session) error
	// GetSession returns common.ErrSessionNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (*Session, error)
	// ActiveSessionForUser returns nil when the user has none.
	ActiveSessionForUser(ctx context.Context, userID int64) (*Session, error)
	// MarkExpired flips an active session to expired. No-op otherwise.
	MarkExpired(ctx context.Context, id string) error
	// AppendAnswer records an answer under a lock on the session:
	// it re-checks status, the minimum delay and duplicates, and
	// completes the session when the last question is answered.
	AppendAnswer(ctx context.Context, sessionID string, a Answer, minDelay time.Duration) (*AppendResult, error)

	// GetProgress returns nil when the user never played.
	GetProgress(ctx context.Context, userID int64) (*Progress, error)
	// AnsweredIDs returns the ids the user has answered correctly.
	AnsweredIDs(ctx context.Context, userID int64) (map[string]bool, error)
	// RecordCorrect updates progress and credits reward as a trivia
	// payout atomically. On error neither is applied.
	RecordCorrect(ctx context.Context, userID int64, questionID string, reward int64, day time.Time) (*Progress, error)
	RecordWrong(ctx context.Context, userID int64, day time.Time) (*Progress, error)
	// AdvanceLevel moves current_level from one level up, or marks the
	// final level complete. It reports false if another call got there first.
	AdvanceLevel(ctx context.Context, userID int64, from int, final bool) (bool, error)
}

// Publisher delivers gameplay events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

// Settings are the tunables of a session.
type Settings struct {
	SessionSize    int
	SessionTTL     time.Duration
	MinAnswerDelay time.Duration
	Rewards        Rewards
	Location       *time.Location // calendar for last_played_on
}

// DefaultSettings: 5 questions, 30 minutes, 2 seconds between answers.
var DefaultSettings = Settings{
	SessionSize:    5,
	SessionTTL:     30 * time.Minute,
	MinAnswerDelay: 2 * time.Second,
	Rewards:        DefaultRewards,
	Location:       time.UTC,
}

// SettingsFromConfig reads TRIVIA_* and APP_TIMEZONE.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		SessionSize:    cfg.TriviaSessionSize,
		SessionTTL:     cfg.TriviaSessionTTL,
		MinAnswerDelay: cfg.TriviaMinAnswerDelay,
		Rewards:        RewardsFromConfig(cfg),
		Location:       common.LoadLocation(cfg.AppTimezone),
	}
}

// Service is the session manager.
type Service struct {
	store    Store
	bank     questions.Bank
	bus      Publisher
	settings Settings

	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func NewService(store Store, bank questions.Bank, bus Publisher, settings Settings) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Service{
		store:    store,
		bank:     bank,
		bus:      bus,
		settings: settings,
		now:      time.Now,
		shuffle:  rand.Shuffle,
	}
}

// StartSession opens a session of up to SessionSize random questions the
// caller has not answered correctly yet.
//
// Guests may only play level 1; their sessions skip the progress filter
// and the one-active-session rule.
func (s *Service) StartSession(ctx context.Context, caller common.Caller, level int) (*StartResult, error) {
	if level < 1 || level > s.bank.MaxLevel() {
		return nil, common.ErrInvalidLevel
	}
	if caller.IsGuest() && level != 1 {
		return nil, common.ErrGuestLevelNotAllowed
	}

	now := s.now()
	answered := map[string]bool{}

	if !caller.IsGuest() {
		progress, err := s.progress(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
		if level > progress.CurrentLevel {
			return nil, common.ErrLevelLocked
		}

		active, err := s.store.ActiveSessionForUser(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			if !active.ExpiredAt(now) {
				return nil, common.ErrActiveSessionExists
			}
			if err := s.store.MarkExpired(ctx, active.ID); err != nil {
				return nil, err
			}
		}

		answered, err = s.store.AnsweredIDs(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
	}

	var pool []questions.Question
	for _, q := range s.bank.QuestionsForLevel(level) {
		if !answered[q.ID] {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return nil, common.ErrLevelComplete
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > s.settings.SessionSize {
		pool = pool[:s.settings.SessionSize]
	}

	sess := &Session{
		ID:          uuid.NewString(),
		UserID:      caller.UserID,
		Level:       level,
		QuestionIDs: make([]string, len(pool)),
		Status:      StatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.settings.SessionTTL),
	}
	public := make([]questions.Public, len(pool))
	for i, q := range pool {
		sess.QuestionIDs[i] = q.ID
		public[i] = questions.Sanitize(q)
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":      caller.UserID,
		"session_id":   sess.ID,
		"trivia_level": level,
		"questions":    len(pool),
	}).Info("Trivia session started")

	return &StartResult{
		SessionID: sess.ID,
		Level:     level,
		Questions: public,
		ExpiresAt: sess.ExpiresAt,
		TTL:       sess.ExpiresAt.Sub(now),
	}, nil
}

// SubmitAnswer records chosenOption for one question of a session.
func (s *Service) SubmitAnswer(ctx context.Context, caller common.Caller, sessionID, questionID string, chosenOption int) (*AnswerResult, error) {
	now := s.now()

	sess, err := s.load(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.Status == StatusActive && sess.ExpiredAt(now):
		if err := s.store.MarkExpired(ctx, sess.ID); err != nil {
			return nil, err
		}
		return nil, common.ErrSessionExpired
	case sess.Status == StatusExpired:
		return nil, common.ErrSessionExpired
	case sess.Status == StatusCompleted:
		return nil, common.ErrSessionCompleted
	}

	if !sess.HasQuestion(questionID) {
		return nil, common.ErrQuestionNotInSession
	}
	if sess.Answered(questionID) {
		return nil, common.ErrAlreadyAnswered
	}
	if last, ok := sess.LastAnswerAt(); ok && now.Sub(last) < s.settings.MinAnswerDelay {
		return nil, common.ErrAnsweredTooFast
	}

	q, err := s.bank.QuestionByID(questionID)
	if err != nil {
		return nil, err
	}
	if chosenOption < 0 || chosenOption >= len(q.Options) {
		return nil, common.ErrInvalidOption
	}
	correct := chosenOption == q.Answer

	// 1. answer row: the only step that can reject a duplicate
	appended, err := s.store.AppendAnswer(ctx, sess.ID, Answer{
		QuestionID:   questionID,
		ChosenOption: chosenOption,
		Correct:      correct,
		AnsweredAt:   now,
	}, s.settings.MinAnswerDelay)
	if err != nil {
		return nil, err
	}

	res := &AnswerResult{
		Correct:          correct,
		CorrectOption:    q.Answer,
		Explanation:      q.Explanation,
		SessionCompleted: appended.Completed,
		Score:            sess.Score(),
		Total:            len(sess.QuestionIDs),
	}
	if correct {
		res.Score++
	}

	if caller.IsGuest() {
		return res, nil
	}

	// 2. progress + ledger credit in one tx, 3. level advance
	pending, err := s.applyProgress(ctx, caller.UserID, sess, q, correct, now, res)
	if err != nil {
		return nil, err
	}

	// 4. events, after every write above
	if res.SessionCompleted {
		pending = append(pending, events.SessionComplete{
			User:      caller.UserID,
			SessionID: sess.ID,
			Level:     sess.Level,
			Score:     res.Score,
			Total:     res.Total,
		})
	}
	for _, e := range pending {
		s.bus.Publish(ctx, e)
	}

	log.WithFields(log.Fields{
		"user_id":     caller.UserID,
		"session_id":  sess.ID,
		"question_id": questionID,
		"correct":     correct,
		"sats":        res.SatsEarned,
		"completed":   res.SessionCompleted,
	}).Debug("Trivia answer recorded")

	return res, nil
}

// applyProgress credits the reward, updates progress and advances the
// level. It returns the correct|wrong and level-up events to publish.
func (s *Service) applyProgress(ctx context.Context, userID int64, sess *Session, q questions.Question, correct bool, now time.Time, res *AnswerResult) ([]events.Event, error) {
	day := common.DateOf(now, s.settings.Location)

	if !correct {
		if _, err := s.store.RecordWrong(ctx, userID, day); err != nil {
			return nil, err
		}
		return []events.Event{events.WrongAnswer{
			User:       userID,
			SessionID:  sess.ID,
			QuestionID: q.ID,
		}}, nil
	}

	reward := s.settings.Rewards.RewardFor(q.Difficulty)
	progress, err := s.store.RecordCorrect(ctx, userID, q.ID, reward, day)
	if err != nil {
		return nil, fmt.Errorf("record correct answer: %w", err)
	}
	res.Streak = progress.Streak
	res.SatsEarned = reward

	pending := []events.Event{events.CorrectAnswer{
		User:         userID,
		SessionID:    sess.ID,
		QuestionID:   q.ID,
		Streak:       progress.Streak,
		SatsEarned:   reward,
		CorrectCount: progress.CorrectCount,
	}}

	// only an answer on the current level can finish it
	if q.Level != progress.CurrentLevel || progress.LevelCompleted {
		return pending, nil
	}
	done, err := s.levelDone(ctx, userID, progress.CurrentLevel)
	if err != nil || !done {
		return pending, err
	}

	final := progress.CurrentLevel >= s.bank.MaxLevel()
	advanced, err := s.store.AdvanceLevel(ctx, userID, progress.CurrentLevel, final)
	if err != nil {
		return nil, err
	}
	if advanced && !final {
		res.LevelUnlocked = true
		res.NewLevel = progress.CurrentLevel + 1
		pending = append(pending, events.LevelUp{User: userID, NewLevel: res.NewLevel})

		log.WithFields(log.Fields{
			"user_id":   userID,
			"new_level": res.NewLevel,
		}).Info("Trivia level unlocked")
	}
	return pending, nil
}

func (s *Service) levelDone(ctx context.Context, userID int64, level int) (bool, error) {
	answered, err := s.store.AnsweredIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, q := range s.bank.QuestionsForLevel(level) {
		if !answered[q.ID] {
			return false, nil
		}
	}
	return true, nil
}

// GetSession returns the session, flipping it to expired if its time is up.
func (s *Service) GetSession(ctx context.Context, caller common.Caller, sessionID string) (*Session, error) {
	sess, err := s.load(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfDue(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ActiveSession returns the caller's active session, or nil.
func (s *Service) ActiveSession(ctx context.Context, caller common.Caller) (*Session, error) {
	if caller.IsGuest() {
		return nil, common.ErrGuestNotAllowed
	}
	sess, err := s.store.ActiveSessionForUser(ctx, caller.UserID)
	if err != nil || sess == nil {
		return nil, err
	}
	if err := s.expireIfDue(ctx, sess); err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, nil
	}
	return sess, nil
}

// GetProgress returns the user's progress, or level-1 zero progress for a
// user who never played. It never creates rows.
func (s *Service) GetProgress(ctx context.Context, userID int64) (*Progress, error) {
	if userID == 0 {
		return nil, common.ErrGuestNotAllowed
	}
	return s.progress(ctx, userID)
}

// PublicQuestion returns a question without its answer key.
func (s *Service) PublicQuestion(questionID string) (questions.Public, error) {
	q, err := s.bank.QuestionByID(questionID)
	if err != nil {
		return questions.Public{}, err
	}
	return questions.Sanitize(q), nil
}

// MaxLevel is the highest level in the question bank.
func (s *Service) MaxLevel() int {
	return s.bank.MaxLevel()
}

func (s *Service) progress(ctx context.Context, userID int64) (*Progress, error) {
	p, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return NewProgress(userID), nil
	}
	return p, nil
}

// load fetches a session and checks the caller owns it.
// Malformed ids are reported as not found.
func (s *Service) load(ctx context.Context, caller common.Caller, sessionID string) (*Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, common.ErrSessionNotFound
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != caller.UserID {
		return nil, common.ErrSessionNotOwned
	}
	return sess, nil
}

func (s *Service) expireIfDue(ctx context.Context, sess *Session) error {
	if sess.Status != StatusActive || !sess.ExpiredAt(s.now()) {
		return nil
	}
	if err := s.store.MarkExpired(ctx, sess.ID); err != nil {
		return err
	}
	sess.Status = StatusExpired
	return nil
}
