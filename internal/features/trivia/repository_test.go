package trivia

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/db/postgres/pgtest"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
)

func newSession(userID int64, ids ...string) *Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Level:       1,
		QuestionIDs: ids,
		Status:      StatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
	}
}

func TestRepositorySessionLifecycle(t *testing.T) {
	repo := NewRepository(pgtest.Pool(t))
	ctx := context.Background()
	user := pgtest.UserID()

	s := newSession(user, "a", "b")
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateSession(ctx, newSession(user, "c")); !errors.Is(err, common.ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}

	at := s.CreatedAt.Add(5 * time.Second)
	res, err := repo.AppendAnswer(ctx, s.ID, Answer{QuestionID: "a", ChosenOption: 1, Correct: true, AnsweredAt: at}, 2*time.Second)
	if err != nil {
		t.Fatalf("append a: %v", err)
	}
	if res.Answered != 1 || res.Completed {
		t.Fatalf("unexpected append result %+v", res)
	}

	_, err = repo.AppendAnswer(ctx, s.ID, Answer{QuestionID: "b", AnsweredAt: at.Add(time.Second)}, 2*time.Second)
	if !errors.Is(err, common.ErrAnsweredTooFast) {
		t.Fatalf("expected ErrAnsweredTooFast, got %v", err)
	}
	_, err = repo.AppendAnswer(ctx, s.ID, Answer{QuestionID: "a", AnsweredAt: at.Add(3 * time.Second)}, 2*time.Second)
	if !errors.Is(err, common.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}

	res, err = repo.AppendAnswer(ctx, s.ID, Answer{QuestionID: "b", AnsweredAt: at.Add(3 * time.Second)}, 2*time.Second)
	if err != nil {
		t.Fatalf("append b: %v", err)
	}
	if !res.Completed {
		t.Fatalf("expected completion, got %+v", res)
	}

	got, err := repo.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.CompletedAt == nil || len(got.Answers) != 2 || got.UserID != user {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.Answers[0].QuestionID != "a" || !got.Answers[0].Correct || got.Answers[0].ChosenOption != 1 {
		t.Fatalf("unexpected first answer %+v", got.Answers[0])
	}

	// completed sessions free the user for a new one
	if err := repo.CreateSession(ctx, newSession(user, "c")); err != nil {
		t.Fatalf("create after completion: %v", err)
	}
}

func TestRepositoryGuestSessions(t *testing.T) {
	repo := NewRepository(pgtest.Pool(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s := newSession(0, "a")
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("create guest session: %v", err)
		}
		got, err := repo.GetSession(ctx, s.ID)
		if err != nil || got.UserID != 0 {
			t.Fatalf("unexpected guest session %+v, %v", got, err)
		}
	}

	if _, err := repo.GetSession(ctx, uuid.NewString()); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRepositoryExpiredSessionRejectsAnswers(t *testing.T) {
	repo := NewRepository(pgtest.Pool(t))
	ctx := context.Background()
	user := pgtest.UserID()

	s := newSession(user, "a")
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkExpired(ctx, s.ID); err != nil {
		t.Fatalf("expire: %v", err)
	}
	_, err := repo.AppendAnswer(ctx, s.ID, Answer{QuestionID: "a", AnsweredAt: s.CreatedAt}, 0)
	if !errors.Is(err, common.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	active, err := repo.ActiveSessionForUser(ctx, user)
	if err != nil || active != nil {
		t.Fatalf("expected no active session, got %+v, %v", active, err)
	}
}

func TestRepositoryConcurrentAnswersOnOneQuestion(t *testing.T) {
	repo := NewRepository(pgtest.Pool(t))
	ctx := context.Background()
	s := newSession(pgtest.UserID(), "a", "b")
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AppendAnswer(ctx, s.ID, Answer{QuestionID: "a", AnsweredAt: s.CreatedAt}, 0)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, common.ErrAlreadyAnswered) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one recorded answer, got %d", wins)
	}
}

func TestRepositoryProgress(t *testing.T) {
	pool := pgtest.Pool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := pgtest.UserID()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	if p, err := repo.GetProgress(ctx, user); err != nil || p != nil {
		t.Fatalf("expected no progress, got %+v, %v", p, err)
	}

	if _, err := repo.RecordCorrect(ctx, user, "a", 5, day); err != nil {
		t.Fatalf("correct: %v", err)
	}
	if _, err := repo.RecordCorrect(ctx, user, "b", 10, day); err != nil {
		t.Fatalf("correct: %v", err)
	}
	p, err := repo.RecordWrong(ctx, user, day)
	if err != nil {
		t.Fatalf("wrong: %v", err)
	}
	if p.CorrectCount != 2 || p.Streak != 0 || p.BestStreak != 2 || p.SatsEarned != 15 || p.CurrentLevel != 1 {
		t.Fatalf("unexpected progress %+v", p)
	}
	if p.LastPlayedOn == nil || !p.LastPlayedOn.Equal(day) {
		t.Fatalf("unexpected last played %v", p.LastPlayedOn)
	}

	ids, err := repo.AnsweredIDs(ctx, user)
	if err != nil {
		t.Fatalf("answered ids: %v", err)
	}
	if len(ids) != 2 || !ids["a"] || !ids["b"] {
		t.Fatalf("unexpected answered ids %v", ids)
	}

	// rewards are paid in the same transaction as the progress update
	entries, err := ledger.NewRepository(pool).History(ctx, user, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 || entries[0].Category != ledger.CategoryTrivia {
		t.Fatalf("expected two trivia payouts, got %+v", entries)
	}
	bal, err := ledger.NewRepository(pool).EnsureBalance(ctx, user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Available != 15 || bal.TotalEarned != 15 {
		t.Fatalf("unexpected balance %+v", bal)
	}
}

func TestRepositoryAdvanceLevelOnce(t *testing.T) {
	repo := NewRepository(pgtest.Pool(t))
	ctx := context.Background()
	user := pgtest.UserID()
	if _, err := repo.RecordWrong(ctx, user, time.Now()); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.AdvanceLevel(ctx, user, 1, false)
			if err != nil {
				t.Errorf("advance: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected one advance, got %d", wins)
	}
	p, _ := repo.GetProgress(ctx, user)
	if p.CurrentLevel != 2 {
		t.Fatalf("expected level 2, got %d", p.CurrentLevel)
	}

	ok, err := repo.AdvanceLevel(ctx, user, 2, true)
	if err != nil || !ok {
		t.Fatalf("final advance: %v, %v", ok, err)
	}
	if ok, _ := repo.AdvanceLevel(ctx, user, 2, true); ok {
		t.Fatal("final level completed twice")
	}
}
