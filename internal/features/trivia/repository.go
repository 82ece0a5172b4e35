// Package trivia: repository.go persists sessions and progress in PostgreSQL.
package trivia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/db/postgres"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
)

const (
	sessionColumns = `id::text, COALESCE(user_id, 0), level, question_ids, status,
		created_at, expires_at, completed_at`
	progressColumns = `user_id, current_level, correct_count, streak, best_streak,
		sats_earned, last_played_on, level_completed`

	oneActiveIndex = "trivia_sessions_one_active"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateSession inserts the session. Guest sessions store a NULL user_id,
// which the partial unique index ignores.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID *int64
	if s.UserID != 0 {
		if err := members.EnsureTx(ctx, tx, s.UserID); err != nil {
			return err
		}
		userID = &s.UserID
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trivia_sessions (id, user_id, level, question_ids, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, userID, s.Level, s.QuestionIDs, s.Status, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, oneActiveIndex) {
			return common.ErrActiveSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM trivia_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if s.Answers, err = r.answers(ctx, r.db, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) ActiveSessionForUser(ctx context.Context, userID int64) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM trivia_sessions
		WHERE user_id = $1 AND status = 'active'
	`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read active session: %w", err)
	}
	if s.Answers, err = r.answers(ctx, r.db, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE trivia_sessions
		SET status = 'expired'
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return nil
}

// AppendAnswer locks the session row, so two answers racing on one
// session are applied one after the other and see each other's writes.
func (r *Repository) AppendAnswer(ctx context.Context, sessionID string, a Answer, minDelay time.Duration) (*AppendResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status    Status
		ids       []string
		expiresAt time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT status, question_ids, expires_at
		FROM trivia_sessions
		WHERE id = $1
		FOR UPDATE
	`, sessionID).Scan(&status, &ids, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrSessionNotFound
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}

	switch {
	case status == StatusCompleted:
		return nil, common.ErrSessionCompleted
	case status == StatusExpired, !a.AnsweredAt.Before(expiresAt):
		return nil, common.ErrSessionExpired
	}

	var last *time.Time
	if err := tx.QueryRow(ctx,
		`SELECT MAX(answered_at) FROM trivia_session_answers WHERE session_id = $1`, sessionID,
	).Scan(&last); err != nil {
		return nil, fmt.Errorf("read last answer: %w", err)
	}
	if last != nil && a.AnsweredAt.Sub(*last) < minDelay {
		return nil, common.ErrAnsweredTooFast
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trivia_session_answers (session_id, question_id, chosen_option, correct, answered_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sessionID, a.QuestionID, a.ChosenOption, a.Correct, a.AnsweredAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return nil, common.ErrAlreadyAnswered
		}
		return nil, fmt.Errorf("insert answer: %w", err)
	}

	res := &AppendResult{}
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM trivia_session_answers WHERE session_id = $1`, sessionID,
	).Scan(&res.Answered); err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	if res.Answered >= len(ids) {
		if _, err := tx.Exec(ctx, `
			UPDATE trivia_sessions
			SET status = 'completed', completed_at = $2
			WHERE id = $1
		`, sessionID, a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("complete session: %w", err)
		}
		res.Completed = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit answer: %w", err)
	}
	return res, nil
}

func (r *Repository) GetProgress(ctx context.Context, userID int64) (*Progress, error) {
	p, err := scanProgress(r.db.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM trivia_progress WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read progress: %w", err)
	}
	return p, nil
}

func (r *Repository) AnsweredIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT question_id FROM trivia_progress_answers WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query answered ids: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan answered id: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read answered ids: %w", err)
	}
	return out, nil
}

// RecordCorrect adds the question to the answered set, bumps the
// counters with relative updates and pays reward through the ledger, all
// in one transaction: a question is never paid without entering the
// answered set.
func (r *Repository) RecordCorrect(ctx context.Context, userID int64, questionID string, reward int64, day time.Time) (*Progress, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureProgressTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trivia_progress_answers (user_id, question_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, question_id) DO NOTHING
	`, userID, questionID)
	if err != nil {
		return nil, fmt.Errorf("insert answered id: %w", err)
	}

	p, err := scanProgress(tx.QueryRow(ctx, `
		UPDATE trivia_progress
		SET correct_count = correct_count + 1,
		    streak = streak + 1,
		    best_streak = GREATEST(best_streak, streak + 1),
		    sats_earned = sats_earned + $2,
		    last_played_on = $3,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+progressColumns,
		userID, reward, day))
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	if reward > 0 {
		if _, err := ledger.CreditTx(ctx, tx, userID, reward, ledger.CategoryTrivia); err != nil {
			return nil, fmt.Errorf("credit trivia reward: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	return p, nil
}

func (r *Repository) RecordWrong(ctx context.Context, userID int64, day time.Time) (*Progress, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureProgressTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	p, err := scanProgress(tx.QueryRow(ctx, `
		UPDATE trivia_progress
		SET streak = 0,
		    last_played_on = $2,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+progressColumns,
		userID, day))
	if err != nil {
		return nil, fmt.Errorf("reset streak: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	return p, nil
}

// AdvanceLevel is a compare-and-set on current_level (or level_completed
// for the final level), so concurrent completions advance once.
func (r *Repository) AdvanceLevel(ctx context.Context, userID int64, from int, final bool) (bool, error) {
	query := `
		UPDATE trivia_progress
		SET current_level = current_level + 1, updated_at = NOW()
		WHERE user_id = $1 AND current_level = $2
	`
	if final {
		query = `
			UPDATE trivia_progress
			SET level_completed = TRUE, updated_at = NOW()
			WHERE user_id = $1 AND current_level = $2 AND NOT level_completed
		`
	}
	tag, err := r.db.Exec(ctx, query, userID, from)
	if err != nil {
		return false, fmt.Errorf("advance level: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) answers(ctx context.Context, q postgres.Querier, sessionID string) ([]Answer, error) {
	rows, err := q.Query(ctx, `
		SELECT question_id, chosen_option, correct, answered_at
		FROM trivia_session_answers
		WHERE session_id = $1
		ORDER BY answered_at, question_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.QuestionID, &a.ChosenOption, &a.Correct, &a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return out, nil
}

func ensureProgressTx(ctx context.Context, q postgres.Execer, userID int64) error {
	if err := members.EnsureTx(ctx, q, userID); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO trivia_progress (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure progress: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.Level, &s.QuestionIDs, &s.Status,
		&s.CreatedAt, &s.ExpiresAt, &s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanProgress(row pgx.Row) (*Progress, error) {
	var p Progress
	err := row.Scan(
		&p.UserID, &p.CurrentLevel, &p.CorrectCount, &p.Streak, &p.BestStreak,
		&p.SatsEarned, &p.LastPlayedOn, &p.LevelCompleted,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
