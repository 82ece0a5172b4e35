// Package achievements: repository.go runs definition and unlock queries.
package achievements

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListActive returns every active definition ordered by type.
func (r *Repository) ListActive(ctx context.Context) ([]*Definition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT type, name, description, criteria_event, criteria_field,
		       criteria_operator, criteria_value, reward, active
		FROM achievement_definitions
		WHERE active = TRUE
		ORDER BY type
	`)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	defer rows.Close()

	var out []*Definition
	for rows.Next() {
		var d Definition
		if err := rows.Scan(
			&d.Type, &d.Name, &d.Description, &d.Criteria.Event, &d.Criteria.Field,
			&d.Criteria.Operator, &d.Criteria.Value, &d.Reward, &d.Active,
		); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	return out, nil
}

func (r *Repository) HasUnlocked(ctx context.Context, userID int64, achievementType string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM achievement_unlocks WHERE user_id = $1 AND achievement_type = $2)
	`, userID, achievementType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check unlock: %w", err)
	}
	return exists, nil
}

// Unlock creates the member row if needed and inserts the unlock, in one
// transaction. It reports false when a concurrent unlock won the race.
// count is the number of unlocks the user holds afterwards.
func (r *Repository) Unlock(ctx context.Context, userID int64, achievementType string) (ok bool, count int, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := members.EnsureTx(ctx, tx, userID); err != nil {
		return false, 0, err
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO achievement_unlocks (user_id, achievement_type)
		VALUES ($1, $2)
		ON CONFLICT (user_id, achievement_type) DO NOTHING
		RETURNING id
	`, userID, achievementType).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("insert unlock: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM achievement_unlocks WHERE user_id = $1`, userID,
	).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("count unlocks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit unlock: %w", err)
	}
	return true, count, nil
}

// ListUnlocked returns the user's unlocks, oldest first.
func (r *Repository) ListUnlocked(ctx context.Context, userID int64) ([]*Unlocked, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.type, d.name, d.description, d.criteria_event, d.criteria_field,
		       d.criteria_operator, d.criteria_value, d.reward, d.active, u.unlocked_at
		FROM achievement_unlocks u
		JOIN achievement_definitions d ON d.type = u.achievement_type
		WHERE u.user_id = $1
		ORDER BY u.unlocked_at, u.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query unlocks: %w", err)
	}
	defer rows.Close()

	var out []*Unlocked
	for rows.Next() {
		var u Unlocked
		if err := rows.Scan(
			&u.Type, &u.Name, &u.Description, &u.Criteria.Event, &u.Criteria.Field,
			&u.Criteria.Operator, &u.Criteria.Value, &u.Reward, &u.Active, &u.UnlockedAt,
		); err != nil {
			return nil, fmt.Errorf("scan unlock: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read unlocks: %w", err)
	}
	return out, nil
}

// SeedDefinitions upserts definitions by type in one transaction.
// Unlocks are never touched, so re-seeding keeps players' history.
func (r *Repository) SeedDefinitions(ctx context.Context, defs []*Definition) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range defs {
		_, err := tx.Exec(ctx, `
			INSERT INTO achievement_definitions
			    (type, name, description, criteria_event, criteria_field,
			     criteria_operator, criteria_value, reward, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (type) DO UPDATE
			SET name = EXCLUDED.name,
			    description = EXCLUDED.description,
			    criteria_event = EXCLUDED.criteria_event,
			    criteria_field = EXCLUDED.criteria_field,
			    criteria_operator = EXCLUDED.criteria_operator,
			    criteria_value = EXCLUDED.criteria_value,
			    reward = EXCLUDED.reward,
			    active = EXCLUDED.active,
			    updated_at = NOW()
		`, d.Type, d.Name, d.Description, d.Criteria.Event, d.Criteria.Field,
			d.Criteria.Operator, d.Criteria.Value, d.Reward, d.Active)
		if err != nil {
			return fmt.Errorf("upsert definition %q: %w", d.Type, err)
		}
	}

	return tx.Commit(ctx)
}
