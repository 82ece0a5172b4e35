// Package ledger: repository.go runs balance and payout queries.
// Every mutation is one database transaction, and balances only move
// through relative updates (available = available + $n), so concurrent
// credits never lose an increment.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/db/postgres"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
)

const balanceColumns = `user_id, available, pending, total_earned, total_withdrawn,
	last_activity_at, created_at, updated_at`

// Repository is the PostgreSQL Store.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Credit inserts a paid entry and adds amount to available and total_earned.
func (r *Repository) Credit(ctx context.Context, userID, amount int64, category Category) (*Result, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := CreditTx(ctx, tx, userID, amount, category)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return res, nil
}

// CreditTx is Credit inside the caller's transaction. Features whose own
// rows must commit together with the payout (trivia progress) use it;
// the payout and the balance change roll back with them.
func CreditTx(ctx context.Context, tx pgx.Tx, userID, amount int64, category Category) (*Result, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if !category.Creditable() {
		return nil, common.ErrInvalidCategory
	}

	if err := members.EnsureTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := ensureBalanceTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	var entryID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO payouts (user_id, amount, category, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, amount, category, StatusPaid).Scan(&entryID)
	if err != nil {
		return nil, fmt.Errorf("insert payout: %w", err)
	}

	bal, err := scanBalance(tx.QueryRow(ctx, `
		UPDATE balances
		SET available = available + $2,
		    total_earned = total_earned + $2,
		    last_activity_at = NOW(),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+balanceColumns,
		userID, amount))
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	return &Result{EntryID: entryID, Balance: *bal}, nil
}

// Debit moves amount from available to pending and records a pending
// withdrawal. The WHERE clause both checks and applies the precondition,
// so two concurrent debits cannot overdraw the balance.
func (r *Repository) Debit(ctx context.Context, userID, amount int64) (*Result, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	bal, err := scanBalance(tx.QueryRow(ctx, `
		UPDATE balances
		SET available = available - $2,
		    pending = pending + $2,
		    total_withdrawn = total_withdrawn + $2,
		    last_activity_at = NOW(),
		    updated_at = NOW()
		WHERE user_id = $1 AND available >= $2
		RETURNING `+balanceColumns,
		userID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	var entryID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO payouts (user_id, amount, category, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, amount, CategoryWithdrawal, StatusPending).Scan(&entryID)
	if err != nil {
		return nil, fmt.Errorf("insert withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit debit: %w", err)
	}
	return &Result{EntryID: entryID, Balance: *bal}, nil
}

// EnsureBalance returns the user's balance, creating a zeroed row if needed.
func (r *Repository) EnsureBalance(ctx context.Context, userID int64) (*Balance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := members.EnsureTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := ensureBalanceTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	bal, err := scanBalance(tx.QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ensure balance: %w", err)
	}
	return bal, nil
}

// History returns the newest entries first.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]*Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, category, status, tx_ref, created_at
		FROM payouts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query payouts: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Status, &e.TxRef, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read payouts: %w", err)
	}
	return out, nil
}

func ensureBalanceTx(ctx context.Context, q postgres.Execer, userID int64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO balances (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure balance: %w", err)
	}
	return nil
}

func scanBalance(row pgx.Row) (*Balance, error) {
	var b Balance
	err := row.Scan(
		&b.UserID, &b.Available, &b.Pending, &b.TotalEarned, &b.TotalWithdrawn,
		&b.LastActivityAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
