// Package ledger: service.go validates ledger operations and logs them.
package ledger

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
)

// History page bounds
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// Store persists balances and payouts atomically.
type Store interface {
	Credit(ctx context.Context, userID, amount int64, category Category) (*Result, error)
	Debit(ctx context.Context, userID, amount int64) (*Result, error)
	EnsureBalance(ctx context.Context, userID int64) (*Balance, error)
	History(ctx context.Context, userID int64, limit int) ([]*Entry, error)
}

// Service is the reward ledger.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Credit adds amount sats to the user's available balance and writes a
// paid entry, all or nothing.
func (s *Service) Credit(ctx context.Context, userID, amount int64, category Category) (*Result, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if !category.Creditable() {
		return nil, common.ErrInvalidCategory
	}

	res, err := s.store.Credit(ctx, userID, amount, category)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"amount":    amount,
		"category":  category,
		"entry_id":  res.EntryID,
		"available": res.Balance.Available,
	}).Info("Ledger credit")
	return res, nil
}

// Debit starts a withdrawal: available → pending.
// Fails with common.ErrInsufficientBalance and changes nothing when
// amount exceeds the available balance.
func (s *Service) Debit(ctx context.Context, userID, amount int64) (*Result, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	res, err := s.store.Debit(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"amount":    amount,
		"entry_id":  res.EntryID,
		"available": res.Balance.Available,
		"pending":   res.Balance.Pending,
	}).Info("Ledger debit")
	return res, nil
}

// GetBalance returns the available balance, creating a zero row if absent.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	b, err := s.store.EnsureBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return b.Available, nil
}

// GetStats returns the full balance row.
func (s *Service) GetStats(ctx context.Context, userID int64) (*Balance, error) {
	return s.store.EnsureBalance(ctx, userID)
}

// History returns up to limit entries, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.store.History(ctx, userID, limit)
}
