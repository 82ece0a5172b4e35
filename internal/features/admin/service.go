// Package admin: service.go handles login, admin sessions, the dialog
// state machine and the ledger operations admins may run.
package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
)

// Store persists admin sessions, login attempts and the audit log.
type Store interface {
	CreateSession(ctx context.Context, session *AdminSession) error
	GetActiveSession(ctx context.Context, userID int64) (*AdminSession, error)
	DeactivateSession(ctx context.Context, userID int64) error
	UpdateActivity(ctx context.Context, userID int64) error
	LogAttempt(ctx context.Context, userID int64, success bool) error
	FailedAttemptsSince(ctx context.Context, userID int64, since time.Time) (int, error)
	LogAction(ctx context.Context, a Action) error
}

// Directory resolves @usernames to members.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (*members.Member, error)
}

// Ledger is the subset of the ledger service admins use.
type Ledger interface {
	Credit(ctx context.Context, userID, amount int64, category ledger.Category) (*ledger.Result, error)
	Debit(ctx context.Context, userID, amount int64) (*ledger.Result, error)
}

type Service struct {
	store        Store
	directory    Directory
	ledger       Ledger
	adminIDs     map[int64]bool
	passwordHash string

	states   map[int64]*AdminState // dialog states, in memory
	statesMu sync.RWMutex

	now func() time.Time
}

// NewService creates the admin service. Only adminIDs may log in.
func NewService(store Store, directory Directory, ledger Ledger, adminIDs []int64, passwordHash string) *Service {
	ids := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = true
	}
	return &Service{
		store:        store,
		directory:    directory,
		ledger:       ledger,
		adminIDs:     ids,
		passwordHash: passwordHash,
		states:       make(map[int64]*AdminState),
		now:          time.Now,
	}
}

// IsAdmin reports whether userID is allowed to use the panel at all.
func (s *Service) IsAdmin(userID int64) bool {
	return s.adminIDs[userID]
}

// VerifyPassword checks the admin password and opens a 24h session.
// Three failures within an hour lock the user out for the rest of it.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	if !s.IsAdmin(userID) {
		return common.ErrNotAdmin
	}

	attempts, err := s.store.FailedAttemptsSince(ctx, userID, s.now().Add(-LockoutWindow))
	if err != nil {
		return err
	}
	if attempts >= MaxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := s.passwordHash != "" && verifyArgon2id(password, s.passwordHash)

	if err := s.store.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to log admin login attempt")
	}

	if !match {
		log.WithField("user_id", userID).Warn("Admin login failed")
		return common.ErrWrongPassword
	}

	session := &AdminSession{
		UserID:       userID,
		SessionToken: generateSecureToken(),
		ExpiresAt:    s.now().Add(SessionLifetime),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return err
	}

	log.WithField("user_id", userID).Info("Admin logged in")
	return nil
}

// HasActiveSession reports whether the admin is logged in.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.store.GetActiveSession(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to read admin session")
		return false
	}
	return session != nil
}

// Touch records activity on the admin's session.
func (s *Service) Touch(ctx context.Context, userID int64) {
	if err := s.store.UpdateActivity(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Failed to update admin activity")
	}
}

// Logout closes every session of the admin.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	s.ClearState(userID)
	return s.store.DeactivateSession(ctx, userID)
}

// GetState returns the current dialog state, or nil once it timed out.
func (s *Service) GetState(userID int64) *AdminState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[userID]
	if !ok || s.now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState moves the dialog to stateName with a fresh timeout.
func (s *Service) SetState(userID int64, stateName string, data any) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[userID] = &AdminState{
		State:     stateName,
		Data:      data,
		ExpiresAt: s.now().Add(DialogTimeout),
	}
}

func (s *Service) ClearState(userID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, userID)
}

// ResolveTarget looks up "@username" (the @ is optional).
func (s *Service) ResolveTarget(ctx context.Context, text string) (*members.Member, error) {
	username := strings.TrimPrefix(strings.TrimSpace(text), "@")
	if username == "" || strings.ContainsAny(username, " \t\n") {
		return nil, common.ErrUserNotFound
	}
	return s.directory.GetByUsername(ctx, username)
}

// Award credits a member and writes an audit row.
func (s *Service) Award(ctx context.Context, adminID, targetID, amount int64, category ledger.Category) (*ledger.Result, error) {
	res, err := s.ledger.Credit(ctx, targetID, amount, category)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, Action{AdminID: adminID, TargetUserID: targetID, Kind: ActionAward, Amount: amount, EntryID: res.EntryID})
	return res, nil
}

// Withdraw debits a member into a pending withdrawal and writes an audit row.
func (s *Service) Withdraw(ctx context.Context, adminID, targetID, amount int64) (*ledger.Result, error) {
	res, err := s.ledger.Debit(ctx, targetID, amount)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, Action{AdminID: adminID, TargetUserID: targetID, Kind: ActionWithdraw, Amount: amount, EntryID: res.EntryID})
	return res, nil
}

// audit failures are logged; the ledger write already happened.
func (s *Service) audit(ctx context.Context, a Action) {
	logger := log.WithFields(log.Fields{
		"admin_id":       a.AdminID,
		"target_user_id": a.TargetUserID,
		"action":         a.Kind,
		"amount":         a.Amount,
		"entry_id":       a.EntryID,
	})
	if err := s.store.LogAction(ctx, a); err != nil {
		logger.WithError(err).Error("Failed to write admin audit row")
		return
	}
	logger.Info("Admin action applied")
}

// ParseAmount reads a positive sats amount.
func ParseAmount(text string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || n <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return n, nil
}

// ParseAward reads "amount category", e.g. "210 referral".
func ParseAward(text string) (int64, ledger.Category, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("expected \"<amount> <category>\": %w", common.ErrInvalidAmount)
	}
	amount, err := ParseAmount(fields[0])
	if err != nil {
		return 0, "", err
	}
	category := ledger.Category(strings.ToLower(fields[1]))
	if !category.Creditable() {
		return 0, "", common.ErrInvalidCategory
	}
	return amount, category, nil
}
