// Package admin implements the password-protected admin panel.
// models.go describes admin sessions, login attempts, audit rows and
// the dialog state machine.
package admin

import "time"

// AdminSession is an authenticated admin login.
type AdminSession struct {
	ID              int64
	UserID          int64
	SessionToken    string
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
	LastActivity    time.Time
	IsActive        bool
}

// Action is an audited balance change made by an admin.
type Action struct {
	AdminID      int64
	TargetUserID int64
	Kind         string // ActionAward or ActionWithdraw
	Amount       int64
	EntryID      int64 // payouts row written by the ledger
}

const (
	ActionAward    = "award"
	ActionWithdraw = "withdraw"
)

// AdminState is the dialog state with one admin.
// The panel works in steps: pick an action → pick a member → enter the amount.
type AdminState struct {
	State     string
	Data      any       // selected target, once known
	ExpiresAt time.Time // 5 minutes after the last step
}

// Dialog states
const (
	StateNone             = ""
	StateAwaitingPassword = "awaiting_password"
	StateAwardTarget      = "award_target"    // waiting for @username
	StateAwardAmount      = "award_amount"    // waiting for "amount [category]"
	StateWithdrawTarget   = "withdraw_target" // waiting for @username
	StateWithdrawAmount   = "withdraw_amount" // waiting for amount
)

// Security limits
const (
	MaxFailedAttempts = 3
	LockoutWindow     = time.Hour
	SessionLifetime   = 24 * time.Hour
	DialogTimeout     = 5 * time.Minute
)
