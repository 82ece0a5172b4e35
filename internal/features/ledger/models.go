// Package ledger is the reward ledger: the only code allowed to change
// a balance or write a payout row.
// models.go describes balances and ledger entries.
package ledger

import "time"

// Category tags what a ledger entry paid for.
type Category string

const (
	CategoryTrivia         Category = "trivia"
	CategoryAchievement    Category = "achievement"
	CategoryReferral       Category = "referral"
	CategoryWithdrawal     Category = "withdrawal"
	CategoryStackerClicker Category = "stacker-clicker"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryTrivia, CategoryAchievement, CategoryReferral, CategoryWithdrawal, CategoryStackerClicker:
		return true
	}
	return false
}

// Creditable reports whether c may be used for a credit.
// Withdrawals only come from Debit.
func (c Category) Creditable() bool {
	return c.Valid() && c != CategoryWithdrawal
}

// Status of a ledger entry. Settlement (pending → paid|failed) happens
// outside the bot.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Balance is the per-user account. available never drops below zero.
type Balance struct {
	UserID         int64      `db:"user_id"`
	Available      int64      `db:"available"`       // spendable sats
	Pending        int64      `db:"pending"`         // withdrawals awaiting settlement
	TotalEarned    int64      `db:"total_earned"`    // only grows
	TotalWithdrawn int64      `db:"total_withdrawn"` // only grows
	LastActivityAt *time.Time `db:"last_activity_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// Entry is an immutable payout row. Amount is always positive;
// the category tells credits from withdrawals.
type Entry struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    int64     `db:"amount"`
	Category  Category  `db:"category"`
	Status    Status    `db:"status"`
	TxRef     *string   `db:"tx_ref"` // external payment reference, set on settlement
	CreatedAt time.Time `db:"created_at"`
}

// IsDebit reports whether the entry took sats out of the balance.
func (e *Entry) IsDebit() bool {
	return e.Category == CategoryWithdrawal
}

// Result is returned by Credit and Debit.
type Result struct {
	EntryID int64
	Balance Balance // balance after the operation
}
