// Package members manages player identity rows.
// Every per-user table (balances, progress, unlocks) references members(user_id).
package members

import "time"

// Member is a known Telegram user.
// Rows are created when a user joins the community chat, writes to the bot,
// or is credited before either happened.
type Member struct {
	ID        int64     `db:"id"`         // serial row id
	UserID    int64     `db:"user_id"`    // Telegram user id (unique)
	Username  string    `db:"username"`   // @username, may be empty
	FirstName string    `db:"first_name"` // may be empty for rows created by the ledger
	LastName  string    `db:"last_name"`
	JoinedAt  time.Time `db:"joined_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Profile is the Telegram data refreshed on every contact.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns @username, or first and last name.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	if name == "" {
		return "player"
	}
	return name
}
