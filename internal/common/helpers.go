// Package common contains helpers shared across the project:
// caller identity, sats formatting and time-zone aware dates.
package common

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Caller is the trusted identity attached to an incoming operation.
// The auth layer resolves it; a zero UserID is the guest sentinel.
type Caller struct {
	UserID int64
}

// Guest is the unauthenticated caller.
var Guest = Caller{}

// Member returns a caller for an authenticated user.
func Member(userID int64) Caller {
	return Caller{UserID: userID}
}

// IsGuest reports whether the caller is unauthenticated.
func (c Caller) IsGuest() bool {
	return c.UserID == 0
}

var printer = message.NewPrinter(language.English)

// FormatNumber formats n with thousands separators.
// Example: FormatNumber(2350) → "2,350"
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatSats renders an amount of sats for chat output.
//
//	FormatSats(1)    → "1 sat"
//	FormatSats(2100) → "2,100 sats"
func FormatSats(n int64) string {
	if n == 1 || n == -1 {
		return printer.Sprintf("%d sat", n)
	}
	return printer.Sprintf("%d sats", n)
}

// FormatSatsDelta renders a signed amount: "+21 sats" or "-5 sats".
func FormatSatsDelta(n int64) string {
	if n >= 0 {
		return "+" + FormatSats(n)
	}
	return FormatSats(n)
}

// LoadLocation returns the named zone, falling back to UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DateOf truncates t to midnight in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FormatDateTime formats t as "02 Jan 2006 15:04" in loc.
// Used for transaction history lines.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02 Jan 2006 15:04")
}
