// Package common: errors.go defines the domain errors shared by every feature.
// Each error carries a Kind for transports and a stable Code for logs.
package common

import "errors"

// Kind groups errors by who is at fault and how the caller should react.
type Kind string

const (
	KindUnknown             Kind = "unknown"
	KindValidation          Kind = "validation"           // malformed input, caller's fault
	KindNotFound            Kind = "not_found"            // missing row
	KindSessionState        Kind = "session_state"        // session lifecycle rejections
	KindLevelLocked         Kind = "level_locked"         // level above the unlocked one
	KindLevelComplete       Kind = "level_complete"       // nothing left to answer on a level
	KindInsufficientBalance Kind = "insufficient_balance" // debit precondition failed
	KindConfiguration       Kind = "configuration"        // malformed seeded data
	KindAuth                Kind = "auth"                 // admin login failures
)

// Error is a domain error with a machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation errors
var (
	// ErrInvalidAmount: zero or negative amount
	ErrInvalidAmount = newError(KindValidation, "INVALID_AMOUNT", "amount must be a positive integer")
	// ErrInvalidCategory: unknown ledger category
	ErrInvalidCategory = newError(KindValidation, "INVALID_CATEGORY", "unknown ledger category")
	// ErrInvalidLevel: level below 1 or above the catalog
	ErrInvalidLevel = newError(KindValidation, "INVALID_LEVEL", "level does not exist")
	// ErrInvalidOption: chosen option is not an index of the question
	ErrInvalidOption = newError(KindValidation, "INVALID_OPTION", "chosen option is out of range")
	// ErrGuestLevelNotAllowed: guests may only play level 1
	ErrGuestLevelNotAllowed = newError(KindValidation, "GUEST_LEVEL_NOT_ALLOWED", "guests can only play level 1")
	// ErrGuestNotAllowed: operation requires a signed-in user
	ErrGuestNotAllowed = newError(KindValidation, "GUEST_NOT_ALLOWED", "sign in to use this feature")
)

// Not found errors
var (
	// ErrUserNotFound: no member row for the user
	ErrUserNotFound = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
	// ErrQuestionNotFound: question id unknown to the bank
	ErrQuestionNotFound = newError(KindNotFound, "QUESTION_NOT_FOUND", "question not found")
)

// Session state errors
var (
	ErrSessionNotFound      = newError(KindSessionState, "SESSION_NOT_FOUND", "session not found")
	ErrSessionNotOwned      = newError(KindSessionState, "SESSION_NOT_OWNED", "session belongs to another player")
	ErrSessionCompleted     = newError(KindSessionState, "SESSION_COMPLETED", "session is already finished")
	ErrSessionExpired       = newError(KindSessionState, "SESSION_EXPIRED", "session has expired")
	ErrActiveSessionExists  = newError(KindSessionState, "ACTIVE_SESSION_EXISTS", "you already have an active session")
	ErrQuestionNotInSession = newError(KindSessionState, "QUESTION_NOT_IN_SESSION", "question is not part of this session")
	ErrAlreadyAnswered      = newError(KindSessionState, "ALREADY_ANSWERED", "question was already answered")
	ErrAnsweredTooFast      = newError(KindSessionState, "ANSWERED_TOO_FAST", "slow down, you are answering too fast")
)

// Progression errors
var (
	// ErrLevelLocked: requested level is above the user's unlocked level
	ErrLevelLocked = newError(KindLevelLocked, "LEVEL_LOCKED", "level is locked")
	// ErrLevelComplete: every question of the level is already answered
	ErrLevelComplete = newError(KindLevelComplete, "LEVEL_COMPLETE", "you have answered every question on this level")
)

// Ledger errors
var (
	// ErrInsufficientBalance: not enough sats for a withdrawal
	ErrInsufficientBalance = newError(KindInsufficientBalance, "INSUFFICIENT_BALANCE", "insufficient balance")
)

// Configuration errors
var (
	// ErrInvalidDefinition: achievement definition failed validation
	ErrInvalidDefinition = newError(KindConfiguration, "INVALID_DEFINITION", "achievement definition is malformed")
	// ErrInvalidCatalog: question catalog failed validation
	ErrInvalidCatalog = newError(KindConfiguration, "INVALID_CATALOG", "question catalog is malformed")
)

// Admin errors
var (
	ErrNotAdmin        = newError(KindAuth, "NOT_ADMIN", "you are not an administrator")
	ErrWrongPassword   = newError(KindAuth, "WRONG_PASSWORD", "wrong password")
	ErrTooManyAttempts = newError(KindAuth, "TOO_MANY_ATTEMPTS", "too many attempts, wait an hour")
)

// UserMessage renders err for chat. Domain errors show their message;
// anything else is reported generically and should be logged by the caller.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return "⚠️ " + e.Message
	}
	return "❌ Something went wrong, try again later"
}
