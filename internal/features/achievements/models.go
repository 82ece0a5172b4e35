// Package achievements unlocks one-time bonuses from gameplay events.
// models.go describes definitions, their criteria and unlock records.
package achievements

import (
	"time"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/events"
)

// Operator compares an event field with a criteria value.
type Operator string

const (
	OpGTE Operator = "gte" // field >= value
	OpEQ  Operator = "eq"  // field == value
)

// Criteria is a single numeric comparison over one event field.
type Criteria struct {
	Event    string   `yaml:"event" validate:"required,oneof=correct wrong level-up session-complete achievement-unlocked"`
	Field    string   `yaml:"field" validate:"required"`
	Operator Operator `yaml:"operator" validate:"required,oneof=gte eq"`
	Value    int64    `yaml:"value"`
}

// Met reports whether e satisfies the criteria.
// A missing field never matches.
func (c Criteria) Met(e events.Event) bool {
	v, ok := e.Field(c.Field)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpGTE:
		return v >= c.Value
	case OpEQ:
		return v == c.Value
	}
	return false
}

// Definition is a seeded achievement. Read-only at runtime.
type Definition struct {
	Type        string   `yaml:"type" validate:"required,max=64"`
	Name        string   `yaml:"name" validate:"required"`
	Description string   `yaml:"description"`
	Criteria    Criteria `yaml:"criteria"`
	Reward      int64    `yaml:"reward" validate:"gte=0"` // sats, 0 = badge only
	Active      bool     `yaml:"active"`
}

// Unlocked is a definition the user holds.
type Unlocked struct {
	Definition
	UnlockedAt time.Time
}
