// Package achievements: engine.go evaluates definitions against events.
//
// Lifecycle: Init loads active definitions once and subscribes one bus
// handler per definition; Reset unsubscribes them; Reload swaps in a fresh
// set. Handlers never return errors to the publisher: a failed unlock or
// bonus credit is logged and the gameplay call that published the event
// carries on.
package achievements

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/events"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
)

// Store persists definitions and unlocks.
type Store interface {
	ListActive(ctx context.Context) ([]*Definition, error)
	HasUnlocked(ctx context.Context, userID int64, achievementType string) (bool, error)
	Unlock(ctx context.Context, userID int64, achievementType string) (ok bool, count int, err error)
	ListUnlocked(ctx context.Context, userID int64) ([]*Unlocked, error)
}

// Ledger pays achievement rewards.
type Ledger interface {
	Credit(ctx context.Context, userID, amount int64, category ledger.Category) (*ledger.Result, error)
}

type subscription struct {
	event string
	id    events.SubscriptionID
}

// Engine is the achievement rule engine. Construct one per process.
type Engine struct {
	store  Store
	ledger Ledger
	bus    *events.Bus

	mu          sync.Mutex
	initialized bool
	defs        []*Definition
	subs        []subscription
}

func NewEngine(store Store, ledger Ledger, bus *events.Bus) *Engine {
	return &Engine{store: store, ledger: ledger, bus: bus}
}

// Init loads active definitions and subscribes their handlers.
// Calling it again while initialized does nothing.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	defs, err := e.store.ListActive(ctx)
	if err != nil {
		return err
	}
	e.subscribeLocked(defs)
	return nil
}

// Reset unsubscribes every handler and forgets the cached definitions.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// Reload replaces the definition set. If loading fails the current
// handlers stay in place.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	defs, err := e.store.ListActive(ctx)
	if err != nil {
		return err
	}
	e.resetLocked()
	e.subscribeLocked(defs)
	return nil
}

// Definitions returns the definitions currently subscribed.
func (e *Engine) Definitions() []Definition {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Definition, 0, len(e.defs))
	for _, d := range e.defs {
		out = append(out, *d)
	}
	return out
}

// Unlocked lists the user's achievements.
func (e *Engine) Unlocked(ctx context.Context, userID int64) ([]*Unlocked, error) {
	return e.store.ListUnlocked(ctx, userID)
}

func (e *Engine) subscribeLocked(defs []*Definition) {
	for _, d := range defs {
		if err := ValidateDefinition(d); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"type": d.Type,
				"kind": common.KindOf(err),
			}).Error("Skipping malformed achievement definition")
			continue
		}

		def := *d
		id := e.bus.Subscribe(def.Criteria.Event, func(ctx context.Context, ev events.Event) {
			e.evaluate(ctx, &def, ev)
		})
		e.subs = append(e.subs, subscription{event: def.Criteria.Event, id: id})
		e.defs = append(e.defs, &def)
	}
	e.initialized = true

	log.WithFields(log.Fields{
		"loaded":     len(defs),
		"subscribed": len(e.subs),
	}).Info("Achievement definitions loaded")
}

func (e *Engine) resetLocked() {
	for _, s := range e.subs {
		e.bus.Unsubscribe(s.event, s.id)
	}
	e.subs = nil
	e.defs = nil
	e.initialized = false
}

// evaluate runs one definition against one event.
func (e *Engine) evaluate(ctx context.Context, def *Definition, ev events.Event) {
	userID := ev.UserID()
	if userID == 0 {
		return
	}
	if !def.Criteria.Met(ev) {
		return
	}

	fields := log.Fields{
		"user_id":     userID,
		"achievement": def.Type,
		"event":       ev.Name(),
	}

	has, err := e.store.HasUnlocked(ctx, userID, def.Type)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("Failed to check achievement unlock")
		return
	}
	if has {
		return
	}

	ok, count, err := e.store.Unlock(ctx, userID, def.Type)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("Failed to unlock achievement")
		return
	}
	if !ok {
		// a concurrent event unlocked it first
		return
	}
	log.WithFields(fields).Info("Achievement unlocked")

	if def.Reward > 0 {
		if _, err := e.ledger.Credit(ctx, userID, def.Reward, ledger.CategoryAchievement); err != nil {
			log.WithError(err).WithFields(fields).WithField("reward", def.Reward).
				Error("Failed to credit achievement reward")
		}
	}

	e.bus.Publish(ctx, events.AchievementUnlocked{
		User:          userID,
		Type:          def.Type,
		Title:         def.Name,
		Reward:        def.Reward,
		UnlockedCount: count,
	})
}
