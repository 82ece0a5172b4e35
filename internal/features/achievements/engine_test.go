package achievements

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/events"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
)

type memStore struct {
	mu       sync.Mutex
	defs     []*Definition
	unlocks  map[int64]map[string]bool
	listErr  error
	loseRace bool // Unlock reports a concurrent winner
}

func newMemStore(defs ...*Definition) *memStore {
	return &memStore{defs: defs, unlocks: make(map[int64]map[string]bool)}
}

func (m *memStore) ListActive(ctx context.Context) ([]*Definition, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*Definition
	for _, d := range m.defs {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) HasUnlocked(ctx context.Context, userID int64, typ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocks[userID][typ], nil
}

func (m *memStore) Unlock(ctx context.Context, userID int64, typ string) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loseRace || m.unlocks[userID][typ] {
		return false, 0, nil
	}
	if m.unlocks[userID] == nil {
		m.unlocks[userID] = make(map[string]bool)
	}
	m.unlocks[userID][typ] = true
	return true, len(m.unlocks[userID]), nil
}

func (m *memStore) ListUnlocked(ctx context.Context, userID int64) ([]*Unlocked, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Unlocked
	for _, d := range m.defs {
		if m.unlocks[userID][d.Type] {
			out = append(out, &Unlocked{Definition: *d})
		}
	}
	return out, nil
}

type credit struct {
	user   int64
	amount int64
}

type fakeLedger struct {
	mu      sync.Mutex
	credits []credit
	err     error
}

func (f *fakeLedger) Credit(ctx context.Context, userID, amount int64, category ledger.Category) (*ledger.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if category != ledger.CategoryAchievement {
		return nil, errors.New("unexpected category " + string(category))
	}
	f.credits = append(f.credits, credit{userID, amount})
	return &ledger.Result{EntryID: int64(len(f.credits))}, nil
}

func def(typ, event, field string, op Operator, value, reward int64) *Definition {
	return &Definition{
		Type:     typ,
		Name:     typ,
		Criteria: Criteria{Event: event, Field: field, Operator: op, Value: value},
		Reward:   reward,
		Active:   true,
	}
}

func newTestEngine(t *testing.T, defs ...*Definition) (*Engine, *memStore, *fakeLedger, *events.Bus) {
	t.Helper()
	store := newMemStore(defs...)
	led := &fakeLedger{}
	bus := events.NewBus()
	e := NewEngine(store, led, bus)
	if err := e.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return e, store, led, bus
}

func TestReplayUnlocksOnce(t *testing.T) {
	_, store, led, bus := newTestEngine(t, def("streak-5", events.NameCorrect, "streak", OpGTE, 5, 21))
	ctx := context.Background()

	bus.Publish(ctx, events.CorrectAnswer{User: 1, Streak: 5})
	bus.Publish(ctx, events.CorrectAnswer{User: 1, Streak: 6})

	if !store.unlocks[1]["streak-5"] {
		t.Fatal("expected unlock")
	}
	if len(led.credits) != 1 || led.credits[0] != (credit{1, 21}) {
		t.Fatalf("expected one 21 sat credit, got %+v", led.credits)
	}
}

func TestThresholdNotMet(t *testing.T) {
	_, store, led, bus := newTestEngine(t,
		def("streak-5", events.NameCorrect, "streak", OpGTE, 5, 21),
		def("level-3", events.NameLevelUp, "new_level", OpEQ, 3, 10),
	)
	ctx := context.Background()

	bus.Publish(ctx, events.CorrectAnswer{User: 1, Streak: 4})
	bus.Publish(ctx, events.LevelUp{User: 1, NewLevel: 4})

	if len(store.unlocks[1]) != 0 || len(led.credits) != 0 {
		t.Fatalf("unexpected unlocks %v credits %v", store.unlocks[1], led.credits)
	}
}

func TestOneEventUnlocksSeveral(t *testing.T) {
	_, store, led, bus := newTestEngine(t,
		def("first", events.NameCorrect, "correct_count", OpGTE, 1, 5),
		def("streak-1", events.NameCorrect, "streak", OpEQ, 1, 0),
		def("rich", events.NameCorrect, "sats_earned", OpGTE, 10, 7),
	)

	bus.Publish(context.Background(), events.CorrectAnswer{User: 3, Streak: 1, CorrectCount: 1, SatsEarned: 10})

	if n := len(store.unlocks[3]); n != 3 {
		t.Fatalf("expected 3 unlocks, got %d", n)
	}
	// zero reward is a badge only
	if len(led.credits) != 2 {
		t.Fatalf("expected 2 credits, got %+v", led.credits)
	}
}

func TestGuestEventsIgnored(t *testing.T) {
	_, store, led, bus := newTestEngine(t, def("first", events.NameCorrect, "correct_count", OpGTE, 0, 5))

	bus.Publish(context.Background(), events.CorrectAnswer{User: 0, CorrectCount: 1})

	if len(store.unlocks) != 0 || len(led.credits) != 0 {
		t.Fatal("guest event produced an unlock")
	}
}

func TestCreditFailureIsSwallowed(t *testing.T) {
	_, store, led, bus := newTestEngine(t, def("first", events.NameCorrect, "correct_count", OpGTE, 1, 5))
	led.err = errors.New("store down")

	var notified []events.AchievementUnlocked
	bus.Subscribe(events.NameAchievementUnlocked, func(ctx context.Context, e events.Event) {
		notified = append(notified, e.(events.AchievementUnlocked))
	})

	bus.Publish(context.Background(), events.CorrectAnswer{User: 1, CorrectCount: 1})

	if !store.unlocks[1]["first"] {
		t.Fatal("unlock should be kept when the credit fails")
	}
	if len(notified) != 1 || notified[0].Type != "first" || notified[0].UnlockedCount != 1 {
		t.Fatalf("unexpected notifications %+v", notified)
	}
}

func TestLostRaceDoesNotCredit(t *testing.T) {
	_, store, led, bus := newTestEngine(t, def("first", events.NameCorrect, "correct_count", OpGTE, 1, 5))
	store.loseRace = true

	bus.Publish(context.Background(), events.CorrectAnswer{User: 1, CorrectCount: 1})

	if len(led.credits) != 0 {
		t.Fatalf("expected no credit after a lost race, got %+v", led.credits)
	}
}

func TestMalformedDefinitionsSkipped(t *testing.T) {
	bad := []*Definition{
		def("bad-op", events.NameCorrect, "streak", "lt", 1, 5),
		def("no-field", events.NameCorrect, "", OpGTE, 1, 5),
		def("no-event", "", "streak", OpGTE, 1, 5),
		def("negative", events.NameCorrect, "streak", OpGTE, 1, -5),
		def("wrong-field", events.NameLevelUp, "streak", OpGTE, 1, 5),
	}
	good := def("ok", events.NameCorrect, "streak", OpGTE, 1, 5)

	e, _, _, bus := newTestEngine(t, append(bad, good)...)

	defs := e.Definitions()
	if len(defs) != 1 || defs[0].Type != "ok" {
		t.Fatalf("expected only the valid definition, got %+v", defs)
	}
	if n := bus.HandlerCount(events.NameCorrect); n != 1 {
		t.Fatalf("expected 1 correct handler, got %d", n)
	}
}

func TestInactiveDefinitionsIgnored(t *testing.T) {
	d := def("off", events.NameCorrect, "streak", OpGTE, 1, 5)
	d.Active = false
	e, _, _, _ := newTestEngine(t, d)
	if len(e.Definitions()) != 0 {
		t.Fatal("inactive definition was loaded")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	e, _, _, bus := newTestEngine(t, def("first", events.NameCorrect, "correct_count", OpGTE, 1, 5))

	if err := e.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if n := bus.HandlerCount(events.NameCorrect); n != 1 {
		t.Fatalf("expected 1 handler after double init, got %d", n)
	}
}

func TestInitFailureCanBeRetried(t *testing.T) {
	store := newMemStore(def("first", events.NameCorrect, "correct_count", OpGTE, 1, 5))
	store.listErr = errors.New("db down")
	bus := events.NewBus()
	e := NewEngine(store, &fakeLedger{}, bus)

	if err := e.Init(context.Background()); err == nil {
		t.Fatal("expected init error")
	}
	store.listErr = nil
	if err := e.Init(context.Background()); err != nil {
		t.Fatalf("retry init: %v", err)
	}
	if n := bus.HandlerCount(events.NameCorrect); n != 1 {
		t.Fatalf("expected 1 handler, got %d", n)
	}
}

func TestResetAndReload(t *testing.T) {
	e, store, led, bus := newTestEngine(t, def("first", events.NameCorrect, "correct_count", OpGTE, 1, 5))
	ctx := context.Background()

	e.Reset()
	if n := bus.HandlerCount(events.NameCorrect); n != 0 {
		t.Fatalf("expected no handlers after reset, got %d", n)
	}
	bus.Publish(ctx, events.CorrectAnswer{User: 1, CorrectCount: 1})
	if len(led.credits) != 0 {
		t.Fatal("reset engine still handled events")
	}

	store.defs = append(store.defs, def("lvl", events.NameLevelUp, "new_level", OpGTE, 2, 10))
	if err := e.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(e.Definitions()) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(e.Definitions()))
	}

	store.listErr = errors.New("db down")
	if err := e.Reload(ctx); err == nil {
		t.Fatal("expected reload error")
	}
	if len(e.Definitions()) != 2 {
		t.Fatal("failed reload dropped the current definitions")
	}
}

func TestUnlockEventChains(t *testing.T) {
	_, store, _, bus := newTestEngine(t,
		def("first", events.NameCorrect, "correct_count", OpGTE, 1, 5),
		def("collector", events.NameAchievementUnlocked, "unlocked_count", OpGTE, 1, 0),
	)

	bus.Publish(context.Background(), events.CorrectAnswer{User: 1, CorrectCount: 1})

	if !store.unlocks[1]["collector"] {
		t.Fatal("expected chained unlock")
	}
}

func TestCriteriaMet(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		e    events.Event
		want bool
	}{
		{"gte equal", Criteria{Field: "streak", Operator: OpGTE, Value: 3}, events.CorrectAnswer{Streak: 3}, true},
		{"gte above", Criteria{Field: "streak", Operator: OpGTE, Value: 3}, events.CorrectAnswer{Streak: 4}, true},
		{"gte below", Criteria{Field: "streak", Operator: OpGTE, Value: 3}, events.CorrectAnswer{Streak: 2}, false},
		{"eq", Criteria{Field: "new_level", Operator: OpEQ, Value: 2}, events.LevelUp{NewLevel: 2}, true},
		{"eq above", Criteria{Field: "new_level", Operator: OpEQ, Value: 2}, events.LevelUp{NewLevel: 3}, false},
		{"missing field", Criteria{Field: "score", Operator: OpGTE, Value: 0}, events.LevelUp{NewLevel: 3}, false},
		{"unknown operator", Criteria{Field: "streak", Operator: "lt", Value: 9}, events.CorrectAnswer{Streak: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Met(tt.e); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSeedFileParses(t *testing.T) {
	defs, err := LoadDefinitions("../../../configs/achievements.yaml")
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if len(defs) == 0 {
		t.Fatal("seed file is empty")
	}
}

func TestParseDefinitionsRejectsDuplicates(t *testing.T) {
	data := []byte(`
achievements:
  - {type: a, name: A, criteria: {event: correct, field: streak, operator: gte, value: 1}, reward: 1, active: true}
  - {type: a, name: B, criteria: {event: correct, field: streak, operator: gte, value: 2}, reward: 1, active: true}
`)
	if _, err := ParseDefinitions(data); err == nil {
		t.Fatal("expected duplicate type error")
	}
}
