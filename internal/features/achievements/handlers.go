// Package achievements: handlers.go renders /achievements and sends
// unlock notifications.
package achievements

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/events"
)

// Handler handles achievement commands.
type Handler struct {
	engine *Engine
	bot    common.Sender
}

func NewHandler(engine *Engine, bot common.Sender) *Handler {
	return &Handler{engine: engine, bot: bot}
}

// HandleAchievements lists every active achievement with its state.
func (h *Handler) HandleAchievements(ctx context.Context, chatID, userID int64) {
	unlocked, err := h.engine.Unlocked(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to read achievements")
		common.SendText(h.bot, chatID, "❌ Could not read your achievements")
		return
	}
	common.SendText(h.bot, chatID, FormatAchievements(h.engine.Definitions(), unlocked))
}

// FormatAchievements renders definitions, unlocked first.
func FormatAchievements(defs []Definition, unlocked []*Unlocked) string {
	if len(defs) == 0 && len(unlocked) == 0 {
		return "🏆 No achievements available yet"
	}

	have := make(map[string]bool, len(unlocked))
	for _, u := range unlocked {
		have[u.Type] = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 Achievements: %d unlocked\n\n", len(unlocked))
	for _, u := range unlocked {
		fmt.Fprintf(&sb, "✅ %s%s\n", u.Name, rewardSuffix(u.Reward))
	}
	for _, d := range defs {
		if have[d.Type] {
			continue
		}
		fmt.Fprintf(&sb, "🔒 %s%s\n", d.Name, rewardSuffix(d.Reward))
		if d.Description != "" {
			fmt.Fprintf(&sb, "    %s\n", d.Description)
		}
	}
	return sb.String()
}

func rewardSuffix(reward int64) string {
	if reward <= 0 {
		return ""
	}
	return " (" + common.FormatSats(reward) + ")"
}

// Notify subscribes a handler that DMs users when they unlock something.
func (h *Handler) Notify(bus *events.Bus) events.SubscriptionID {
	return bus.Subscribe(events.NameAchievementUnlocked, func(ctx context.Context, e events.Event) {
		u, ok := e.(events.AchievementUnlocked)
		if !ok {
			return
		}
		text := fmt.Sprintf("🏆 Achievement unlocked: %s", u.Title)
		if u.Reward > 0 {
			text += "\n" + common.FormatSatsDelta(u.Reward) + " added to your balance"
		}
		common.SendText(h.bot, u.User, text)
	})
}
