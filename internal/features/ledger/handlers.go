// Package ledger: handlers.go answers the /balance and /history commands.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
)

// Handler renders ledger data for chat.
type Handler struct {
	service *Service
	bot     common.Sender
	loc     *time.Location // timezone for history timestamps
}

func NewHandler(service *Service, bot common.Sender, loc *time.Location) *Handler {
	return &Handler{service: service, bot: bot, loc: loc}
}

// HandleBalance replies with the full balance.
//
//	💰 Balance: 2,100 sats
//	⏳ Pending withdrawals: 0 sats
//	📈 Earned: 2,100 sats · 📤 Withdrawn: 0 sats
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	b, err := h.service.GetStats(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to read balance")
		common.SendText(h.bot, chatID, "❌ Could not read your balance")
		return
	}
	common.SendText(h.bot, chatID, FormatBalance(b))
}

// HandleHistory replies with the last payouts.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	entries, err := h.service.History(ctx, userID, DefaultHistoryLimit)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to read history")
		common.SendText(h.bot, chatID, "❌ Could not read your history")
		return
	}
	common.SendText(h.bot, chatID, FormatHistory(entries, h.loc))
}

// FormatBalance renders a balance for chat.
func FormatBalance(b *Balance) string {
	return fmt.Sprintf("💰 Balance: %s\n⏳ Pending withdrawals: %s\n📈 Earned: %s · 📤 Withdrawn: %s",
		common.FormatSats(b.Available),
		common.FormatSats(b.Pending),
		common.FormatSats(b.TotalEarned),
		common.FormatSats(b.TotalWithdrawn),
	)
}

// FormatHistory renders entries one per line, newest first.
func FormatHistory(entries []*Entry, loc *time.Location) string {
	if len(entries) == 0 {
		return "📋 No transactions yet"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Last %d transactions:\n\n", len(entries))
	for i, e := range entries {
		amount := e.Amount
		if e.IsDebit() {
			amount = -amount
		}
		fmt.Fprintf(&sb, "%d. %s | %s | %s (%s)\n",
			i+1,
			common.FormatDateTime(e.CreatedAt, loc),
			common.FormatSatsDelta(amount),
			e.Category,
			e.Status,
		)
	}
	return sb.String()
}
