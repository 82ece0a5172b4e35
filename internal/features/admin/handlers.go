// Package admin: handlers.go runs the admin panel in private chat.
// The panel uses a reply keyboard.
// Flow: login → keyboard → pick an action → step-by-step dialog.
package admin

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
)

// Keyboard buttons
const (
	ButtonAward    = "Award sats"
	ButtonWithdraw = "Withdraw sats"
	ButtonLogout   = "Log out"
)

type Handler struct {
	service *Service
	bot     common.Sender
}

func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleAdminMessage handles a private message from an admin.
// It reports false when the message is not for the panel, so regular
// commands keep working for admins.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, userID int64, text string) bool {
	if !h.service.IsAdmin(userID) {
		return false
	}
	text = strings.TrimSpace(text)

	state := h.service.GetState(userID)
	if state != nil && state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, userID, text)
		return true
	}

	if cmd, rest, ok := strings.Cut(text, " "); cmd == "/login" {
		if ok && strings.TrimSpace(rest) != "" {
			h.handlePasswordInput(ctx, chatID, userID, strings.TrimSpace(rest))
			return true
		}
		h.askPassword(chatID, userID)
		return true
	}

	if !h.service.HasActiveSession(ctx, userID) {
		switch strings.ToLower(text) {
		case "admin", "panel", "/admin":
			h.askPassword(chatID, userID)
			return true
		}
		return false
	}

	h.service.Touch(ctx, userID)

	if text == "/cancel" {
		h.service.ClearState(userID)
		h.showKeyboard(chatID, "Cancelled")
		return true
	}

	if state != nil {
		switch state.State {
		case StateAwardTarget:
			h.handleTarget(ctx, chatID, userID, text, StateAwardAmount,
				"Send \"<amount> <category>\" for %s\nCategories: trivia, achievement, referral, stacker-clicker")
			return true
		case StateAwardAmount:
			h.handleAwardAmount(ctx, chatID, userID, state, text)
			return true
		case StateWithdrawTarget:
			h.handleTarget(ctx, chatID, userID, text, StateWithdrawAmount,
				"How many sats to withdraw for %s?")
			return true
		case StateWithdrawAmount:
			h.handleWithdrawAmount(ctx, chatID, userID, state, text)
			return true
		}
	}

	switch strings.ToLower(text) {
	case strings.ToLower(ButtonAward):
		common.SendText(h.bot, chatID, "Who gets the sats? Send @username (/cancel to stop)")
		h.service.SetState(userID, StateAwardTarget, nil)
		return true
	case strings.ToLower(ButtonWithdraw):
		common.SendText(h.bot, chatID, "Whose balance? Send @username (/cancel to stop)")
		h.service.SetState(userID, StateWithdrawTarget, nil)
		return true
	case strings.ToLower(ButtonLogout), "/logout":
		if err := h.service.Logout(ctx, userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Admin logout failed")
		}
		msg := tgbotapi.NewMessage(chatID, "👋 Logged out")
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		if _, err := h.bot.Send(msg); err != nil {
			log.WithError(err).Error("Failed to send logout message")
		}
		return true
	case "admin", "panel", "/admin":
		h.showKeyboard(chatID, "✅ Admin panel")
		return true
	}

	return false
}

func (h *Handler) askPassword(chatID, userID int64) {
	common.SendText(h.bot, chatID, "🔐 Enter the admin password:")
	h.service.SetState(userID, StateAwaitingPassword, nil)
}

func (h *Handler) handlePasswordInput(ctx context.Context, chatID, userID int64, password string) {
	h.service.ClearState(userID)
	if err := h.service.VerifyPassword(ctx, userID, password); err != nil {
		if common.KindOf(err) == common.KindUnknown {
			log.WithError(err).WithField("user_id", userID).Error("Admin login error")
		}
		common.SendText(h.bot, chatID, common.UserMessage(err))
		return
	}
	h.showKeyboard(chatID, "✅ Logged in")
}

func (h *Handler) showKeyboard(chatID int64, text string) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonAward),
			tgbotapi.NewKeyboardButton(ButtonWithdraw),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonLogout),
		),
	)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Failed to send admin keyboard")
	}
}

// handleTarget resolves @username and moves the dialog to next.
func (h *Handler) handleTarget(ctx context.Context, chatID, userID int64, text, next, prompt string) {
	target, err := h.service.ResolveTarget(ctx, text)
	if err != nil {
		common.SendText(h.bot, chatID, common.UserMessage(err)+"\nTry again or /cancel")
		return
	}
	common.SendText(h.bot, chatID, fmt.Sprintf(prompt, "@"+target.Username))
	h.service.SetState(userID, next, target)
}

func (h *Handler) handleAwardAmount(ctx context.Context, chatID, userID int64, state *AdminState, text string) {
	target := state.Data.(*members.Member)

	amount, category, err := ParseAward(text)
	if err != nil {
		common.SendText(h.bot, chatID, common.UserMessage(err)+"\nTry again or /cancel")
		return
	}

	res, err := h.service.Award(ctx, userID, target.UserID, amount, category)
	h.service.ClearState(userID)
	if err != nil {
		h.reportLedgerError(chatID, userID, err)
		return
	}
	common.SendText(h.bot, chatID, fmt.Sprintf("✅ %s → @%s (%s)\n%s",
		common.FormatSatsDelta(amount), target.Username, category, ledger.FormatBalance(&res.Balance)))
}

func (h *Handler) handleWithdrawAmount(ctx context.Context, chatID, userID int64, state *AdminState, text string) {
	target := state.Data.(*members.Member)

	amount, err := ParseAmount(text)
	if err != nil {
		common.SendText(h.bot, chatID, common.UserMessage(err)+"\nTry again or /cancel")
		return
	}

	res, err := h.service.Withdraw(ctx, userID, target.UserID, amount)
	h.service.ClearState(userID)
	if err != nil {
		h.reportLedgerError(chatID, userID, err)
		return
	}
	common.SendText(h.bot, chatID, fmt.Sprintf("✅ %s withdrawal for @%s is pending\n%s",
		common.FormatSats(amount), target.Username, ledger.FormatBalance(&res.Balance)))
}

func (h *Handler) reportLedgerError(chatID, userID int64, err error) {
	if common.KindOf(err) == common.KindUnknown {
		log.WithError(err).WithField("admin_id", userID).Error("Admin ledger operation failed")
	}
	common.SendText(h.bot, chatID, common.UserMessage(err))
}
