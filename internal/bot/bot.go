// Package bot is the Telegram transport: it polls updates, resolves who
// is talking and routes commands and button presses to the features.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/bot/filters"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/bot/middleware"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/config"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/achievements"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/admin"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/trivia"
)

const helpText = `🏝 Island Bitcoin trivia

/trivia [level] start a session (5 questions, 30 minutes)
/session continue your active session
/progress your level, streak and trivia earnings
/balance your sats balance
/history your last payouts
/achievements unlocked and locked achievements

Not in the community chat? You can still play level 1 as a guest, without rewards.`

// Bot ties the Telegram API to the feature handlers.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	memberService *members.Service
	memberHandler *members.Handler
	ledgerHandler *ledger.Handler
	triviaHandler *trivia.Handler
	achvHandler   *achievements.Handler
	adminHandler  *admin.Handler

	parser *CommandParser

	// bounds the number of updates handled in parallel
	inflight chan struct{}
}

func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	memberService *members.Service,
	memberHandler *members.Handler,
	ledgerHandler *ledger.Handler,
	triviaHandler *trivia.Handler,
	achvHandler *achievements.Handler,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	limiter := middleware.NewRateLimiter(
		middleware.Limit{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow},
		middleware.Limit{Requests: cfg.RateLimitAnswerRequests, Window: cfg.RateLimitWindow},
	)

	return &Bot{
		api:           api,
		cfg:           cfg,
		chatFilter:    chatFilter,
		rateLimiter:   limiter,
		memberService: memberService,
		memberHandler: memberHandler,
		ledgerHandler: ledgerHandler,
		triviaHandler: triviaHandler,
		achvHandler:   achvHandler,
		adminHandler:  adminHandler,
		parser:        NewCommandParser(),
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			log.Info("Bot stopping (ctx done)")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Updates channel closed, bot stopped")
				return
			}

			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}

	if message.NewChatMembers != nil {
		if b.cfg.CommunityChatID != 0 && message.Chat.ID == b.cfg.CommunityChatID {
			b.memberHandler.HandleNewChatMembers(ctx, message.NewChatMembers)
		}
		return
	}

	if message.Text == "" {
		return
	}
	middleware.LogMessage(message)

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	// only commands and private messages (admin dialog) are ours
	if !isCommand && !message.Chat.IsPrivate() {
		return
	}

	access := b.chatFilter.Check(ctx, message.Chat, message.From)
	if access == filters.Deny {
		return
	}

	userID := message.From.ID
	chatID := message.Chat.ID

	if ok, _ := b.rateLimiter.Allow(userID, middleware.Commands); !ok {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	if access == filters.Member {
		if err := b.memberService.EnsureMember(ctx, userID, members.ProfileOf(message.From)); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("EnsureMember failed")
		}
	}

	if message.Chat.IsPrivate() && b.adminHandler.HandleAdminMessage(ctx, chatID, userID, message.Text) {
		return
	}

	if isCommand {
		log.WithFields(log.Fields{
			"cmd":  cmd,
			"args": args,
		}).Debug("routing command")
		b.routeCommand(ctx, chatID, access.Caller(userID), cmd, args)
	}
}

func (b *Bot) routeCommand(ctx context.Context, chatID int64, caller common.Caller, cmd string, args []string) {
	switch cmd {
	case "start", "help":
		common.SendText(b.api, chatID, helpText)

	case "trivia", "play":
		b.triviaHandler.HandleTrivia(ctx, chatID, caller, args)

	case "session":
		b.triviaHandler.HandleSession(ctx, chatID, caller)

	case "progress":
		b.triviaHandler.HandleProgress(ctx, chatID, caller)

	case "balance":
		if b.memberOnly(chatID, caller) {
			b.ledgerHandler.HandleBalance(ctx, chatID, caller.UserID)
		}

	case "history":
		if b.memberOnly(chatID, caller) {
			b.ledgerHandler.HandleHistory(ctx, chatID, caller.UserID)
		}

	case "achievements":
		if !b.cfg.FeatureAchievementsEnabled {
			common.SendText(b.api, chatID, "🏆 Achievements are switched off")
			return
		}
		if b.memberOnly(chatID, caller) {
			b.achvHandler.HandleAchievements(ctx, chatID, caller.UserID)
		}
	}
}

// handleCallback routes inline button presses.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	middleware.LogCallback(cq)
	if cq.From == nil || cq.Message == nil {
		return
	}

	access := b.chatFilter.Check(ctx, cq.Message.Chat, cq.From)
	if access == filters.Deny {
		return
	}
	if ok, wait := b.rateLimiter.Allow(cq.From.ID, middleware.Answers); !ok {
		text := fmt.Sprintf("⏳ Too many taps, try again in %ds", int(wait.Round(time.Second).Seconds()))
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
			log.WithError(err).Debug("Failed to answer callback")
		}
		return
	}

	switch {
	case trivia.IsAnswerData(cq.Data):
		b.triviaHandler.HandleCallback(ctx, cq, access.Caller(cq.From.ID))
	default:
		log.WithField("data", cq.Data).Debug("unknown callback")
	}
}

func (b *Bot) memberOnly(chatID int64, caller common.Caller) bool {
	if caller.IsGuest() {
		common.SendText(b.api, chatID, common.UserMessage(common.ErrGuestNotAllowed)+
			"\nJoin the Island Bitcoin community chat to earn sats")
		return false
	}
	return true
}
