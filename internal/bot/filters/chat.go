// Package filters decides who may talk to the bot and as whom.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
)

// Access is the outcome of a check.
type Access int

const (
	Deny   Access = iota
	Guest         // plays level 1 without rewards
	Member        // authenticated: progress, rewards, achievements
)

// Caller converts an allowed access into the identity passed to services.
func (a Access) Caller(userID int64) common.Caller {
	if a == Member {
		return common.Member(userID)
	}
	return common.Guest
}

// MemberStore is the part of the members service the filter needs.
type MemberStore interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
	EnsureMember(ctx context.Context, userID int64, p members.Profile) error
}

// API is the part of *tgbotapi.BotAPI the filter needs.
type API interface {
	common.Sender
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

type ChatFilter struct {
	communityChatID int64
	guestsEnabled   bool
	members         MemberStore
	bot             API
}

func NewChatFilter(communityChatID int64, guestsEnabled bool, members MemberStore, bot API) *ChatFilter {
	return &ChatFilter{
		communityChatID: communityChatID,
		guestsEnabled:   guestsEnabled,
		members:         members,
		bot:             bot,
	}
}

// Check resolves access for a user writing in chat.
//
//  1. the community chat: member
//  2. a private chat of a community member: member
//  3. any other private chat: guest, or deny when guests are disabled
//  4. any other group: deny
//
// With COMMUNITY_CHAT_ID unset every private chat is a member.
func (f *ChatFilter) Check(ctx context.Context, chat *tgbotapi.Chat, from *tgbotapi.User) Access {
	if chat == nil || from == nil || from.IsBot {
		return Deny
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   chat.ID,
		"chat_type": chat.Type,
		"user_id":   from.ID,
	})

	if f.communityChatID != 0 && chat.ID == f.communityChatID {
		return Member
	}
	if !chat.IsPrivate() {
		logger.Debug("deny: foreign chat")
		return Deny
	}
	if f.communityChatID == 0 {
		return Member
	}

	isMember, err := f.members.IsMember(ctx, from.ID)
	if err != nil {
		logger.WithError(err).Error("member check failed (db)")
		return Deny
	}
	if isMember {
		return Member
	}

	// unknown to the database: ask Telegram
	cm, err := f.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: f.communityChatID,
			UserID: from.ID,
		},
	})
	if err != nil {
		logger.WithError(err).Warn("member check failed (telegram GetChatMember)")
	} else {
		switch cm.Status {
		case "creator", "administrator", "member", "restricted":
			if err := f.members.EnsureMember(ctx, from.ID, members.ProfileOf(from)); err != nil {
				logger.WithError(err).Warn("failed to backfill member (allowing anyway)")
			}
			logger.WithField("tg_status", cm.Status).Info("allow: telegram member, backfilled")
			return Member
		}
	}

	if f.guestsEnabled {
		return Guest
	}

	logger.Info("deny: not a community member")
	common.SendText(f.bot, chat.ID, "❌ This bot is only for members of the Island Bitcoin community chat")
	return Deny
}
