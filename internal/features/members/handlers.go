// Package members: handlers.go reacts to users joining the community chat.
package members

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler handles member events.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleNewChatMembers registers every user in a join message.
// Bots are skipped: they never play.
func (h *Handler) HandleNewChatMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		err := h.service.HandleNewMember(ctx, user.ID, ProfileOf(&user))
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Failed to register new member")
		}
	}
}

// ProfileOf copies the profile fields of a Telegram user.
func ProfileOf(u *tgbotapi.User) Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
