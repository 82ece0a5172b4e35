package filters

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
)

const community int64 = -100500

type fakeMembers struct {
	known   map[int64]bool
	ensured []int64
}

func (f *fakeMembers) IsMember(ctx context.Context, userID int64) (bool, error) {
	return f.known[userID], nil
}

func (f *fakeMembers) EnsureMember(ctx context.Context, userID int64, p members.Profile) error {
	f.ensured = append(f.ensured, userID)
	return nil
}

type fakeAPI struct {
	status string
	err    error
	sent   int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent++
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return tgbotapi.ChatMember{Status: f.status}, f.err
}

func private(id int64) *tgbotapi.Chat { return &tgbotapi.Chat{ID: id, Type: "private"} }

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		guests  bool
		chat    *tgbotapi.Chat
		from    *tgbotapi.User
		known   bool
		status  string
		apiErr  error
		want    Access
		ensured bool
		denied  bool
	}{
		{name: "community chat", chat: &tgbotapi.Chat{ID: community, Type: "supergroup"}, from: &tgbotapi.User{ID: 1}, want: Member},
		{name: "foreign group", chat: &tgbotapi.Chat{ID: -5, Type: "group"}, from: &tgbotapi.User{ID: 1}, want: Deny},
		{name: "known member in private", chat: private(1), from: &tgbotapi.User{ID: 1}, known: true, want: Member},
		{name: "telegram member is backfilled", chat: private(1), from: &tgbotapi.User{ID: 1}, status: "member", want: Member, ensured: true},
		{name: "stranger plays as guest", guests: true, chat: private(1), from: &tgbotapi.User{ID: 1}, status: "left", want: Guest},
		{name: "stranger denied without guests", chat: private(1), from: &tgbotapi.User{ID: 1}, status: "left", want: Deny, denied: true},
		{name: "telegram error falls back to guest", guests: true, chat: private(1), from: &tgbotapi.User{ID: 1}, apiErr: errors.New("boom"), want: Guest},
		{name: "bots are ignored", chat: private(1), from: &tgbotapi.User{ID: 1, IsBot: true}, want: Deny},
		{name: "no sender", chat: private(1), want: Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMembers{known: map[int64]bool{}}
			if tt.known && tt.from != nil {
				m.known[tt.from.ID] = true
			}
			api := &fakeAPI{status: tt.status, err: tt.apiErr}
			f := NewChatFilter(community, tt.guests, m, api)

			if got := f.Check(context.Background(), tt.chat, tt.from); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if tt.ensured != (len(m.ensured) == 1) {
				t.Fatalf("backfill mismatch: %v", m.ensured)
			}
			if tt.denied != (api.sent == 1) {
				t.Fatalf("deny message mismatch: sent %d", api.sent)
			}
		})
	}
}

func TestCheckWithoutCommunityChat(t *testing.T) {
	f := NewChatFilter(0, false, &fakeMembers{}, &fakeAPI{})
	if got := f.Check(context.Background(), private(9), &tgbotapi.User{ID: 9}); got != Member {
		t.Fatalf("expected Member, got %v", got)
	}
}

func TestAccessCaller(t *testing.T) {
	if c := Member.Caller(7); c.UserID != 7 {
		t.Fatalf("unexpected member caller %+v", c)
	}
	if c := Guest.Caller(7); !c.IsGuest() {
		t.Fatalf("guest access must produce the guest caller, got %+v", c)
	}
}
