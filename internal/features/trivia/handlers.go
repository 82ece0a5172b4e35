// Package trivia: handlers.go drives sessions from chat: /trivia,
// /session, /progress and the inline answer buttons.
package trivia

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/questions"
)

// answerPrefix marks answer buttons. Telegram caps callback data at 64
// bytes, so buttons carry the question's position, not its id:
//
//	ans:<session uuid>:<question index>:<option>
const answerPrefix = "ans"

// AnswerData builds the callback payload of one option button.
func AnswerData(sessionID string, index, option int) string {
	return fmt.Sprintf("%s:%s:%d:%d", answerPrefix, sessionID, index, option)
}

// ParseAnswerData is the inverse of AnswerData.
func ParseAnswerData(data string) (sessionID string, index, option int, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 || parts[0] != answerPrefix || parts[1] == "" {
		return "", 0, 0, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 {
		return "", 0, 0, false
	}
	option, err = strconv.Atoi(parts[3])
	if err != nil || option < 0 {
		return "", 0, 0, false
	}
	return parts[1], index, option, true
}

// IsAnswerData reports whether a callback belongs to this package.
func IsAnswerData(data string) bool {
	return strings.HasPrefix(data, answerPrefix+":")
}

type Handler struct {
	service *Service
	bot     common.Sender
}

func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleTrivia starts a session. Without an argument members play their
// current level and guests play level 1.
func (h *Handler) HandleTrivia(ctx context.Context, chatID int64, caller common.Caller, args []string) {
	level := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			common.SendText(h.bot, chatID, "Usage: /trivia [level]")
			return
		}
		level = n
	} else if !caller.IsGuest() {
		p, err := h.service.GetProgress(ctx, caller.UserID)
		if err != nil {
			h.fail(chatID, caller, "read progress", err)
			return
		}
		level = p.CurrentLevel
	}

	res, err := h.service.StartSession(ctx, caller, level)
	if err != nil {
		h.fail(chatID, caller, "start session", err)
		return
	}

	minutes := int(res.TTL.Round(time.Minute).Minutes())
	common.SendText(h.bot, chatID, fmt.Sprintf(
		"🎯 Level %d: %d questions, %d minutes. Good luck!",
		res.Level, len(res.Questions), minutes,
	))
	h.sendQuestion(chatID, res.SessionID, 0, len(res.Questions), res.Questions[0])
}

// HandleSession shows the caller's active session and re-sends its
// next question.
func (h *Handler) HandleSession(ctx context.Context, chatID int64, caller common.Caller) {
	sess, err := h.service.ActiveSession(ctx, caller)
	if err != nil {
		h.fail(chatID, caller, "read active session", err)
		return
	}
	if sess == nil {
		common.SendText(h.bot, chatID, "No active session. Start one with /trivia")
		return
	}

	common.SendText(h.bot, chatID, fmt.Sprintf(
		"🎯 Level %d: %d/%d answered, %d correct",
		sess.Level, len(sess.Answers), len(sess.QuestionIDs), sess.Score(),
	))
	if next, ok := sess.NextQuestion(); ok {
		h.sendByID(chatID, sess, next)
	}
}

// HandleProgress replies with the caller's lifetime progress.
func (h *Handler) HandleProgress(ctx context.Context, chatID int64, caller common.Caller) {
	p, err := h.service.GetProgress(ctx, caller.UserID)
	if err != nil {
		h.fail(chatID, caller, "read progress", err)
		return
	}
	common.SendText(h.bot, chatID, FormatProgress(p, h.service.MaxLevel()))
}

// HandleCallback records the answer behind a pressed button.
func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, caller common.Caller) {
	sessionID, index, option, ok := ParseAnswerData(cq.Data)
	if !ok {
		h.alert(cq.ID, "Unknown button")
		return
	}

	sess, err := h.service.GetSession(ctx, caller, sessionID)
	if err != nil {
		h.alertErr(cq.ID, caller, err)
		return
	}
	if index >= len(sess.QuestionIDs) {
		h.alertErr(cq.ID, caller, common.ErrQuestionNotInSession)
		return
	}
	questionID := sess.QuestionIDs[index]

	res, err := h.service.SubmitAnswer(ctx, caller, sessionID, questionID, option)
	if err != nil {
		h.alertErr(cq.ID, caller, err)
		return
	}

	if res.Correct {
		h.alert(cq.ID, "✅ Correct!")
	} else {
		h.alert(cq.ID, "❌ Wrong")
	}

	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	q, err := h.service.PublicQuestion(questionID)
	if err == nil {
		edit := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID,
			cq.Message.Text+"\n\n"+FormatAnswer(res, q))
		if _, err := h.bot.Send(edit); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Debug("Failed to edit question message")
		}
	}

	if res.LevelUnlocked {
		common.SendText(h.bot, chatID, fmt.Sprintf("🔓 Level %d unlocked!", res.NewLevel))
	}
	if res.SessionCompleted {
		common.SendText(h.bot, chatID, FormatSummary(res))
		return
	}

	for i, id := range sess.QuestionIDs {
		if id != questionID && !sess.Answered(id) {
			h.sendIndexed(chatID, sess, i)
			return
		}
	}
}

func (h *Handler) sendByID(chatID int64, sess *Session, questionID string) {
	if i := sess.QuestionIndex(questionID); i >= 0 {
		h.sendIndexed(chatID, sess, i)
	}
}

func (h *Handler) sendIndexed(chatID int64, sess *Session, index int) {
	q, err := h.service.PublicQuestion(sess.QuestionIDs[index])
	if err != nil {
		log.WithError(err).WithField("session_id", sess.ID).Error("Question missing from bank")
		return
	}
	h.sendQuestion(chatID, sess.ID, index, len(sess.QuestionIDs), q)
}

func (h *Handler) sendQuestion(chatID int64, sessionID string, index, total int, q questions.Public) {
	rows := make([][]tgbotapi.InlineKeyboardButton, len(q.Options))
	for i, opt := range q.Options {
		rows[i] = tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt, AnswerData(sessionID, index, i)),
		)
	}

	msg := tgbotapi.NewMessage(chatID, FormatQuestion(q, index, total))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Failed to send question")
	}
}

func (h *Handler) alert(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.WithError(err).Debug("Failed to answer callback")
	}
}

func (h *Handler) alertErr(callbackID string, caller common.Caller, err error) {
	if common.KindOf(err) == common.KindUnknown {
		log.WithError(err).WithField("user_id", caller.UserID).Error("Failed to submit answer")
	}
	h.alert(callbackID, common.UserMessage(err))
}

func (h *Handler) fail(chatID int64, caller common.Caller, op string, err error) {
	if common.KindOf(err) == common.KindUnknown {
		log.WithError(err).WithFields(log.Fields{
			"user_id": caller.UserID,
			"op":      op,
		}).Error("Trivia request failed")
	}
	text := common.UserMessage(err)
	if errors.Is(err, common.ErrActiveSessionExists) {
		text += "\nUse /session to continue it"
	}
	common.SendText(h.bot, chatID, text)
}

// FormatQuestion renders a question header and prompt.
//
//	❓ Question 2/5 · medium
//
//	What is the smallest unit of bitcoin called?
func FormatQuestion(q questions.Public, index, total int) string {
	return fmt.Sprintf("❓ Question %d/%d · %s\n\n%s", index+1, total, q.Difficulty, q.Prompt)
}

// FormatAnswer renders the verdict appended to an answered question.
func FormatAnswer(res *AnswerResult, q questions.Public) string {
	var sb strings.Builder
	if res.Correct {
		sb.WriteString("✅ Correct")
		if res.SatsEarned > 0 {
			fmt.Fprintf(&sb, " · %s", common.FormatSatsDelta(res.SatsEarned))
		}
		if res.Streak > 1 {
			fmt.Fprintf(&sb, " · 🔥 %d in a row", res.Streak)
		}
	} else {
		sb.WriteString("❌ Wrong")
		if res.CorrectOption >= 0 && res.CorrectOption < len(q.Options) {
			fmt.Fprintf(&sb, ", the answer was: %s", q.Options[res.CorrectOption])
		}
	}
	if res.Explanation != "" {
		sb.WriteString("\n💡 " + res.Explanation)
	}
	return sb.String()
}

// FormatSummary renders the end of a session.
func FormatSummary(res *AnswerResult) string {
	text := fmt.Sprintf("🏁 Session complete: %d/%d correct", res.Score, res.Total)
	if res.Total > 0 && res.Score == res.Total {
		text += " 🎉"
	}
	return text + "\nPlay again with /trivia"
}

// FormatProgress renders lifetime stats.
func FormatProgress(p *Progress, maxLevel int) string {
	var sb strings.Builder
	if p.LevelCompleted && p.CurrentLevel >= maxLevel {
		fmt.Fprintf(&sb, "🏆 All %d levels complete\n", maxLevel)
	} else {
		fmt.Fprintf(&sb, "🎯 Level %d of %d\n", p.CurrentLevel, maxLevel)
	}
	fmt.Fprintf(&sb, "✅ Correct answers: %s\n", common.FormatNumber(int64(p.CorrectCount)))
	fmt.Fprintf(&sb, "🔥 Streak: %d (best %d)\n", p.Streak, p.BestStreak)
	fmt.Fprintf(&sb, "💰 Earned from trivia: %s", common.FormatSats(p.SatsEarned))
	return sb.String()
}
