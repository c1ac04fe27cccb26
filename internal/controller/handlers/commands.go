package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/dorm_bot/internal/controller/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandlePrivateMessage обрабатывает команды и ввод анкеты в личке
func (h *Handlers) HandlePrivateMessage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	lang := h.text.Lang(msg.From.LanguageCode)
	ev, ok := EventFromMessage(h.botID, msg, lang)
	if !ok {
		return
	}

	switch ev.Command {
	case "start":
		h.sendMessage(ctx, msg.Chat.ID, h.text.Get(lang, "common.welcome"))
		return
	case "help":
		h.sendMessage(ctx, msg.Chat.ID, h.text.Get(lang, "common.help"))
		return
	case "status":
		h.handleStatus(ctx, msg.Chat.ID, msg.From.ID, lang)
		return
	}

	handled, err := h.engine.Dispatch(ctx, ev)
	if err != nil {
		h.reporter.Report(ctx, common.Incident{
			Err:     err,
			ChatID:  msg.Chat.ID,
			UserID:  msg.From.ID,
			Summary: fmt.Sprintf("message %d: %q", msg.ID, msg.Text),
		})
		return
	}
	if !handled {
		// Анкеты нет: подсказываем, что делать
		h.sendMessage(ctx, msg.Chat.ID, h.text.Get(lang, "common.help"))
	}
}

func (h *Handlers) handleStatus(ctx context.Context, chatID, userID int64, lang string) {
	text, err := h.join.Status(ctx, userID, lang)
	if err != nil {
		h.reporter.Report(ctx, common.Incident{Err: err, ChatID: chatID, UserID: userID, Lang: lang, Summary: "/status"})
		return
	}
	h.sendMessage(ctx, chatID, text)
}

// HandleJoinRequest обрабатывает заявку на вступление в группу
func (h *Handlers) HandleJoinRequest(ctx context.Context, _ *bot.Bot, update *models.Update) {
	ev, ok := JoinRequestFromUpdate(update, h.text.Lang)
	if !ok {
		return
	}

	h.logger.Info("Join request received",
		zap.Int64("telegram_id", ev.UserID),
		zap.Int64("group_id", ev.GroupID))

	if err := h.join.OnJoinRequest(ctx, ev); err != nil {
		chatID := ev.UserChatID
		if chatID == 0 {
			chatID = ev.UserID
		}
		h.reporter.Report(ctx, common.Incident{
			Err:     err,
			ChatID:  chatID,
			UserID:  ev.UserID,
			Lang:    ev.Lang,
			Summary: fmt.Sprintf("join request to %d", ev.GroupID),
		})
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.messenger.SendText(ctx, chatID, text, nil, 0); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
