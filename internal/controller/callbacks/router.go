package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/dorm_bot/internal/controller/common"
	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Moderator применяет решения администраторов
type Moderator interface {
	OnAdminDecision(ctx context.Context, d service.Decision) (service.Outcome, error)
}

// Handler обработчик нажатий на кнопки модерации
type Handler struct {
	moderation  Moderator
	messenger   messenger.Messenger
	text        common.Localizer
	reporter    *common.Reporter
	adminChatID int64
	adminLang   string
	logger      *zap.Logger
}

func NewHandler(moderation Moderator, m messenger.Messenger, text common.Localizer, reporter *common.Reporter, adminChatID int64, adminLang string, logger *zap.Logger) *Handler {
	return &Handler{
		moderation:  moderation,
		messenger:   m,
		text:        text,
		reporter:    reporter,
		adminChatID: adminChatID,
		adminLang:   adminLang,
		logger:      logger.Named("callbacks"),
	}
}

// HandleCallbackQuery обрабатывает callback_data с префиксом модерации.
// На callback отвечаем всегда, иначе у кнопки висят часики.
func (h *Handler) HandleCallbackQuery(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	answer := h.process(ctx, cq)
	if err := h.messenger.AnswerCallback(ctx, cq.ID, answer, answer != ""); err != nil {
		h.logger.Warn("Failed to answer callback", zap.String("callback_id", cq.ID), zap.Error(err))
	}
}

func (h *Handler) process(ctx context.Context, cq *models.CallbackQuery) string {
	chatID, messageID, ok := callbackMessage(cq)
	if !ok {
		return ""
	}
	if chatID != h.adminChatID {
		h.logger.Warn("Moderation callback outside admin chat",
			zap.Int64("chat_id", chatID),
			zap.Int64("telegram_id", cq.From.ID))
		return ""
	}

	payload, err := service.DecodePayload(cq.Data)
	if err != nil {
		h.logger.Debug("Bad moderation payload", zap.String("data", cq.Data), zap.Error(err))
		return ""
	}

	out, err := h.moderation.OnAdminDecision(ctx, service.Decision{
		AdminID:        cq.From.ID,
		AdminName:      adminName(cq.From.Username, cq.From.FirstName, cq.From.LastName),
		ChatID:         chatID,
		AdminMessageID: messageID,
		Payload:        payload,
	})
	if err == nil || service.IsExpected(err) {
		if err != nil {
			h.logger.Debug("Moderation decision rejected", zap.String("data", cq.Data), zap.Error(err))
		}
		return out.Answer
	}

	id := h.reporter.Report(ctx, common.Incident{
		Err:     err,
		UserID:  cq.From.ID,
		Summary: "callback " + cq.Data,
	})
	return h.text.Get(h.adminLang, "common.error", id)
}

// callbackMessage чат и сообщение, к которому привязана кнопка
func callbackMessage(cq *models.CallbackQuery) (int64, int, bool) {
	switch {
	case cq.Message.Message != nil:
		return cq.Message.Message.Chat.ID, cq.Message.Message.ID, true
	case cq.Message.InaccessibleMessage != nil:
		return cq.Message.InaccessibleMessage.Chat.ID, cq.Message.InaccessibleMessage.MessageID, true
	}
	return 0, 0, false
}

func adminName(username, first, last string) string {
	if username != "" {
		return "@" + username
	}
	return strings.TrimSpace(first + " " + last)
}
