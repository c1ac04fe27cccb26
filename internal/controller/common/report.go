package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Localizer строки ответов
type Localizer interface {
	Get(lang, key string, args ...any) string
}

// Incident непредвиденная ошибка при обработке апдейта
type Incident struct {
	Err     error
	ChatID  int64 // 0: пользователю не отвечаем
	UserID  int64
	Lang    string
	Summary string
}

// Reporter сообщает пользователю код ошибки и пересылает подробности в отладочный чат
type Reporter struct {
	messenger   messenger.Messenger
	text        Localizer
	store       fsm.Store
	botID       int64
	debugChatID int64
	logger      *zap.Logger
}

// NewReporter создаёт репортер. debugChatID 0 отключает пересылку.
func NewReporter(m messenger.Messenger, text Localizer, store fsm.Store, botID, debugChatID int64, logger *zap.Logger) *Reporter {
	return &Reporter{
		messenger:   m,
		text:        text,
		store:       store,
		botID:       botID,
		debugChatID: debugChatID,
		logger:      logger.Named("report"),
	}
}

// Report логирует ошибку и возвращает id инцидента.
// Сырой текст ошибки пользователю не показывается.
func (r *Reporter) Report(ctx context.Context, inc Incident) string {
	id := uuid.NewString()

	r.logger.Error("Update handling failed",
		zap.String("incident", id),
		zap.Int64("chat_id", inc.ChatID),
		zap.Int64("telegram_id", inc.UserID),
		zap.String("summary", inc.Summary),
		zap.Error(inc.Err))

	if inc.ChatID != 0 {
		lang := inc.Lang
		if lang == "" {
			lang = r.sessionLang(ctx, inc.UserID)
		}
		if _, err := r.messenger.SendText(ctx, inc.ChatID, r.text.Get(lang, "common.error", id), nil, 0); err != nil {
			r.logger.Warn("Failed to send error reply", zap.String("incident", id), zap.Error(err))
		}
	}

	if r.debugChatID != 0 {
		text := fmt.Sprintf("⚠️ %s\nchat: %d, user: %d\n%s\n\n%v", id, inc.ChatID, inc.UserID, inc.Summary, inc.Err)
		if _, err := r.messenger.SendText(ctx, r.debugChatID, text, nil, 0); err != nil {
			r.logger.Warn("Failed to forward error report", zap.String("incident", id), zap.Error(err))
		}
	}
	return id
}

// sessionLang язык анкеты пользователя, если она есть
func (r *Reporter) sessionLang(ctx context.Context, userID int64) string {
	if r.store == nil || userID == 0 {
		return ""
	}
	raw, ok, err := r.store.GetValue(ctx, fsm.PrivateKey(r.botID, userID), "lang")
	if err != nil || !ok {
		return ""
	}
	var lang string
	if err := json.Unmarshal(raw, &lang); err != nil {
		return ""
	}
	return lang
}
