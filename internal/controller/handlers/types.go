package handlers

import (
	"context"

	"github.com/Freeeeeet/dorm_bot/internal/controller/common"
	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/service"
	"go.uber.org/zap"
)

// Dispatcher исполняет событие над сессией пользователя
type Dispatcher interface {
	Dispatch(ctx context.Context, ev fsm.Event) (bool, error)
}

// JoinFlow сценарий вступления
type JoinFlow interface {
	OnJoinRequest(ctx context.Context, ev service.JoinRequestEvent) error
	Status(ctx context.Context, userID int64, lang string) (string, error)
}

// Localizer строки ответов и выбор языка
type Localizer interface {
	Get(lang, key string, args ...any) string
	Lang(code string) string
}

// Handlers содержит все зависимости для обработки сообщений
type Handlers struct {
	botID     int64
	engine    Dispatcher
	join      JoinFlow
	messenger messenger.Messenger
	text      Localizer
	reporter  *common.Reporter
	logger    *zap.Logger
}

func NewHandlers(
	botID int64,
	engine Dispatcher,
	join JoinFlow,
	m messenger.Messenger,
	text Localizer,
	reporter *common.Reporter,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		botID:     botID,
		engine:    engine,
		join:      join,
		messenger: m,
		text:      text,
		reporter:  reporter,
		logger:    logger.Named("handlers"),
	}
}
