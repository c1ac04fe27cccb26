package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/model"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Localizer непрозрачный справочник строк
type Localizer interface {
	Get(lang, key string, args ...any) string
	Is(text, key string) bool
}

// JoinRequestRepository хранилище заявок на вступление
type JoinRequestRepository interface {
	CreateOrReplaceRequest(ctx context.Context, userID, groupID int64, greetingMsgID int, lang string) (*model.JoinRequest, error)
	MarkRequestProcessed(ctx context.Context, userID int64) (bool, error)
	GetByUserID(ctx context.Context, userID int64) (*model.JoinRequest, error)
}

// ResidentRepository хранилище анкет
type ResidentRepository interface {
	AddResident(ctx context.Context, res *model.Resident) (int64, error)
	GetResidentByID(ctx context.Context, id int64) (*model.Resident, error)
	GetLatestByUserID(ctx context.Context, userID int64) (*model.Resident, error)
	UpdateResidentFields(ctx context.Context, id int64, fields model.ResidentFields) (*model.Resident, error)
	DeleteResidentsByUserID(ctx context.Context, userID int64) (int64, error)
}

// MediaSender отправка картинок по логическому имени
type MediaSender interface {
	Has(asset string) bool
	Send(ctx context.Context, chatID int64, asset, caption string, markup models.ReplyMarkup) (int, error)
}

// DecisionObserver получает решения модерации
type DecisionObserver interface {
	ObserveDecision(decision string)
}

// Deps зависимости сценариев. Создаётся один раз при старте и передаётся
// в конструкторы сервисов.
type Deps struct {
	BotID         int64
	GroupID       int64 // 0: заявки принимаются из любой группы
	AdminChatID   int64
	AdminLang     string
	RefuseReasons []string

	Messenger messenger.Messenger
	Media     MediaSender
	Text      Localizer
	Store     fsm.Store
	Requests  JoinRequestRepository
	Residents ResidentRepository
	Observer  DecisionObserver
	Logger    *zap.Logger
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) adminLang() string {
	if d.AdminLang != "" {
		return d.AdminLang
	}
	return "ru"
}

// logDelivery логирует ошибку доставки. Доставка best-effort,
// сохранённое состояние не откатывается.
func logDelivery(logger *zap.Logger, op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	logger.Warn("Delivery failed", append(fields, zap.String("op", op), zap.Error(err))...)
}
