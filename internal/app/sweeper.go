package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/model"
	"go.uber.org/zap"
)

// RequestClaimer атомарно забирает просроченные заявки
type RequestClaimer interface {
	PopUnprocessedRequestsOlderThan(ctx context.Context, hours int) ([]*model.JoinRequest, error)
}

// Localizer строки уведомлений
type Localizer interface {
	Get(lang, key string, args ...any) string
}

// ClaimObserver получает число забранных заявок
type ClaimObserver interface {
	ObserveClaimed(n int)
}

// SweeperConfig параметры чистильщика
type SweeperConfig struct {
	BotID     int64
	LifeHours int
	Interval  time.Duration
}

// Sweeper отклоняет заявки, по которым анкета не заполнена вовремя
type Sweeper struct {
	requests  RequestClaimer
	messenger messenger.Messenger
	store     fsm.Store
	text      Localizer
	observer  ClaimObserver
	cfg       SweeperConfig
	logger    *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewSweeper создаёт чистильщик. observer может быть nil.
func NewSweeper(requests RequestClaimer, m messenger.Messenger, store fsm.Store, text Localizer, observer ClaimObserver, cfg SweeperConfig, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		requests:  requests,
		messenger: m,
		store:     store,
		text:      text,
		observer:  observer,
		cfg:       cfg,
		logger:    logger.Named("sweeper"),
		stopChan:  make(chan struct{}),
	}
}

// Run выполняет проход сразу и затем через Interval после окончания каждого прохода
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Starting expiry sweeper",
		zap.Int("life_hours", s.cfg.LifeHours),
		zap.Duration("interval", s.cfg.Interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Sweep failed", zap.Error(err))
			}
			timer.Reset(s.cfg.Interval)
		case <-s.stopChan:
			s.logger.Info("Expiry sweeper stopped")
			return nil
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper cancelled")
			return nil
		}
	}
}

// Stop останавливает Run
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Sweep забирает просроченные заявки и отклоняет их.
// Заявка помечается обработанной до уведомлений, повторный проход её не увидит.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	claimed, err := s.requests.PopUnprocessedRequestsOlderThan(ctx, s.cfg.LifeHours)
	if err != nil {
		return 0, fmt.Errorf("claim expired requests: %w", err)
	}
	if s.observer != nil {
		s.observer.ObserveClaimed(len(claimed))
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	for _, req := range claimed {
		fields := []zap.Field{zap.Int64("telegram_id", req.UserID), zap.Int64("group_id", req.GroupID)}

		if req.GroupID != 0 {
			if err := s.messenger.DeclineJoinRequest(ctx, req.GroupID, req.UserID); err != nil {
				s.logger.Warn("Failed to decline expired request", append(fields, zap.Error(err))...)
			}
		}
		if _, err := s.messenger.SendText(ctx, req.UserID, s.text.Get(req.Lang, "join.expired"), messenger.RemoveKeyboard(), req.GreetingMessageID); err != nil {
			s.logger.Warn("Failed to notify about expired request", append(fields, zap.Error(err))...)
		}
		if err := s.store.Clear(ctx, fsm.PrivateKey(s.cfg.BotID, req.UserID)); err != nil {
			s.logger.Error("Failed to clear expired session", append(fields, zap.Error(err))...)
		}
	}

	s.logger.Info("Expired requests declined", zap.Int("count", len(claimed)))
	return len(claimed), nil
}
