package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/dorm_bot/internal/app"
	"github.com/Freeeeeet/dorm_bot/internal/config"
	"github.com/Freeeeeet/dorm_bot/internal/controller"
	"github.com/Freeeeeet/dorm_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/dorm_bot/internal/controller/common"
	"github.com/Freeeeeet/dorm_bot/internal/controller/handlers"
	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/i18n"
	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/repository"
	"github.com/Freeeeeet/dorm_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator, err := app.NewMigrator(pool, cfg.Database.MigrationsDir, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		return err
	}
	migrator.Close()

	b, err := bot.New(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot identity: %w", err)
	}
	logger.Info("Starting dorm bot",
		zap.String("username", me.Username),
		zap.Int64("bot_id", me.ID),
		zap.String("fsm_storage", cfg.FSM.Storage))

	text, err := i18n.Default()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics, err := app.NewMetrics(registry)
	if err != nil {
		return err
	}

	var store fsm.Store = repository.NewSessionRepository(pool)
	if cfg.FSM.Storage == config.StorageMemory {
		store = fsm.NewMemoryStore()
	}

	tg := messenger.NewTelegram(b, &http.Client{Timeout: 30 * time.Second})
	media, err := messenger.NewMediaCache(tg, cfg.Media.Assets, cfg.Media.CacheSize, logger)
	if err != nil {
		return err
	}

	requests := repository.NewJoinRequestRepository(pool)
	deps := &service.Deps{
		BotID:         me.ID,
		GroupID:       cfg.Chats.Group,
		AdminChatID:   cfg.Chats.Admin,
		AdminLang:     cfg.Moderation.Lang,
		RefuseReasons: cfg.Moderation.RefuseReasons,
		Messenger:     tg,
		Media:         media,
		Text:          text,
		Store:         store,
		Requests:      requests,
		Residents:     repository.NewResidentRepository(pool),
		Observer:      metrics,
		Logger:        logger,
	}

	join := service.NewJoinService(deps)
	moderation := service.NewModerationService(deps)
	engine := fsm.NewEngine(store, join.Codec(), join.Table(), metrics, logger.Named("fsm"))

	reporter := common.NewReporter(tg, text, store, me.ID, cfg.Chats.Debug, logger)
	ctrl := controller.NewBotController(
		b,
		handlers.NewHandlers(me.ID, engine, join, tg, text, reporter, logger),
		callbacks.NewHandler(moderation, tg, text, reporter, cfg.Chats.Admin, cfg.Moderation.Lang, logger),
		logger,
	)
	if err := ctrl.RegisterHandlers(ctx); err != nil {
		// Меню команд не обязательно для работы
		logger.Warn("Bot commands were not set", zap.Error(err))
	}

	sweeper := app.NewSweeper(requests, tg, store, text, metrics, app.SweeperConfig{
		BotID:     me.ID,
		LifeHours: cfg.Requests.LifeHours,
		Interval:  cfg.SweepInterval(),
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Start(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	if cfg.Metrics.Addr != "" {
		srv := app.NewMetricsServer(cfg.Metrics.Addr, registry, logger)
		g.Go(func() error { return srv.Run(gctx) })
	}
	return g.Wait()
}
