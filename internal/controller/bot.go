package controller

import (
	"context"

	"github.com/Freeeeeet/dorm_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/dorm_bot/internal/controller/handlers"
	"github.com/Freeeeeet/dorm_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	cmdHandlers *handlers.Handlers,
	callbackHandler *callbacks.Handler,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// Заявки на вступление в группу
	c.bot.RegisterHandlerMatchFunc(handlers.IsJoinRequest, c.handlers.HandleJoinRequest)

	// Команды, ввод анкеты и фото в личке
	c.bot.RegisterHandlerMatchFunc(handlers.IsPrivateMessage, c.handlers.HandlePrivateMessage)

	// Кнопки модерации
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, service.PayloadPrefix, bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начало"},
		{Command: "help", Description: "❓ Справка"},
		{Command: "status", Description: "📋 Статус заявки"},
		{Command: "cancel", Description: "❌ Отменить анкету"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
		Scope:    &models.BotCommandScopeAllPrivateChats{},
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает long polling до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
