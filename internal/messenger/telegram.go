package messenger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Telegram реализация Messenger поверх go-telegram/bot
type Telegram struct {
	bot    *bot.Bot
	client *http.Client
}

var _ Messenger = (*Telegram)(nil)

// NewTelegram создаёт адаптер
func NewTelegram(b *bot.Bot, client *http.Client) *Telegram {
	if client == nil {
		client = http.DefaultClient
	}
	return &Telegram{bot: b, client: client}
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup, replyTo int) (int, error) {
	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{
			MessageID:                replyTo,
			AllowSendingWithoutReply: true,
		}
	}

	msg, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return msg.ID, nil
}

func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, photo PhotoRef, caption string, markup models.ReplyMarkup) (int, string, error) {
	var file models.InputFile
	if photo.IsUpload() {
		file = &models.InputFileUpload{Filename: photo.Name, Data: bytes.NewReader(photo.Data)}
	} else {
		file = &models.InputFileString{Data: photo.FileID}
	}

	msg, err := t.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:      chatID,
		Photo:       file,
		Caption:     caption,
		ReplyMarkup: markup,
	})
	if err != nil {
		return 0, "", fmt.Errorf("send photo to %d: %w", chatID, err)
	}

	fileID := photo.FileID
	if n := len(msg.Photo); n > 0 {
		fileID = msg.Photo[n-1].FileID
	}
	return msg.ID, fileID, nil
}

func (t *Telegram) EditCaption(ctx context.Context, chatID int64, messageID int, caption string, markup *models.InlineKeyboardMarkup) error {
	params := &bot.EditMessageCaptionParams{
		ChatID:    chatID,
		MessageID: messageID,
		Caption:   caption,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	_, err := t.bot.EditMessageCaption(ctx, params)
	if err != nil {
		return fmt.Errorf("edit caption %d/%d: %w", chatID, messageID, err)
	}
	return nil
}

func (t *Telegram) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *models.InlineKeyboardMarkup) error {
	if markup == nil {
		markup = Empty()
	}

	_, err := t.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("edit reply markup %d/%d: %w", chatID, messageID, err)
	}
	return nil
}

func (t *Telegram) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := t.bot.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("approve join request %d in %d: %w", userID, chatID, err)
	}
	return nil
}

func (t *Telegram) DeclineJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := t.bot.DeclineChatJoinRequest(ctx, &bot.DeclineChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("decline join request %d in %d: %w", userID, chatID, err)
	}
	return nil
}

// AnswerCallback убирает часики на кнопке, text показывается всплывающим уведомлением
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := t.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		return fmt.Errorf("answer callback %s: %w", callbackID, err)
	}
	return nil
}

// DownloadFile скачивает файл по file_id
func (t *Telegram) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := t.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}
