package messenger

import (
	"context"

	"github.com/go-telegram/bot/models"
)

// PhotoRef фото для отправки: file_id уже загруженного файла или байты для загрузки
type PhotoRef struct {
	FileID string
	Name   string
	Data   []byte
}

// IsUpload проверяет, что фото нужно загружать
func (p PhotoRef) IsUpload() bool {
	return p.FileID == ""
}

// Messenger исходящий транспорт. Все методы best-effort:
// вызывающий логирует ошибку и продолжает.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup, replyTo int) (int, error)
	// SendPhoto возвращает id сообщения и file_id отправленного фото
	SendPhoto(ctx context.Context, chatID int64, photo PhotoRef, caption string, markup models.ReplyMarkup) (int, string, error)
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string, markup *models.InlineKeyboardMarkup) error
	EditReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *models.InlineKeyboardMarkup) error
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	DeclineJoinRequest(ctx context.Context, chatID, userID int64) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
