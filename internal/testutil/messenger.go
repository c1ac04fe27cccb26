package testutil

import (
	"context"
	"sync"

	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/go-telegram/bot/models"
)

// Call одна исходящая операция
type Call struct {
	Method    string
	ChatID    int64
	UserID    int64
	MessageID int
	ReplyTo   int
	Text      string
	Photo     messenger.PhotoRef
	Markup    models.ReplyMarkup

	CallbackID string
	Alert      bool
}

// FakeMessenger записывает исходящие операции.
// Fail позволяет вернуть ошибку для метода.
type FakeMessenger struct {
	mu     sync.Mutex
	Calls  []Call
	Fail   map[string]error
	nextID int
}

var _ messenger.Messenger = (*FakeMessenger)(nil)

// NewFakeMessenger создаёт пустой фейк
func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{Fail: make(map[string]error), nextID: 100}
}

func (f *FakeMessenger) record(c Call) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, c)
	if err := f.Fail[c.Method]; err != nil {
		return 0, err
	}
	f.nextID++
	return f.nextID, nil
}

// ByMethod возвращает вызовы указанного метода
func (f *FakeMessenger) ByMethod(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset забывает записанные вызовы
func (f *FakeMessenger) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}

func (f *FakeMessenger) SendText(_ context.Context, chatID int64, text string, markup models.ReplyMarkup, replyTo int) (int, error) {
	return f.record(Call{Method: "SendText", ChatID: chatID, Text: text, Markup: markup, ReplyTo: replyTo})
}

func (f *FakeMessenger) SendPhoto(_ context.Context, chatID int64, photo messenger.PhotoRef, caption string, markup models.ReplyMarkup) (int, string, error) {
	id, err := f.record(Call{Method: "SendPhoto", ChatID: chatID, Photo: photo, Text: caption, Markup: markup})
	if err != nil {
		return 0, "", err
	}
	fileID := photo.FileID
	if photo.IsUpload() {
		fileID = "uploaded-" + photo.Name
	}
	return id, fileID, nil
}

func (f *FakeMessenger) EditCaption(_ context.Context, chatID int64, messageID int, caption string, markup *models.InlineKeyboardMarkup) error {
	_, err := f.record(Call{Method: "EditCaption", ChatID: chatID, MessageID: messageID, Text: caption, Markup: markup})
	return err
}

func (f *FakeMessenger) EditReplyMarkup(_ context.Context, chatID int64, messageID int, markup *models.InlineKeyboardMarkup) error {
	_, err := f.record(Call{Method: "EditReplyMarkup", ChatID: chatID, MessageID: messageID, Markup: markup})
	return err
}

func (f *FakeMessenger) ApproveJoinRequest(_ context.Context, chatID, userID int64) error {
	_, err := f.record(Call{Method: "ApproveJoinRequest", ChatID: chatID, UserID: userID})
	return err
}

func (f *FakeMessenger) DeclineJoinRequest(_ context.Context, chatID, userID int64) error {
	_, err := f.record(Call{Method: "DeclineJoinRequest", ChatID: chatID, UserID: userID})
	return err
}

func (f *FakeMessenger) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	if _, err := f.record(Call{Method: "DownloadFile", Text: fileID}); err != nil {
		return nil, err
	}
	return []byte("image:" + fileID), nil
}

func (f *FakeMessenger) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	_, err := f.record(Call{Method: "AnswerCallback", Text: text, CallbackID: callbackID, Alert: alert})
	return err
}
