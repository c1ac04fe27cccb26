package handlers

import (
	"strings"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/service"
	"github.com/go-telegram/bot/models"
)

// IsPrivateMessage матчер личных сообщений от пользователя
func IsPrivateMessage(update *models.Update) bool {
	return update.Message != nil &&
		update.Message.From != nil &&
		update.Message.Chat.Type == models.ChatTypePrivate
}

// IsJoinRequest матчер заявок на вступление
func IsJoinRequest(update *models.Update) bool {
	return update.ChatJoinRequest != nil
}

// EventFromMessage переводит личное сообщение в событие FSM
func EventFromMessage(botID int64, msg *models.Message, lang string) (fsm.Event, bool) {
	if msg == nil || msg.From == nil {
		return fsm.Event{}, false
	}

	ev := fsm.Event{
		Key: fsm.KeyFor(botID, msg.Chat.ID, msg.From.ID),
		From: fsm.User{
			ID:       msg.From.ID,
			Username: msg.From.Username,
			Fullname: fullName(msg.From.FirstName, msg.From.LastName),
		},
		Text:      msg.Text,
		Command:   parseCommand(msg.Text),
		Lang:      lang,
		MessageID: msg.ID,
	}
	// Самый крупный размер идёт последним
	if n := len(msg.Photo); n > 0 {
		ev.PhotoFileID = msg.Photo[n-1].FileID
	}

	if ev.Text == "" && ev.PhotoFileID == "" {
		return fsm.Event{}, false
	}
	return ev, true
}

// JoinRequestFromUpdate достаёт заявку на вступление из апдейта
func JoinRequestFromUpdate(update *models.Update, lang func(code string) string) (service.JoinRequestEvent, bool) {
	req := update.ChatJoinRequest
	if req == nil {
		return service.JoinRequestEvent{}, false
	}
	return service.JoinRequestEvent{
		UserID:     req.From.ID,
		UserChatID: req.UserChatID,
		GroupID:    req.Chat.ID,
		Lang:       lang(req.From.LanguageCode),
		Username:   req.From.Username,
		Fullname:   fullName(req.From.FirstName, req.From.LastName),
	}, true
}

// parseCommand "/start@dorm_bot arg" -> "start"
func parseCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text[1:])
	if len(cmd) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(cmd[0], "@")
	return strings.ToLower(name)
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
