package fsm

import "fmt"

// SessionKey адресует независимую FSM-сессию: бот, чат и пользователь.
// Один пользователь может иметь несколько сессий в разных чатах.
type SessionKey struct {
	BotID  int64
	ChatID int64
	UserID int64
}

// PrivateKey ключ сессии в личном чате пользователя с ботом
func PrivateKey(botID, userID int64) SessionKey {
	return SessionKey{BotID: botID, ChatID: userID, UserID: userID}
}

// KeyFor ключ сессии пользователя в произвольном чате
func KeyFor(botID, chatID, userID int64) SessionKey {
	return SessionKey{BotID: botID, ChatID: chatID, UserID: userID}
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.BotID, k.ChatID, k.UserID)
}
