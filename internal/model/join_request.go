package model

import "time"

// JoinRequest заявка на вступление в группу, ожидающая заполнения анкеты или модерации
type JoinRequest struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	GroupID           int64     `json:"group_id"`
	CreatedAt         time.Time `json:"created_at"`
	Processed         bool      `json:"processed"`
	GreetingMessageID int       `json:"greeting_message_id"` // сообщение-приветствие в личке заявителя
	Lang              string    `json:"lang"`
}

// IsExpired проверяет, что заявка не обработана и старше lifetime
func (r *JoinRequest) IsExpired(now time.Time, lifetime time.Duration) bool {
	return !r.Processed && now.Sub(r.CreatedAt) > lifetime
}
