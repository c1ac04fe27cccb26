package model

import "time"

// ResidentStatus статус анкеты жильца
type ResidentStatus string

const (
	ResidentStatusWaiting    ResidentStatus = "waiting"
	ResidentStatusModeration ResidentStatus = "moderation"
	ResidentStatusAccept     ResidentStatus = "accept"
	ResidentStatusRefuse     ResidentStatus = "refuse"
)

// IsFinal проверяет, что решение по анкете уже принято
func (s ResidentStatus) IsFinal() bool {
	return s == ResidentStatusAccept || s == ResidentStatusRefuse
}

// Resident анкета, собранная диалогом вступления
type Resident struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	GroupID         int64          `json:"group_id"`
	Username        string         `json:"username"`
	Fullname        string         `json:"fullname"`
	Name            string         `json:"name"`
	Surname         string         `json:"surname"`
	Room            int            `json:"room"`
	Image           string         `json:"image"` // telegram file_id
	Status          ResidentStatus `json:"status"`
	ProcessedByID   int64          `json:"processed_by_id"`
	ProcessedByName string         `json:"processed_by_name"`
	ProcessedAt     *time.Time     `json:"processed_at"`
	RefuseReason    string         `json:"refuse_reason"`
	AdminMessageID  int            `json:"admin_message_id"`
	CreatedAt       time.Time      `json:"created_at"`
	Lang            string         `json:"lang"`
}

// IsModeration проверяет, что анкета ещё ждёт решения администратора
func (r *Resident) IsModeration() bool {
	return r.Status == ResidentStatusModeration
}

// ResidentFields частичное обновление анкеты, nil поля не трогаются
type ResidentFields struct {
	Status          *ResidentStatus
	ProcessedByID   *int64
	ProcessedByName *string
	ProcessedAt     *time.Time
	RefuseReason    *string
	AdminMessageID  *int

	// OnlyIfStatus ограничивает обновление строками с этим статусом
	OnlyIfStatus *ResidentStatus
}

// IsEmpty проверяет, что обновлять нечего
func (f ResidentFields) IsEmpty() bool {
	return f.Status == nil && f.ProcessedByID == nil && f.ProcessedByName == nil &&
		f.ProcessedAt == nil && f.RefuseReason == nil && f.AdminMessageID == nil
}
