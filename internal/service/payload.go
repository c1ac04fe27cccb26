package service

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxPayloadLen ограничение Telegram на callback_data
const MaxPayloadLen = 64

// PayloadPrefix префикс callback_data модерации
const PayloadPrefix = "m:"

// Action шаг модерации, закодированный в кнопке
type Action string

const (
	ActionAccept           Action = "a"  // выбрано "принять", ждём подтверждения
	ActionAcceptConfirm    Action = "ay" // принять окончательно
	ActionRefuse           Action = "r"  // выбрано "отклонить", ждём причину
	ActionRefuseReason     Action = "rr" // выбрана причина, ждём подтверждения
	ActionRefuseWithReason Action = "ry" // отклонить окончательно
	ActionBack             Action = "b"  // вернуться к выбору
)

func (a Action) valid() bool {
	switch a {
	case ActionAccept, ActionAcceptConfirm, ActionRefuse, ActionRefuseReason, ActionRefuseWithReason, ActionBack:
		return true
	}
	return false
}

func (a Action) hasReason() bool {
	return a == ActionRefuseReason || a == ActionRefuseWithReason
}

// IsTerminal проверяет, что действие завершает модерацию
func (a Action) IsTerminal() bool {
	return a == ActionAcceptConfirm || a == ActionRefuseWithReason
}

// Payload состояние модерации целиком в кнопке: ничего не хранится на сервере,
// нажатие обрабатывается и после рестарта.
// MessageID id приветствия в личке заявителя, на него отвечает итоговое уведомление.
type Payload struct {
	Action     Action
	DatabaseID int64
	MessageID  int
	Reason     int
}

// Encode m:<action>:<database_id>:<message_id>[:<reason>]
func (p Payload) Encode() (string, error) {
	if !p.Action.valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
	}

	var sb strings.Builder
	sb.WriteString(PayloadPrefix)
	sb.WriteString(string(p.Action))
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(p.DatabaseID, 10))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(p.MessageID))
	if p.Action.hasReason() {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(p.Reason))
	}

	data := sb.String()
	if len(data) > MaxPayloadLen {
		return "", fmt.Errorf("%w: %d", ErrPayloadTooLong, len(data))
	}
	return data, nil
}

// With копия payload с другим действием
func (p Payload) With(action Action, reason int) Payload {
	p.Action = action
	p.Reason = reason
	return p
}

// IsModerationPayload проверяет префикс callback_data
func IsModerationPayload(data string) bool {
	return strings.HasPrefix(data, PayloadPrefix)
}

// DecodePayload разбирает callback_data модерации
func DecodePayload(data string) (Payload, error) {
	if len(data) > MaxPayloadLen {
		return Payload{}, fmt.Errorf("%w: %d", ErrPayloadTooLong, len(data))
	}
	if !IsModerationPayload(data) {
		return Payload{}, fmt.Errorf("%w: missing prefix", ErrInvalidPayload)
	}

	parts := strings.Split(strings.TrimPrefix(data, PayloadPrefix), ":")
	if len(parts) < 3 {
		return Payload{}, fmt.Errorf("%w: %q", ErrInvalidPayload, data)
	}

	p := Payload{Action: Action(parts[0])}
	if !p.Action.valid() {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownAction, parts[0])
	}

	want := 3
	if p.Action.hasReason() {
		want = 4
	}
	if len(parts) != want {
		return Payload{}, fmt.Errorf("%w: %q", ErrInvalidPayload, data)
	}

	var err error
	if p.DatabaseID, err = strconv.ParseInt(parts[1], 10, 64); err != nil || p.DatabaseID <= 0 {
		return Payload{}, fmt.Errorf("%w: database id %q", ErrInvalidPayload, parts[1])
	}
	if p.MessageID, err = strconv.Atoi(parts[2]); err != nil || p.MessageID < 0 {
		return Payload{}, fmt.Errorf("%w: message id %q", ErrInvalidPayload, parts[2])
	}
	if p.Action.hasReason() {
		if p.Reason, err = strconv.Atoi(parts[3]); err != nil || p.Reason < 0 {
			return Payload{}, fmt.Errorf("%w: reason %q", ErrInvalidPayload, parts[3])
		}
	}

	return p, nil
}
