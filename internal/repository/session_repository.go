package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/repository/base"
)

// SessionRepository хранит FSM-сессии в таблице fsm_sessions.
// Каждая операция один запрос, блокировок нет.
type SessionRepository struct {
	*base.Repository
}

var _ fsm.Store = (*SessionRepository)(nil)

func NewSessionRepository(db base.DB) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(db)}
}

// Get получает состояние и данные сессии
func (r *SessionRepository) Get(ctx context.Context, key fsm.SessionKey) (fsm.Record, error) {
	query := `
		SELECT state, data
		FROM fsm_sessions
		WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3
	`

	var (
		state string
		data  []byte
	)
	err := r.DB().QueryRow(ctx, query, key.BotID, key.ChatID, key.UserID).Scan(&state, &data)
	if err != nil {
		if base.IsNotFound(err) {
			return fsm.Record{Data: json.RawMessage("{}")}, nil
		}
		return fsm.Record{}, fmt.Errorf("get session: %w", err)
	}

	return fsm.Record{State: state, Data: data}, nil
}

// SetState устанавливает состояние, пустое состояние удаляет сессию
func (r *SessionRepository) SetState(ctx context.Context, key fsm.SessionKey, state string) error {
	if state == string(fsm.None) {
		return r.Clear(ctx, key)
	}

	query := `
		INSERT INTO fsm_sessions (bot_id, chat_id, user_id, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bot_id, chat_id, user_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
	`

	if _, err := r.DB().Exec(ctx, query, key.BotID, key.ChatID, key.UserID, state); err != nil {
		return fmt.Errorf("set session state: %w", err)
	}
	return nil
}

// UpdateData дописывает поля в данные сессии
func (r *SessionRepository) UpdateData(ctx context.Context, key fsm.SessionKey, patch map[string]any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal session patch: %w", err)
	}

	query := `
		INSERT INTO fsm_sessions (bot_id, chat_id, user_id, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (bot_id, chat_id, user_id)
		DO UPDATE SET data = fsm_sessions.data || EXCLUDED.data, updated_at = NOW()
	`

	if _, err := r.DB().Exec(ctx, query, key.BotID, key.ChatID, key.UserID, string(data)); err != nil {
		return fmt.Errorf("update session data: %w", err)
	}
	return nil
}

// GetValue получает одно поле данных сессии
func (r *SessionRepository) GetValue(ctx context.Context, key fsm.SessionKey, field string) (json.RawMessage, bool, error) {
	query := `
		SELECT data -> $4::text
		FROM fsm_sessions
		WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3
	`

	var raw []byte
	err := r.DB().QueryRow(ctx, query, key.BotID, key.ChatID, key.UserID, field).Scan(&raw)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get session value: %w", err)
	}
	if raw == nil {
		return nil, false, nil
	}

	return raw, true, nil
}

// Clear удаляет сессию
func (r *SessionRepository) Clear(ctx context.Context, key fsm.SessionKey) error {
	query := `DELETE FROM fsm_sessions WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3`

	if _, err := r.DB().Exec(ctx, query, key.BotID, key.ChatID, key.UserID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Save заменяет состояние и данные сессии одним запросом
func (r *SessionRepository) Save(ctx context.Context, key fsm.SessionKey, state string, data json.RawMessage) error {
	if state == string(fsm.None) {
		return r.Clear(ctx, key)
	}

	query := `
		INSERT INTO fsm_sessions (bot_id, chat_id, user_id, state, data)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (bot_id, chat_id, user_id)
		DO UPDATE SET state = EXCLUDED.state, data = EXCLUDED.data, updated_at = NOW()
	`

	if _, err := r.DB().Exec(ctx, query, key.BotID, key.ChatID, key.UserID, state, string(data)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
