package fsm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record сохранённая пара (state, data)
type Record struct {
	State string
	Data  json.RawMessage
}

// Store долговременное хранилище FSM-сессий.
// Запись в один ключ из разных потоков: побеждает последний.
type Store interface {
	Get(ctx context.Context, key SessionKey) (Record, error)
	SetState(ctx context.Context, key SessionKey, state string) error
	UpdateData(ctx context.Context, key SessionKey, patch map[string]any) error
	GetValue(ctx context.Context, key SessionKey, field string) (json.RawMessage, bool, error)
	Clear(ctx context.Context, key SessionKey) error
	Save(ctx context.Context, key SessionKey, state string, data json.RawMessage) error
}

// Load читает и декодирует состояние сессии
func Load(ctx context.Context, store Store, codec *Codec, key SessionKey) (State, error) {
	rec, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}
	state, err := codec.Decode(Tag(rec.State), rec.Data)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}
	return state, nil
}

// Persist записывает состояние одной операцией. Idle очищает сессию.
func Persist(ctx context.Context, store Store, codec *Codec, key SessionKey, state State) error {
	if IsIdle(state) {
		if err := store.Clear(ctx, key); err != nil {
			return fmt.Errorf("clear session %s: %w", key, err)
		}
		return nil
	}

	tag, data, err := codec.Encode(state)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, key, string(tag), data); err != nil {
		return fmt.Errorf("save session %s: %w", key, err)
	}
	return nil
}
