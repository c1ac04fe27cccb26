package fsm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore хранит сессии в памяти процесса. Не переживает рестарт.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[SessionKey]*memorySession
}

type memorySession struct {
	State string
	Data  map[string]json.RawMessage
}

// NewMemoryStore создаёт пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[SessionKey]*memorySession),
	}
}

// Get получает состояние и данные сессии
func (s *MemoryStore) Get(_ context.Context, key SessionKey) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[key]
	if !exists {
		return Record{Data: json.RawMessage("{}")}, nil
	}

	data, err := json.Marshal(sess.Data)
	if err != nil {
		return Record{}, fmt.Errorf("marshal session data: %w", err)
	}
	return Record{State: sess.State, Data: data}, nil
}

// SetState устанавливает состояние, пустое состояние удаляет сессию
func (s *MemoryStore) SetState(_ context.Context, key SessionKey, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == string(None) {
		delete(s.sessions, key)
		return nil
	}
	s.session(key).State = state
	return nil
}

// UpdateData дописывает поля в данные сессии
func (s *MemoryStore) UpdateData(_ context.Context, key SessionKey, patch map[string]any) error {
	encoded := make(map[string]json.RawMessage, len(patch))
	for field, value := range patch {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", field, err)
		}
		encoded[field] = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key)
	for field, raw := range encoded {
		sess.Data[field] = raw
	}
	return nil
}

// GetValue получает одно поле данных сессии
func (s *MemoryStore) GetValue(_ context.Context, key SessionKey, field string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[key]
	if !exists {
		return nil, false, nil
	}
	raw, ok := sess.Data[field]
	return raw, ok, nil
}

// Clear удаляет сессию целиком
func (s *MemoryStore) Clear(_ context.Context, key SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
	return nil
}

// Save заменяет состояние и данные сессии
func (s *MemoryStore) Save(_ context.Context, key SessionKey, state string, data json.RawMessage) error {
	fields := make(map[string]json.RawMessage)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("unmarshal session data: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if state == string(None) {
		delete(s.sessions, key)
		return nil
	}
	s.sessions[key] = &memorySession{State: state, Data: fields}
	return nil
}

// Len количество активных сессий
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// session возвращает запись, создавая её при отсутствии. Вызывать под mu.
func (s *MemoryStore) session(key SessionKey) *memorySession {
	sess, exists := s.sessions[key]
	if !exists {
		sess = &memorySession{Data: make(map[string]json.RawMessage)}
		s.sessions[key] = sess
	}
	return sess
}
