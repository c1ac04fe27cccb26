package fsm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownState тег состояния не зарегистрирован в кодеке
var ErrUnknownState = errors.New("unknown session state")

// Tag имя варианта состояния, хранится в StateStore
type Tag string

// None отсутствие активной сессии
const None Tag = ""

// State вариант состояния сессии. Каждый вариант несёт только свои поля.
type State interface {
	Tag() Tag
}

// Idle сессия не активна
type Idle struct{}

func (Idle) Tag() Tag { return None }

// IsIdle проверяет, что состояние пустое
func IsIdle(s State) bool {
	return s == nil || s.Tag() == None
}

// Codec переводит варианты состояния в пару (tag, data) и обратно
type Codec struct {
	decoders map[Tag]func(data []byte) (State, error)
}

// NewCodec создаёт пустой кодек. Idle известен всегда.
func NewCodec() *Codec {
	return &Codec{decoders: make(map[Tag]func([]byte) (State, error))}
}

// Register добавляет вариант S в кодек
func Register[S State](c *Codec) {
	var zero S
	tag := zero.Tag()
	c.decoders[tag] = func(data []byte) (State, error) {
		var s S
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, fmt.Errorf("decode %s: %w", tag, err)
			}
		}
		return s, nil
	}
}

// Encode возвращает тег и JSON данных состояния
func (c *Codec) Encode(s State) (Tag, []byte, error) {
	if IsIdle(s) {
		return None, []byte("{}"), nil
	}
	if _, ok := c.decoders[s.Tag()]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownState, s.Tag())
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", s.Tag(), err)
	}
	return s.Tag(), data, nil
}

// Decode восстанавливает вариант по тегу
func (c *Codec) Decode(tag Tag, data []byte) (State, error) {
	if tag == None {
		return Idle{}, nil
	}
	decode, ok := c.decoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, tag)
	}
	return decode(data)
}

// Equal сравнивает состояния по закодированному виду
func (c *Codec) Equal(a, b State) bool {
	tagA, dataA, errA := c.Encode(a)
	tagB, dataB, errB := c.Encode(b)
	if errA != nil || errB != nil {
		return false
	}
	return tagA == tagB && bytes.Equal(dataA, dataB)
}
