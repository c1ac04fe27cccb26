package fsm

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// User отправитель события
type User struct {
	ID       int64
	Username string
	Fullname string
}

// Event входящее событие пользователя: текст, фото или команда
type Event struct {
	Key         SessionKey
	From        User
	Text        string
	PhotoFileID string
	Command     string // без слэша: "cancel"
	Lang        string
	MessageID   int
}

// Predicate решает, принимает ли маршрут событие
type Predicate func(ev Event) bool

// Action исходящий побочный эффект, выполняется после сохранения состояния
type Action func(ctx context.Context) error

// Transition результат обработчика. Next == nil оставляет состояние,
// Idle{} очищает сессию.
type Transition struct {
	Next    State
	Actions []Action
}

// Stay переход без смены состояния
func Stay(actions ...Action) Transition {
	return Transition{Actions: actions}
}

// Goto переход в новое состояние
func Goto(next State, actions ...Action) Transition {
	return Transition{Next: next, Actions: actions}
}

// Handler вычисляет переход для текущего состояния
type Handler func(ctx context.Context, ev Event, cur State) (Transition, error)

// Route пара (предикат, обработчик)
type Route struct {
	Match  Predicate
	Handle Handler
}

// Table таблица переходов. Global проверяется первым для любого активного
// состояния, Reprompt срабатывает, когда ни один маршрут не подошёл.
type Table struct {
	Global   []Route
	Routes   map[Tag][]Route
	Reprompt map[Tag]Handler
}

// NewTable создаёт пустую таблицу
func NewTable() *Table {
	return &Table{
		Routes:   make(map[Tag][]Route),
		Reprompt: make(map[Tag]Handler),
	}
}

// On добавляет маршрут для состояния
func (t *Table) On(tag Tag, match Predicate, handle Handler) *Table {
	t.Routes[tag] = append(t.Routes[tag], Route{Match: match, Handle: handle})
	return t
}

// OnAny добавляет маршрут для всех активных состояний
func (t *Table) OnAny(match Predicate, handle Handler) *Table {
	t.Global = append(t.Global, Route{Match: match, Handle: handle})
	return t
}

// Otherwise задаёт повторный запрос ввода для состояния
func (t *Table) Otherwise(tag Tag, handle Handler) *Table {
	t.Reprompt[tag] = handle
	return t
}

// States перечисляет состояния, у которых есть маршруты
func (t *Table) States() []Tag {
	tags := make([]Tag, 0, len(t.Routes))
	for tag := range t.Routes {
		tags = append(tags, tag)
	}
	return tags
}

func (t *Table) resolve(ev Event, tag Tag) Handler {
	if tag != None {
		for _, r := range t.Global {
			if r.Match(ev) {
				return r.Handle
			}
		}
	}
	for _, r := range t.Routes[tag] {
		if r.Match(ev) {
			return r.Handle
		}
	}
	return t.Reprompt[tag]
}

// Observer получает уведомления о переходах
type Observer interface {
	ObserveTransition(from, to Tag)
}

// Engine исполняет таблицу переходов над Store
type Engine struct {
	store    Store
	codec    *Codec
	table    *Table
	observer Observer
	logger   *zap.Logger
}

// NewEngine создаёт движок. observer может быть nil.
func NewEngine(store Store, codec *Codec, table *Table, observer Observer, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		codec:    codec,
		table:    table,
		observer: observer,
		logger:   logger,
	}
}

// Dispatch обрабатывает событие. Возвращает false, если для текущего
// состояния нет ни маршрута, ни повторного запроса.
// Ошибка хранилища прерывает обработку до выполнения действий.
func (e *Engine) Dispatch(ctx context.Context, ev Event) (bool, error) {
	cur, err := Load(ctx, e.store, e.codec, ev.Key)
	if err != nil {
		return false, err
	}
	from := cur.Tag()

	handle := e.table.resolve(ev, from)
	if handle == nil {
		return false, nil
	}

	tr, err := handle(ctx, ev, cur)
	if err != nil {
		return true, fmt.Errorf("handle %q: %w", from, err)
	}

	if tr.Next != nil && !e.codec.Equal(cur, tr.Next) {
		if err := Persist(ctx, e.store, e.codec, ev.Key, tr.Next); err != nil {
			return true, err
		}
		to := tr.Next.Tag()
		e.logger.Debug("Session transition",
			zap.String("key", ev.Key.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		if e.observer != nil {
			e.observer.ObserveTransition(from, to)
		}
	}

	e.run(ctx, ev.Key, tr.Actions)
	return true, nil
}

func (e *Engine) run(ctx context.Context, key SessionKey, actions []Action) {
	for _, act := range actions {
		if err := act(ctx); err != nil {
			e.logger.Warn("Outbound action failed",
				zap.String("key", key.String()),
				zap.Error(err))
		}
	}
}

// Stock predicates

// Any принимает любое событие
func Any(Event) bool { return true }

// AnyText принимает непустой текст, не являющийся командой
func AnyText(ev Event) bool {
	return ev.Text != "" && ev.Command == ""
}

// HasPhoto принимает событие с фотографией
func HasPhoto(ev Event) bool {
	return ev.PhotoFileID != ""
}

// IsCommand принимает команду с указанным именем
func IsCommand(name string) Predicate {
	return func(ev Event) bool { return ev.Command == name }
}

// TextIs принимает точное совпадение текста
func TextIs(label string) Predicate {
	return func(ev Event) bool { return ev.Text == label }
}

// TextMatches принимает текст, который опознан как подпись кнопки.
// Подпись сверяется на всех языках, язык события может не совпадать с языком анкеты.
func TextMatches(is func(text string) bool) Predicate {
	return func(ev Event) bool {
		return ev.Text != "" && is(ev.Text)
	}
}

// TextPattern принимает текст, подходящий под регулярное выражение
func TextPattern(re *regexp.Regexp) Predicate {
	return func(ev Event) bool { return re.MatchString(ev.Text) }
}

// AnyOf принимает событие, если подходит хотя бы один предикат
func AnyOf(preds ...Predicate) Predicate {
	return func(ev Event) bool {
		for _, p := range preds {
			if p(ev) {
				return true
			}
		}
		return false
	}
}
