package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/model"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// GreetingAsset имя картинки приветствия в MediaCache
const GreetingAsset = "greeting"

var roomPattern = regexp.MustCompile(`^\s*\d{3}\s*$`)

// JoinRequestEvent заявка на вступление, пришедшая из группы
type JoinRequestEvent struct {
	UserID     int64
	UserChatID int64
	GroupID    int64
	Lang       string
	Username   string
	Fullname   string
}

// JoinService диалог вступления: приветствие, анкета, отправка на модерацию
type JoinService struct {
	deps   *Deps
	codec  *fsm.Codec
	logger *zap.Logger
}

// NewJoinService создаёт сервис диалога вступления
func NewJoinService(deps *Deps) *JoinService {
	return &JoinService{
		deps:   deps,
		codec:  NewCodec(),
		logger: deps.Logger.Named("join"),
	}
}

// Codec кодек состояний анкеты, общий с движком и чистильщиком
func (s *JoinService) Codec() *fsm.Codec {
	return s.codec
}

// OnJoinRequest сохраняет заявку, приветствует заявителя в личке и
// запускает анкету. Прежняя заявка пользователя заменяется.
func (s *JoinService) OnJoinRequest(ctx context.Context, ev JoinRequestEvent) error {
	if s.deps.GroupID != 0 && ev.GroupID != s.deps.GroupID {
		s.logger.Info("Join request from unknown group ignored",
			zap.Int64("group_id", ev.GroupID),
			zap.Int64("telegram_id", ev.UserID))
		return nil
	}

	chatID := ev.UserChatID
	if chatID == 0 {
		chatID = ev.UserID
	}

	greetingID := s.greet(ctx, chatID, ev.Lang)

	if _, err := s.deps.Requests.CreateOrReplaceRequest(ctx, ev.UserID, ev.GroupID, greetingID, ev.Lang); err != nil {
		return fmt.Errorf("store join request: %w", err)
	}

	state := GreetingSent{Form: Form{Lang: ev.Lang, GroupID: ev.GroupID, GreetingMessageID: greetingID}}
	if err := fsm.Persist(ctx, s.deps.Store, s.codec, fsm.PrivateKey(s.deps.BotID, ev.UserID), state); err != nil {
		return err
	}

	s.logger.Info("Join request accepted",
		zap.Int64("telegram_id", ev.UserID),
		zap.Int64("group_id", ev.GroupID),
		zap.Int("greeting_message_id", greetingID))
	return nil
}

// greet отправляет приветствие и возвращает id сообщения, 0 при ошибке
func (s *JoinService) greet(ctx context.Context, chatID int64, lang string) int {
	text := s.deps.Text.Get(lang, "join.greeting")
	markup := s.deps.formKeyboard(lang, "btn.start", "btn.cancel")

	if s.deps.Media != nil && s.deps.Media.Has(GreetingAsset) {
		msgID, err := s.deps.Media.Send(ctx, chatID, GreetingAsset, text, markup)
		if err == nil {
			return msgID
		}
		logDelivery(s.logger, "greeting photo", err, zap.Int64("chat_id", chatID))
	}

	msgID, err := s.deps.Messenger.SendText(ctx, chatID, text, markup, 0)
	logDelivery(s.logger, "greeting", err, zap.Int64("chat_id", chatID))
	return msgID
}

// Table таблица переходов анкеты
func (s *JoinService) Table() *fsm.Table {
	isLabel := func(key string) fsm.Predicate {
		return fsm.TextMatches(func(text string) bool { return s.deps.Text.Is(text, key) })
	}
	nonEmpty := func(ev fsm.Event) bool {
		return fsm.AnyText(ev) && strings.TrimSpace(ev.Text) != ""
	}

	return fsm.NewTable().
		OnAny(fsm.AnyOf(fsm.IsCommand("cancel"), isLabel("btn.cancel")), s.cancel).
		On(StateGreetingSent, isLabel("btn.start"), s.start).
		Otherwise(StateGreetingSent, s.reprompt("join.greeting", "btn.start", "btn.cancel")).
		On(StateChoosingRoom, fsm.TextPattern(roomPattern), s.room).
		Otherwise(StateChoosingRoom, s.reprompt("join.bad_room", "btn.cancel")).
		On(StateSelectName, nonEmpty, s.name).
		Otherwise(StateSelectName, s.reprompt("join.empty_name", "btn.cancel")).
		On(StateSelectSurname, nonEmpty, s.surname).
		Otherwise(StateSelectSurname, s.reprompt("join.empty_surname", "btn.cancel")).
		On(StateSendPicture, fsm.HasPhoto, s.picture).
		Otherwise(StateSendPicture, s.reprompt("join.need_picture", "btn.cancel")).
		On(StateWaitingSend, isLabel("btn.send"), s.submit).
		Otherwise(StateWaitingSend, s.reprompt("join.waiting", "btn.send", "btn.cancel"))
}

func (s *JoinService) say(chatID int64, lang, key string, markup models.ReplyMarkup, args ...any) fsm.Action {
	text := s.deps.Text.Get(lang, key, args...)
	return func(ctx context.Context) error {
		_, err := s.deps.Messenger.SendText(ctx, chatID, text, markup, 0)
		return err
	}
}

func (s *JoinService) reprompt(key string, buttons ...string) fsm.Handler {
	return func(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
		lang := formOf(cur).Lang
		return fsm.Stay(s.say(ev.Key.ChatID, lang, key, s.deps.formKeyboard(lang, buttons...))), nil
	}
}

func (s *JoinService) cancel(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
	f := formOf(cur)
	userID := ev.Key.UserID

	if _, err := s.deps.Requests.MarkRequestProcessed(ctx, userID); err != nil {
		return fsm.Transition{}, fmt.Errorf("mark request processed: %w", err)
	}

	s.logger.Info("Join form cancelled",
		zap.Int64("telegram_id", userID),
		zap.String("state", string(cur.Tag())))

	decline := func(ctx context.Context) error {
		if f.GroupID == 0 {
			return nil
		}
		return s.deps.Messenger.DeclineJoinRequest(ctx, f.GroupID, userID)
	}
	return fsm.Goto(fsm.Idle{},
		decline,
		s.say(ev.Key.ChatID, f.Lang, "join.cancelled", messenger.RemoveKeyboard()),
	), nil
}

func (s *JoinService) start(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
	f := formOf(cur)
	return fsm.Goto(ChoosingRoom{Form: f},
		s.say(ev.Key.ChatID, f.Lang, "join.ask_room", s.deps.formKeyboard(f.Lang, "btn.cancel")),
	), nil
}

func (s *JoinService) room(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
	f := formOf(cur)
	room, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil {
		return s.reprompt("join.bad_room", "btn.cancel")(ctx, ev, cur)
	}
	return fsm.Goto(SelectName{Form: f, Room: room},
		s.say(ev.Key.ChatID, f.Lang, "join.ask_name", s.deps.formKeyboard(f.Lang, "btn.cancel")),
	), nil
}

func (s *JoinService) name(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
	st := cur.(SelectName)
	return fsm.Goto(SelectSurname{Form: st.Form, Room: st.Room, Name: strings.TrimSpace(ev.Text)},
		s.say(ev.Key.ChatID, st.Lang, "join.ask_surname", s.deps.formKeyboard(st.Lang, "btn.cancel")),
	), nil
}

func (s *JoinService) surname(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
	st := cur.(SelectSurname)
	return fsm.Goto(SendPicture{Form: st.Form, Room: st.Room, Name: st.Name, Surname: strings.TrimSpace(ev.Text)},
		s.say(ev.Key.ChatID, st.Lang, "join.ask_picture", s.deps.formKeyboard(st.Lang, "btn.cancel")),
	), nil
}

func (s *JoinService) picture(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
	st := cur.(SendPicture)
	next := WaitingSend{Form: st.Form, Room: st.Room, Name: st.Name, Surname: st.Surname, PhotoFileID: ev.PhotoFileID}

	caption := s.deps.Text.Get(st.Lang, "join.preview", st.Room, st.Name, st.Surname)
	markup := s.deps.formKeyboard(st.Lang, "btn.send", "btn.cancel")
	preview := func(ctx context.Context) error {
		_, _, err := s.deps.Messenger.SendPhoto(ctx, ev.Key.ChatID, messenger.PhotoRef{FileID: ev.PhotoFileID}, caption, markup)
		return err
	}
	return fsm.Goto(next, preview), nil
}

// submit сохраняет анкету со статусом moderation и отправляет её администраторам.
// Заявка остаётся необработанной до решения модерации.
func (s *JoinService) submit(ctx context.Context, ev fsm.Event, cur fsm.State) (fsm.Transition, error) {
	st := cur.(WaitingSend)
	userID := ev.Key.UserID

	if _, err := s.deps.Residents.DeleteResidentsByUserID(ctx, userID); err != nil {
		return fsm.Transition{}, fmt.Errorf("delete old residents: %w", err)
	}

	res := &model.Resident{
		UserID:   userID,
		GroupID:  st.GroupID,
		Username: ev.From.Username,
		Fullname: ev.From.Fullname,
		Name:     st.Name,
		Surname:  st.Surname,
		Room:     st.Room,
		Image:    st.PhotoFileID,
		Status:   model.ResidentStatusModeration,
		Lang:     st.Lang,
	}
	id, err := s.deps.Residents.AddResident(ctx, res)
	if err != nil {
		return fsm.Transition{}, fmt.Errorf("add resident: %w", err)
	}
	res.ID = id

	s.logger.Info("Resident submitted for moderation",
		zap.Int64("telegram_id", userID),
		zap.Int64("resident_id", res.ID))

	return fsm.Goto(fsm.Idle{},
		s.notifyAdmins(res, st.GreetingMessageID),
		s.say(ev.Key.ChatID, st.Lang, "join.sent", messenger.RemoveKeyboard()),
	), nil
}

func (s *JoinService) notifyAdmins(res *model.Resident, greetingID int) fsm.Action {
	return func(ctx context.Context) error {
		markup, err := s.deps.moderationKeyboard(Payload{Action: ActionBack, DatabaseID: res.ID, MessageID: greetingID})
		if err != nil {
			return err
		}
		caption := residentCard(s.deps, res)

		msgID, _, err := s.deps.Messenger.SendPhoto(ctx, s.deps.AdminChatID, messenger.PhotoRef{FileID: res.Image}, caption, markup)
		if err != nil {
			// file_id мог устареть: скачиваем и загружаем заново
			s.logger.Warn("Resend resident photo by upload", zap.Int64("resident_id", res.ID), zap.Error(err))
			data, derr := s.deps.Messenger.DownloadFile(ctx, res.Image)
			if derr != nil {
				return fmt.Errorf("notify admins: %w", derr)
			}
			photo := messenger.PhotoRef{Name: fmt.Sprintf("resident_%d.jpg", res.ID), Data: data}
			if msgID, _, err = s.deps.Messenger.SendPhoto(ctx, s.deps.AdminChatID, photo, caption, markup); err != nil {
				return fmt.Errorf("notify admins: %w", err)
			}
		}

		if _, err := s.deps.Residents.UpdateResidentFields(ctx, res.ID, model.ResidentFields{AdminMessageID: &msgID}); err != nil {
			return fmt.Errorf("store admin message id: %w", err)
		}
		return nil
	}
}

// Status описание заявки и анкеты пользователя
func (s *JoinService) Status(ctx context.Context, userID int64, lang string) (string, error) {
	req, err := s.deps.Requests.GetByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get join request: %w", err)
	}
	res, err := s.deps.Residents.GetLatestByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get resident: %w", err)
	}
	if req == nil && res == nil {
		return s.deps.Text.Get(lang, "common.status_none"), nil
	}

	var lines []string
	if req != nil {
		state := s.deps.Text.Get(lang, "common.pending")
		if req.Processed {
			state = s.deps.Text.Get(lang, "common.processed")
		}
		lines = append(lines, s.deps.Text.Get(lang, "common.status_request", req.CreatedAt.Format("02.01.2006 15:04"), state))
	}
	if res != nil {
		lines = append(lines, s.deps.Text.Get(lang, "common.status_resident", s.deps.Text.Get(lang, "status."+string(res.Status))))
	}
	return strings.Join(lines, "\n"), nil
}

func residentCard(d *Deps, res *model.Resident) string {
	who := res.Fullname
	if res.Username != "" {
		who = "@" + res.Username
	}
	return d.Text.Get(d.adminLang(), "moderation.card", res.ID, res.Room, res.Name, res.Surname, who, res.UserID)
}
