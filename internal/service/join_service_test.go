package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/Freeeeeet/dorm_bot/internal/i18n"
	"github.com/Freeeeeet/dorm_bot/internal/model"
	"github.com/Freeeeeet/dorm_bot/internal/service"
	"github.com/Freeeeeet/dorm_bot/internal/testutil"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testBotID   int64 = 1
	testGroupID int64 = -100
	testAdminID int64 = -500
	testUserID  int64 = 42
)

type fixture struct {
	deps      *service.Deps
	join      *service.JoinService
	engine    *fsm.Engine
	store     *fsm.MemoryStore
	msgr      *testutil.FakeMessenger
	requests  *testutil.MockJoinRequestRepository
	residents *testutil.MockResidentRepository
	text      *i18n.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	text, err := i18n.Default()
	require.NoError(t, err)

	f := &fixture{
		store:     fsm.NewMemoryStore(),
		msgr:      testutil.NewFakeMessenger(),
		requests:  &testutil.MockJoinRequestRepository{},
		residents: &testutil.MockResidentRepository{},
		text:      text,
	}
	f.deps = &service.Deps{
		BotID:         testBotID,
		GroupID:       testGroupID,
		AdminChatID:   testAdminID,
		RefuseReasons: []string{"Нет в списках", "Фото нечитаемо"},
		Messenger:     f.msgr,
		Text:          text,
		Store:         f.store,
		Requests:      f.requests,
		Residents:     f.residents,
		Logger:        testutil.NewTestLogger(),
		Now:           func() time.Time { return time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC) },
	}
	f.join = service.NewJoinService(f.deps)
	f.engine = fsm.NewEngine(f.store, f.join.Codec(), f.join.Table(), nil, testutil.NewTestLogger())
	return f
}

func (f *fixture) key() fsm.SessionKey {
	return fsm.PrivateKey(testBotID, testUserID)
}

func (f *fixture) seed(t *testing.T, s fsm.State) {
	t.Helper()
	require.NoError(t, fsm.Persist(context.Background(), f.store, f.join.Codec(), f.key(), s))
}

func (f *fixture) state(t *testing.T) fsm.State {
	t.Helper()
	s, err := fsm.Load(context.Background(), f.store, f.join.Codec(), f.key())
	require.NoError(t, err)
	return s
}

func (f *fixture) send(t *testing.T, ev fsm.Event) bool {
	t.Helper()
	ev.Key = f.key()
	ev.From = fsm.User{ID: testUserID, Username: "ivan", Fullname: "Ivan Petrov"}
	handled, err := f.engine.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	return handled
}

func callbackData(t *testing.T, markup models.ReplyMarkup) [][]string {
	t.Helper()
	kb, ok := markup.(*models.InlineKeyboardMarkup)
	require.True(t, ok, "inline keyboard expected, got %T", markup)
	var out [][]string
	for _, row := range kb.InlineKeyboard {
		var data []string
		for _, b := range row {
			data = append(data, b.CallbackData)
		}
		out = append(out, data)
	}
	return out
}

func TestJoinService_FullForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.requests.On("CreateOrReplaceRequest", mock.Anything, testUserID, testGroupID, 101, "ru").
		Return(&model.JoinRequest{ID: 1, UserID: testUserID, GroupID: testGroupID, GreetingMessageID: 101}, nil).Once()

	err := f.join.OnJoinRequest(ctx, service.JoinRequestEvent{
		UserID: testUserID, UserChatID: testUserID, GroupID: testGroupID, Lang: "ru",
	})
	require.NoError(t, err)

	greeting := f.msgr.ByMethod("SendText")
	require.Len(t, greeting, 1)
	assert.Equal(t, testUserID, greeting[0].ChatID)
	assert.Equal(t, f.text.Get("ru", "join.greeting"), greeting[0].Text)

	want := service.GreetingSent{Form: service.Form{Lang: "ru", GroupID: testGroupID, GreetingMessageID: 101}}
	assert.Equal(t, want, f.state(t))

	assert.True(t, f.send(t, fsm.Event{Text: "✅Начать"}))
	assert.Equal(t, service.StateChoosingRoom, f.state(t).Tag())

	assert.True(t, f.send(t, fsm.Event{Text: "205"}))
	assert.Equal(t, service.SelectName{Form: want.Form, Room: 205}, f.state(t))

	assert.True(t, f.send(t, fsm.Event{Text: " Ivan "}))
	assert.True(t, f.send(t, fsm.Event{Text: "Petrov"}))
	assert.Equal(t, service.SendPicture{Form: want.Form, Room: 205, Name: "Ivan", Surname: "Petrov"}, f.state(t))

	assert.True(t, f.send(t, fsm.Event{PhotoFileID: "file-1"}))
	assert.Equal(t, service.WaitingSend{Form: want.Form, Room: 205, Name: "Ivan", Surname: "Petrov", PhotoFileID: "file-1"}, f.state(t))

	preview := f.msgr.ByMethod("SendPhoto")
	require.Len(t, preview, 1)
	assert.Equal(t, "file-1", preview[0].Photo.FileID)
	assert.Equal(t, f.text.Get("ru", "join.preview", 205, "Ivan", "Petrov"), preview[0].Text)

	f.residents.On("DeleteResidentsByUserID", mock.Anything, testUserID).Return(int64(0), nil).Once()
	f.residents.On("AddResident", mock.Anything, mock.MatchedBy(func(r *model.Resident) bool {
		return r.UserID == testUserID && r.GroupID == testGroupID && r.Room == 205 &&
			r.Name == "Ivan" && r.Surname == "Petrov" && r.Image == "file-1" &&
			r.Username == "ivan" && r.Status == model.ResidentStatusModeration
	})).Return(int64(7), nil).Once()
	f.residents.On("UpdateResidentFields", mock.Anything, int64(7), mock.MatchedBy(func(fields model.ResidentFields) bool {
		return fields.AdminMessageID != nil && fields.Status == nil
	})).Return(&model.Resident{ID: 7}, nil).Once()

	f.msgr.Reset()
	assert.True(t, f.send(t, fsm.Event{Text: "✅Отправить"}))

	assert.Equal(t, 0, f.store.Len())

	card := f.msgr.ByMethod("SendPhoto")
	require.Len(t, card, 1)
	assert.Equal(t, testAdminID, card[0].ChatID)
	assert.Equal(t, "file-1", card[0].Photo.FileID)
	assert.Equal(t, [][]string{{"m:a:7:101", "m:r:7:101"}}, callbackData(t, card[0].Markup))

	sent := f.msgr.ByMethod("SendText")
	require.Len(t, sent, 1)
	assert.Equal(t, f.text.Get("ru", "join.sent"), sent[0].Text)

	f.requests.AssertExpectations(t)
	f.residents.AssertExpectations(t)
}

func TestJoinService_BadRoomKeepsState(t *testing.T) {
	f := newFixture(t)
	st := service.ChoosingRoom{Form: service.Form{Lang: "ru", GroupID: testGroupID, GreetingMessageID: 101}}
	f.seed(t, st)

	for _, text := range []string{"12", "2055", "abc"} {
		f.msgr.Reset()
		assert.True(t, f.send(t, fsm.Event{Text: text}))

		assert.Equal(t, st, f.state(t))
		calls := f.msgr.Calls
		require.Len(t, calls, 1, text)
		assert.Equal(t, "SendText", calls[0].Method)
		assert.Equal(t, f.text.Get("ru", "join.bad_room"), calls[0].Text)
	}
}

func TestJoinService_Reprompts(t *testing.T) {
	form := service.Form{Lang: "ru", GroupID: testGroupID}

	tests := []struct {
		name  string
		state fsm.State
		ev    fsm.Event
		key   string
	}{
		{"greeting ignores text", service.GreetingSent{Form: form}, fsm.Event{Text: "hello"}, "join.greeting"},
		{"name not empty", service.SelectName{Form: form, Room: 205}, fsm.Event{Text: "   "}, "join.empty_name"},
		{"name from photo", service.SelectName{Form: form, Room: 205}, fsm.Event{PhotoFileID: "x"}, "join.empty_name"},
		{"surname not empty", service.SelectSurname{Form: form, Room: 205, Name: "Ivan"}, fsm.Event{Text: " "}, "join.empty_surname"},
		{"picture needs photo", service.SendPicture{Form: form, Room: 205, Name: "Ivan", Surname: "Petrov"}, fsm.Event{Text: "later"}, "join.need_picture"},
		{"waiting needs button", service.WaitingSend{Form: form, Room: 205, PhotoFileID: "p"}, fsm.Event{Text: "ok"}, "join.waiting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, tt.state)

			assert.True(t, f.send(t, tt.ev))

			assert.Equal(t, tt.state, f.state(t))
			sent := f.msgr.ByMethod("SendText")
			require.Len(t, sent, 1)
			assert.Equal(t, f.text.Get("ru", tt.key), sent[0].Text)
		})
	}
}

func TestJoinService_Cancel(t *testing.T) {
	form := service.Form{Lang: "ru", GroupID: testGroupID, GreetingMessageID: 101}

	tests := []struct {
		name  string
		state fsm.State
		ev    fsm.Event
	}{
		{"command from greeting", service.GreetingSent{Form: form}, fsm.Event{Text: "/cancel", Command: "cancel"}},
		{"button from name", service.SelectName{Form: form, Room: 205}, fsm.Event{Text: "❌Отмена"}},
		{"english button from preview", service.WaitingSend{Form: form, Room: 205, PhotoFileID: "p"}, fsm.Event{Text: "❌Cancel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, tt.state)
			f.requests.On("MarkRequestProcessed", mock.Anything, testUserID).Return(true, nil).Once()

			assert.True(t, f.send(t, tt.ev))

			assert.Equal(t, 0, f.store.Len())
			decline := f.msgr.ByMethod("DeclineJoinRequest")
			require.Len(t, decline, 1)
			assert.Equal(t, testGroupID, decline[0].ChatID)
			assert.Equal(t, testUserID, decline[0].UserID)

			sent := f.msgr.ByMethod("SendText")
			require.Len(t, sent, 1)
			assert.Equal(t, f.text.Get("ru", "join.cancelled"), sent[0].Text)
			f.requests.AssertExpectations(t)
		})
	}
}

func TestJoinService_ClearedSessionIgnoresInput(t *testing.T) {
	f := newFixture(t)
	f.seed(t, service.ChoosingRoom{Form: service.Form{Lang: "ru", GroupID: testGroupID}})
	f.requests.On("MarkRequestProcessed", mock.Anything, testUserID).Return(true, nil).Once()

	require.True(t, f.send(t, fsm.Event{Text: "/cancel", Command: "cancel"}))
	f.msgr.Reset()

	for _, ev := range []fsm.Event{{Text: "205"}, {PhotoFileID: "p"}, {Text: "✅Отправить"}, {Text: "/cancel", Command: "cancel"}} {
		assert.False(t, f.send(t, ev))
	}
	assert.Empty(t, f.msgr.Calls)
	assert.Equal(t, 0, f.store.Len())
	f.requests.AssertNumberOfCalls(t, "MarkRequestProcessed", 1)
}

func TestJoinService_CancelStorageError(t *testing.T) {
	f := newFixture(t)
	st := service.SelectName{Form: service.Form{Lang: "ru", GroupID: testGroupID}, Room: 205}
	f.seed(t, st)
	f.requests.On("MarkRequestProcessed", mock.Anything, testUserID).Return(false, assert.AnError).Once()

	_, err := f.engine.Dispatch(context.Background(), fsm.Event{Key: f.key(), Text: "/cancel", Command: "cancel"})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, st, f.state(t))
	assert.Empty(t, f.msgr.Calls)
}

func TestJoinService_RepeatedJoinRequestRestartsForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := service.JoinRequestEvent{UserID: testUserID, UserChatID: testUserID, GroupID: testGroupID, Lang: "en"}

	f.requests.On("CreateOrReplaceRequest", mock.Anything, testUserID, testGroupID, mock.AnythingOfType("int"), "en").
		Return(&model.JoinRequest{ID: 1}, nil).Twice()

	require.NoError(t, f.join.OnJoinRequest(ctx, ev))
	f.seed(t, service.SelectSurname{Form: service.Form{Lang: "en", GroupID: testGroupID, GreetingMessageID: 101}, Room: 101, Name: "Ann"})

	require.NoError(t, f.join.OnJoinRequest(ctx, ev))

	f.requests.AssertNumberOfCalls(t, "CreateOrReplaceRequest", 2)
	assert.Equal(t, service.GreetingSent{Form: service.Form{Lang: "en", GroupID: testGroupID, GreetingMessageID: 102}}, f.state(t))
	assert.Equal(t, f.text.Get("en", "join.greeting"), f.msgr.ByMethod("SendText")[1].Text)
}

func TestJoinService_UnknownGroupIgnored(t *testing.T) {
	f := newFixture(t)

	err := f.join.OnJoinRequest(context.Background(), service.JoinRequestEvent{UserID: testUserID, GroupID: -200, Lang: "ru"})
	require.NoError(t, err)

	assert.Empty(t, f.msgr.Calls)
	assert.Equal(t, 0, f.store.Len())
	f.requests.AssertNotCalled(t, "CreateOrReplaceRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinService_GreetingFailureStillStoresRequest(t *testing.T) {
	f := newFixture(t)
	f.msgr.Fail["SendText"] = assert.AnError
	f.requests.On("CreateOrReplaceRequest", mock.Anything, testUserID, testGroupID, 0, "ru").
		Return(&model.JoinRequest{ID: 1}, nil).Once()

	err := f.join.OnJoinRequest(context.Background(), service.JoinRequestEvent{UserID: testUserID, GroupID: testGroupID, Lang: "ru"})
	require.NoError(t, err)

	assert.Equal(t, service.StateGreetingSent, f.state(t).Tag())
	f.requests.AssertExpectations(t)
}

func TestJoinService_AdminPhotoFallsBackToUpload(t *testing.T) {
	f := newFixture(t)
	f.seed(t, service.WaitingSend{Form: service.Form{Lang: "ru", GroupID: testGroupID, GreetingMessageID: 101}, Room: 205, Name: "Ivan", Surname: "Petrov", PhotoFileID: "stale"})

	f.residents.On("DeleteResidentsByUserID", mock.Anything, testUserID).Return(int64(1), nil).Once()
	f.residents.On("AddResident", mock.Anything, mock.Anything).Return(int64(8), nil).Once()

	// Первая отправка по file_id падает, вторая загружает файл
	f.msgr.Fail["SendPhoto"] = assert.AnError
	f.residents.On("UpdateResidentFields", mock.Anything, int64(8), mock.Anything).Return(&model.Resident{ID: 8}, nil).Maybe()

	assert.True(t, f.send(t, fsm.Event{Text: "✅Отправить"}))

	assert.Equal(t, 0, f.store.Len())
	download := f.msgr.ByMethod("DownloadFile")
	require.Len(t, download, 1)
	assert.Equal(t, "stale", download[0].Text)

	photos := f.msgr.ByMethod("SendPhoto")
	require.Len(t, photos, 2)
	assert.True(t, photos[1].Photo.IsUpload())
	assert.Equal(t, []byte("image:stale"), photos[1].Photo.Data)

	// Ошибка доставки не мешает уведомить пользователя
	assert.Len(t, f.msgr.ByMethod("SendText"), 1)
}

func TestJoinService_Status(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.requests.On("GetByUserID", mock.Anything, testUserID).Return(nil, nil).Once()
	f.residents.On("GetLatestByUserID", mock.Anything, testUserID).Return(nil, nil).Once()

	text, err := f.join.Status(ctx, testUserID, "ru")
	require.NoError(t, err)
	assert.Equal(t, f.text.Get("ru", "common.status_none"), text)

	created := time.Date(2024, 9, 1, 10, 30, 0, 0, time.UTC)
	f.requests.On("GetByUserID", mock.Anything, testUserID).
		Return(&model.JoinRequest{UserID: testUserID, CreatedAt: created}, nil).Once()
	f.residents.On("GetLatestByUserID", mock.Anything, testUserID).
		Return(&model.Resident{ID: 7, Status: model.ResidentStatusModeration}, nil).Once()

	text, err = f.join.Status(ctx, testUserID, "ru")
	require.NoError(t, err)
	assert.Contains(t, text, "01.09.2024 10:30")
	assert.Contains(t, text, f.text.Get("ru", "common.pending"))
	assert.Contains(t, text, f.text.Get("ru", "status.moderation"))
}
