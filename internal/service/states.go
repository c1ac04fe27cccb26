package service

import "github.com/Freeeeeet/dorm_bot/internal/fsm"

// Состояния диалога вступления
const (
	StateGreetingSent  fsm.Tag = "greeting_sent"
	StateChoosingRoom  fsm.Tag = "choosing_room"
	StateSelectName    fsm.Tag = "select_name"
	StateSelectSurname fsm.Tag = "select_surname"
	StateSendPicture   fsm.Tag = "send_picture"
	StateWaitingSend   fsm.Tag = "waiting_send"
)

// Form общие поля всех состояний анкеты
type Form struct {
	Lang              string `json:"lang"`
	GroupID           int64  `json:"group_id"`
	GreetingMessageID int    `json:"greeting_message_id"`
}

func (f Form) form() Form { return f }

type formState interface {
	fsm.State
	form() Form
}

type GreetingSent struct {
	Form
}

func (GreetingSent) Tag() fsm.Tag { return StateGreetingSent }

type ChoosingRoom struct {
	Form
}

func (ChoosingRoom) Tag() fsm.Tag { return StateChoosingRoom }

type SelectName struct {
	Form
	Room int `json:"room"`
}

func (SelectName) Tag() fsm.Tag { return StateSelectName }

type SelectSurname struct {
	Form
	Room int    `json:"room"`
	Name string `json:"name"`
}

func (SelectSurname) Tag() fsm.Tag { return StateSelectSurname }

type SendPicture struct {
	Form
	Room    int    `json:"room"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

func (SendPicture) Tag() fsm.Tag { return StateSendPicture }

type WaitingSend struct {
	Form
	Room        int    `json:"room"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	PhotoFileID string `json:"photo_file_id"`
}

func (WaitingSend) Tag() fsm.Tag { return StateWaitingSend }

// NewCodec кодек всех состояний диалога вступления
func NewCodec() *fsm.Codec {
	c := fsm.NewCodec()
	fsm.Register[GreetingSent](c)
	fsm.Register[ChoosingRoom](c)
	fsm.Register[SelectName](c)
	fsm.Register[SelectSurname](c)
	fsm.Register[SendPicture](c)
	fsm.Register[WaitingSend](c)
	return c
}

func formOf(s fsm.State) Form {
	if fs, ok := s.(formState); ok {
		return fs.form()
	}
	return Form{}
}
