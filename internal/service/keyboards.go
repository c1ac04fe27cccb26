package service

import (
	"fmt"

	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/go-telegram/bot/models"
)

func (d *Deps) formKeyboard(lang string, buttons ...string) *models.ReplyKeyboardMarkup {
	rows := make([][]string, 0, len(buttons))
	for _, key := range buttons {
		rows = append(rows, []string{d.Text.Get(lang, key)})
	}
	return messenger.ReplyKeyboard(rows...)
}

type choice struct {
	label string
	next  Payload
}

// moderationKeyboard кнопки шага модерации, на который указывает p.Action
func (d *Deps) moderationKeyboard(p Payload) (*models.InlineKeyboardMarkup, error) {
	lang := d.adminLang()
	back := choice{d.Text.Get(lang, "btn.back"), p.With(ActionBack, 0)}

	var rows [][]choice
	switch p.Action {
	case ActionBack:
		rows = [][]choice{{
			{d.Text.Get(lang, "btn.accept"), p.With(ActionAccept, 0)},
			{d.Text.Get(lang, "btn.refuse"), p.With(ActionRefuse, 0)},
		}}
	case ActionAccept:
		rows = [][]choice{
			{{d.Text.Get(lang, "btn.confirm_accept"), p.With(ActionAcceptConfirm, 0)}},
			{back},
		}
	case ActionRefuse:
		for i, reason := range d.RefuseReasons {
			rows = append(rows, []choice{{reason, p.With(ActionRefuseReason, i)}})
		}
		rows = append(rows, []choice{back})
	case ActionRefuseReason:
		reason, ok := d.refuseReason(p.Reason)
		if !ok {
			return nil, fmt.Errorf("%w: reason %d", ErrInvalidPayload, p.Reason)
		}
		rows = [][]choice{
			{{d.Text.Get(lang, "btn.confirm_refuse", reason), p.With(ActionRefuseWithReason, p.Reason)}},
			{back},
		}
	default:
		return messenger.Empty(), nil
	}

	kb := messenger.NewBuilder()
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			data, err := c.next.Encode()
			if err != nil {
				return nil, err
			}
			buttons = append(buttons, messenger.Button(c.label, data))
		}
		kb.Row(buttons...)
	}
	return kb.Build(), nil
}

func (d *Deps) refuseReason(i int) (string, bool) {
	if i < 0 || i >= len(d.RefuseReasons) {
		return "", false
	}
	return d.RefuseReasons[i], true
}
