package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/model"
	"go.uber.org/zap"
)

// Decision нажатие кнопки модерации в админском чате
type Decision struct {
	AdminID        int64
	AdminName      string
	ChatID         int64
	AdminMessageID int
	Payload        Payload
}

// Outcome результат нажатия: текст ответа на callback
type Outcome struct {
	Answer string
	Final  bool
}

// ModerationService принятие и отклонение анкет администраторами.
// Промежуточные шаги живут только в кнопках сообщения.
type ModerationService struct {
	deps   *Deps
	logger *zap.Logger
}

// NewModerationService создаёт сервис модерации
func NewModerationService(deps *Deps) *ModerationService {
	return &ModerationService{
		deps:   deps,
		logger: deps.Logger.Named("moderation"),
	}
}

// OnAdminDecision применяет шаг модерации. Итоговый статус сохраняется
// до любых уведомлений. Повторное решение по обработанной анкете
// возвращает ErrAlreadyProcessed и ничего не делает на платформе.
func (s *ModerationService) OnAdminDecision(ctx context.Context, d Decision) (Outcome, error) {
	lang := s.deps.adminLang()

	res, err := s.deps.Residents.GetResidentByID(ctx, d.Payload.DatabaseID)
	if err != nil {
		return Outcome{}, fmt.Errorf("get resident: %w", err)
	}
	if res == nil {
		err := s.deps.Messenger.EditCaption(ctx, d.ChatID, d.AdminMessageID, s.deps.Text.Get(lang, "moderation.not_found"), messenger.Empty())
		logDelivery(s.logger, "edit caption", err, zap.Int64("resident_id", d.Payload.DatabaseID))
		return Outcome{Answer: s.deps.Text.Get(lang, "moderation.not_found"), Final: true}, ErrResidentNotFound
	}
	if !res.IsModeration() {
		s.renderFinal(ctx, d, res)
		return Outcome{Answer: s.deps.Text.Get(lang, "moderation.already"), Final: true}, ErrAlreadyProcessed
	}

	switch d.Payload.Action {
	case ActionAcceptConfirm:
		return s.finish(ctx, d, res, model.ResidentStatusAccept, "")
	case ActionRefuseWithReason:
		reason, ok := s.deps.refuseReason(d.Payload.Reason)
		if !ok {
			return Outcome{}, fmt.Errorf("%w: reason %d", ErrInvalidPayload, d.Payload.Reason)
		}
		return s.finish(ctx, d, res, model.ResidentStatusRefuse, reason)
	}

	markup, err := s.deps.moderationKeyboard(d.Payload)
	if err != nil {
		return Outcome{}, err
	}
	err = s.deps.Messenger.EditReplyMarkup(ctx, d.ChatID, d.AdminMessageID, markup)
	logDelivery(s.logger, "edit reply markup", err, zap.Int64("resident_id", res.ID))
	return Outcome{}, nil
}

func (s *ModerationService) finish(ctx context.Context, d Decision, res *model.Resident, status model.ResidentStatus, reason string) (Outcome, error) {
	now := s.deps.now()
	moderation := model.ResidentStatusModeration
	fields := model.ResidentFields{
		Status:          &status,
		ProcessedByID:   &d.AdminID,
		ProcessedByName: &d.AdminName,
		ProcessedAt:     &now,
		OnlyIfStatus:    &moderation,
	}
	if status == model.ResidentStatusRefuse {
		fields.RefuseReason = &reason
	}

	updated, err := s.deps.Residents.UpdateResidentFields(ctx, res.ID, fields)
	if err != nil {
		return Outcome{}, fmt.Errorf("update resident: %w", err)
	}
	if updated == nil {
		// Другой администратор успел раньше
		return Outcome{Answer: s.deps.Text.Get(s.deps.adminLang(), "moderation.already"), Final: true}, ErrAlreadyProcessed
	}
	if _, err := s.deps.Requests.MarkRequestProcessed(ctx, updated.UserID); err != nil {
		return Outcome{}, fmt.Errorf("mark request processed: %w", err)
	}

	s.logger.Info("Resident moderated",
		zap.Int64("resident_id", updated.ID),
		zap.Int64("telegram_id", updated.UserID),
		zap.Int64("admin_id", d.AdminID),
		zap.String("status", string(status)))
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveDecision(string(status))
	}

	fieldsLog := []zap.Field{zap.Int64("resident_id", updated.ID), zap.Int64("telegram_id", updated.UserID)}
	var notice string
	if status == model.ResidentStatusAccept {
		err = s.deps.Messenger.ApproveJoinRequest(ctx, updated.GroupID, updated.UserID)
		logDelivery(s.logger, "approve join request", err, fieldsLog...)
		notice = s.deps.Text.Get(updated.Lang, "moderation.user_accepted")
	} else {
		err = s.deps.Messenger.DeclineJoinRequest(ctx, updated.GroupID, updated.UserID)
		logDelivery(s.logger, "decline join request", err, fieldsLog...)
		notice = s.deps.Text.Get(updated.Lang, "moderation.user_refused", reason)
	}

	_, err = s.deps.Messenger.SendText(ctx, updated.UserID, notice, messenger.RemoveKeyboard(), d.Payload.MessageID)
	logDelivery(s.logger, "notify user", err, fieldsLog...)

	s.renderFinal(ctx, d, updated)
	return Outcome{Final: true}, nil
}

// renderFinal переписывает подпись админского сообщения итоговым статусом и убирает кнопки
func (s *ModerationService) renderFinal(ctx context.Context, d Decision, res *model.Resident) {
	lang := s.deps.adminLang()
	card := residentCard(s.deps, res)

	var caption string
	switch res.Status {
	case model.ResidentStatusAccept:
		caption = s.deps.Text.Get(lang, "moderation.accepted_by", card, res.ProcessedByName)
	case model.ResidentStatusRefuse:
		caption = s.deps.Text.Get(lang, "moderation.refused_by", card, res.ProcessedByName, res.RefuseReason)
	default:
		caption = card
	}

	err := s.deps.Messenger.EditCaption(ctx, d.ChatID, d.AdminMessageID, caption, messenger.Empty())
	logDelivery(s.logger, "edit caption", err, zap.Int64("resident_id", res.ID))
}

// IsExpected ошибки модерации, о которых достаточно ответить на callback
func IsExpected(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrResidentNotFound) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrUnknownAction)
}
