package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/dorm_bot/internal/model"
	"github.com/Freeeeeet/dorm_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type JoinRequestRepository struct {
	*base.Repository
}

func NewJoinRequestRepository(db base.DB) *JoinRequestRepository {
	return &JoinRequestRepository{Repository: base.NewRepository(db)}
}

// CreateOrReplaceRequest удаляет прежнюю заявку пользователя и создаёт новую.
// Оба шага в одной транзакции: у пользователя не бывает двух живых заявок.
func (r *JoinRequestRepository) CreateOrReplaceRequest(ctx context.Context, userID, groupID int64, greetingMsgID int, lang string) (*model.JoinRequest, error) {
	req := &model.JoinRequest{
		UserID:            userID,
		GroupID:           groupID,
		GreetingMessageID: greetingMsgID,
		Lang:              lang,
	}

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM join_requests WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete join request: %w", err)
		}

		query := `
			INSERT INTO join_requests (user_id, group_id, greeting_message_id, lang)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, processed
		`
		err := tx.QueryRow(ctx, query, userID, groupID, greetingMsgID, lang).
			Scan(&req.ID, &req.CreatedAt, &req.Processed)
		if err != nil {
			return fmt.Errorf("insert join request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// PopUnprocessedRequestsOlderThan атомарно помечает обработанными и
// возвращает все просроченные заявки. Повторный вызов их уже не вернёт.
func (r *JoinRequestRepository) PopUnprocessedRequestsOlderThan(ctx context.Context, hours int) ([]*model.JoinRequest, error) {
	query := `
		UPDATE join_requests
		SET processed = TRUE
		WHERE processed = FALSE AND created_at < NOW() - make_interval(hours => $1)
		RETURNING id, user_id, group_id, created_at, processed, greeting_message_id, lang
	`

	rows, err := r.DB().Query(ctx, query, hours)
	if err != nil {
		return nil, fmt.Errorf("pop expired join requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.JoinRequest
	for rows.Next() {
		var req model.JoinRequest
		err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.GroupID,
			&req.CreatedAt,
			&req.Processed,
			&req.GreetingMessageID,
			&req.Lang,
		)
		if err != nil {
			return nil, fmt.Errorf("scan join request: %w", err)
		}
		requests = append(requests, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join requests: %w", err)
	}

	return requests, nil
}

// MarkRequestProcessed помечает заявку пользователя обработанной.
// Возвращает false, если живой заявки не было.
func (r *JoinRequestRepository) MarkRequestProcessed(ctx context.Context, userID int64) (bool, error) {
	affected, err := r.ExecAffected(ctx,
		`UPDATE join_requests SET processed = TRUE WHERE user_id = $1 AND processed = FALSE`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("mark join request processed: %w", err)
	}
	return affected > 0, nil
}

// GetByUserID получает заявку пользователя
func (r *JoinRequestRepository) GetByUserID(ctx context.Context, userID int64) (*model.JoinRequest, error) {
	query := `
		SELECT id, user_id, group_id, created_at, processed, greeting_message_id, lang
		FROM join_requests
		WHERE user_id = $1
	`

	var req model.JoinRequest
	err := r.DB().QueryRow(ctx, query, userID).Scan(
		&req.ID,
		&req.UserID,
		&req.GroupID,
		&req.CreatedAt,
		&req.Processed,
		&req.GreetingMessageID,
		&req.Lang,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get join request: %w", err)
	}

	return &req, nil
}
