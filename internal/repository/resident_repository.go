package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/dorm_bot/internal/model"
	"github.com/Freeeeeet/dorm_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const residentColumns = `id, user_id, group_id, username, fullname, name, surname, room, image, status,
	processed_by_id, processed_by_name, processed_at, refuse_reason, admin_message_id, created_at, lang`

type ResidentRepository struct {
	*base.Repository
}

func NewResidentRepository(db base.DB) *ResidentRepository {
	return &ResidentRepository{Repository: base.NewRepository(db)}
}

// AddResident сохраняет анкету и возвращает её id
func (r *ResidentRepository) AddResident(ctx context.Context, res *model.Resident) (int64, error) {
	query := `
		INSERT INTO residents (user_id, group_id, username, fullname, name, surname, room, image, status, lang)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.DB().QueryRow(
		ctx, query,
		res.UserID,
		res.GroupID,
		res.Username,
		res.Fullname,
		res.Name,
		res.Surname,
		res.Room,
		res.Image,
		string(res.Status),
		res.Lang,
	).Scan(&res.ID, &res.CreatedAt)

	if err != nil {
		return 0, fmt.Errorf("add resident: %w", err)
	}

	return res.ID, nil
}

// GetResidentByID получает анкету по id
func (r *ResidentRepository) GetResidentByID(ctx context.Context, id int64) (*model.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE id = $1`

	res, err := scanResident(r.DB().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resident: %w", err)
	}

	return res, nil
}

// GetLatestByUserID получает последнюю анкету пользователя
func (r *ResidentRepository) GetLatestByUserID(ctx context.Context, userID int64) (*model.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`

	res, err := scanResident(r.DB().QueryRow(ctx, query, userID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resident by user: %w", err)
	}

	return res, nil
}

// UpdateResidentFields обновляет заданные поля и возвращает новую версию строки.
// Возвращает nil, если строки нет или не выполнено условие OnlyIfStatus.
func (r *ResidentRepository) UpdateResidentFields(ctx context.Context, id int64, fields model.ResidentFields) (*model.Resident, error) {
	if fields.IsEmpty() {
		return r.GetResidentByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Status != nil {
		set("status", string(*fields.Status))
	}
	if fields.ProcessedByID != nil {
		set("processed_by_id", *fields.ProcessedByID)
	}
	if fields.ProcessedByName != nil {
		set("processed_by_name", *fields.ProcessedByName)
	}
	if fields.ProcessedAt != nil {
		set("processed_at", *fields.ProcessedAt)
	}
	if fields.RefuseReason != nil {
		set("refuse_reason", *fields.RefuseReason)
	}
	if fields.AdminMessageID != nil {
		set("admin_message_id", *fields.AdminMessageID)
	}

	args = append(args, id)
	where := fmt.Sprintf("id = $%d", len(args))
	if fields.OnlyIfStatus != nil {
		args = append(args, string(*fields.OnlyIfStatus))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query := fmt.Sprintf("UPDATE residents SET %s WHERE %s RETURNING %s",
		strings.Join(sets, ", "), where, residentColumns)

	res, err := scanResident(r.DB().QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update resident: %w", err)
	}

	return res, nil
}

// DeleteResidentsByUserID удаляет все анкеты пользователя
func (r *ResidentRepository) DeleteResidentsByUserID(ctx context.Context, userID int64) (int64, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM residents WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete residents: %w", err)
	}
	return affected, nil
}

func scanResident(row pgx.Row) (*model.Resident, error) {
	var res model.Resident
	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.GroupID,
		&res.Username,
		&res.Fullname,
		&res.Name,
		&res.Surname,
		&res.Room,
		&res.Image,
		&res.Status,
		&res.ProcessedByID,
		&res.ProcessedByName,
		&res.ProcessedAt,
		&res.RefuseReason,
		&res.AdminMessageID,
		&res.CreatedAt,
		&res.Lang,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
