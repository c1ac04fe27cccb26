package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/dorm_bot/internal/model"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var residentRowColumns = []string{
	"id", "user_id", "group_id", "username", "fullname", "name", "surname", "room", "image", "status",
	"processed_by_id", "processed_by_name", "processed_at", "refuse_reason", "admin_message_id", "created_at", "lang",
}

func residentRows(status model.ResidentStatus, processedAt *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(residentRowColumns).AddRow(
		int64(9), int64(42), int64(-100), "ivan", "Ivan Petrov", "Ivan", "Petrov", 205, "file-1", status,
		int64(0), "", processedAt, "", 0, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), "ru",
	)
}

func TestResidentRepository_AddResident(t *testing.T) {
	mock := newMock(t)
	repo := NewResidentRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO residents`).
		WithArgs(int64(42), int64(-100), "ivan", "Ivan Petrov", "Ivan", "Petrov", 205, "file-1", "moderation", "ru").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), now))

	res := &model.Resident{
		UserID:   42,
		GroupID:  -100,
		Username: "ivan",
		Fullname: "Ivan Petrov",
		Name:     "Ivan",
		Surname:  "Petrov",
		Room:     205,
		Image:    "file-1",
		Status:   model.ResidentStatusModeration,
		Lang:     "ru",
	}
	id, err := repo.AddResident(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.Equal(t, now, res.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepository_GetResidentByID(t *testing.T) {
	mock := newMock(t)
	repo := NewResidentRepository(mock)

	mock.ExpectQuery(`FROM residents WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(residentRows(model.ResidentStatusModeration, (*time.Time)(nil)))
	mock.ExpectQuery(`FROM residents WHERE id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(residentRowColumns))

	res, err := repo.GetResidentByID(context.Background(), 9)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 205, res.Room)
	assert.True(t, res.IsModeration())
	assert.Nil(t, res.ProcessedAt)

	missing, err := repo.GetResidentByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepository_UpdateResidentFields_Guarded(t *testing.T) {
	mock := newMock(t)
	repo := NewResidentRepository(mock)
	at := time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

	accept := model.ResidentStatusAccept
	moderation := model.ResidentStatusModeration
	adminID := int64(7)
	adminName := "admin"

	fields := model.ResidentFields{
		Status:          &accept,
		ProcessedByID:   &adminID,
		ProcessedByName: &adminName,
		ProcessedAt:     &at,
		OnlyIfStatus:    &moderation,
	}

	query := `UPDATE residents SET status = \$1, processed_by_id = \$2, processed_by_name = \$3, processed_at = \$4 WHERE id = \$5 AND status = \$6 RETURNING`

	mock.ExpectQuery(query).
		WithArgs("accept", int64(7), "admin", at, int64(9), "moderation").
		WillReturnRows(residentRows(model.ResidentStatusAccept, &at))
	mock.ExpectQuery(query).
		WithArgs("accept", int64(7), "admin", at, int64(9), "moderation").
		WillReturnRows(pgxmock.NewRows(residentRowColumns))

	res, err := repo.UpdateResidentFields(context.Background(), 9, fields)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, model.ResidentStatusAccept, res.Status)
	assert.Equal(t, &at, res.ProcessedAt)

	// Строка уже не в модерации
	res, err = repo.UpdateResidentFields(context.Background(), 9, fields)
	require.NoError(t, err)
	assert.Nil(t, res)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepository_UpdateResidentFields_SingleField(t *testing.T) {
	mock := newMock(t)
	repo := NewResidentRepository(mock)
	msgID := 555

	mock.ExpectQuery(`UPDATE residents SET admin_message_id = \$1 WHERE id = \$2 RETURNING`).
		WithArgs(555, int64(9)).
		WillReturnRows(residentRows(model.ResidentStatusModeration, (*time.Time)(nil)))

	res, err := repo.UpdateResidentFields(context.Background(), 9, model.ResidentFields{AdminMessageID: &msgID})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepository_DeleteResidentsByUserID(t *testing.T) {
	mock := newMock(t)
	repo := NewResidentRepository(mock)

	mock.ExpectExec(`DELETE FROM residents WHERE user_id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := repo.DeleteResidentsByUserID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
