package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/internal/models"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestCreateBundleCommitsEveryRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blood_pressures (id, patient_id, user_id, systolic, diastolic, created_at, updated_at)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO heart_rates (id, patient_id, user_id, heart_rate, created_at, updated_at)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes (id, patient_id, user_id, content, created_at, updated_at)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	bundle := []*models.Observation{
		{Kind: models.KindBloodPressure, PatientID: "p1", UserID: "u1", Systolic: intPtr(120), Diastolic: intPtr(80)},
		{Kind: models.KindHeartRate, PatientID: "p1", UserID: "u1", HeartRate: intPtr(72)},
		{Kind: models.KindNote, PatientID: "p1", UserID: "u1", Content: strPtr("stable")},
	}
	require.NoError(t, repo.CreateBundle(context.Background(), bundle))
	for _, obs := range bundle {
		assert.NotEmpty(t, obs.ID)
		assert.False(t, obs.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBundleRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO blood_pressures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO heart_rates").WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	err := repo.CreateBundle(context.Background(), []*models.Observation{
		{Kind: models.KindBloodPressure, PatientID: "p1", UserID: "u1", Systolic: intPtr(120), Diastolic: intPtr(80)},
		{Kind: models.KindHeartRate, PatientID: "p1", UserID: "u1", HeartRate: intPtr(72)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create heart_rate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListObservationsScopedToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, patient_id, user_id, score, created_at, updated_at FROM pain_scores WHERE 1=1 AND patient_id = $1 AND user_id = $2 ORDER BY created_at ASC LIMIT 5")).
		WithArgs("p1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "user_id", "score", "created_at", "updated_at"}).
			AddRow("o1", "p1", "u1", 4, now, now))

	rows, err := repo.List(context.Background(), models.KindPainScore, models.ObservationFilter{PatientID: "p1", UserID: "u1", Limit: 5, Ascending: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindPainScore, rows[0].Kind)
	assert.Equal(t, 4, *rows[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateObservationOnlyValueColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE blood_pressures SET systolic = ?, diastolic = ?, updated_at = ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.Observation{ID: "o1", Kind: models.KindBloodPressure, Systolic: intPtr(130), Diastolic: intPtr(85)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteObservationMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1")).
		WithArgs("o1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), models.KindNote, "o1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
