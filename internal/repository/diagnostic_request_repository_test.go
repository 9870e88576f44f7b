package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/internal/models"
)

var requestCols = []string{"id", "kind", "patient_id", "user_id", "test_type", "test_types", "details", "imaging_focus", "infection_control_precautions", "requester_name", "requester_role", "status", "status_note", "created_at", "updated_at"}

func TestFindDiagnosticRequestDecodesTestTypes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDiagnosticRequestRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM diagnostic_requests WHERE id = $1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(requestCols).
			AddRow("r1", "blood_test", "p1", "u1", "", []byte(`["cbc","crp"]`), "fasting", "", "", "Group A", "student", "pending", "", now, now))

	req, err := repo.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"cbc", "crp"}, req.TestTypes)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDiagnosticRequestsFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDiagnosticRequestRepository(db)

	status := models.StatusPending
	mock.ExpectQuery(regexp.QuoteMeta("FROM diagnostic_requests WHERE 1=1 AND status = $1 AND user_id = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(status, "u1").
		WillReturnRows(sqlmock.NewRows(requestCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM diagnostic_requests WHERE 1=1 AND status = $1 AND user_id = $2")).
		WithArgs(status, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.DiagnosticRequestFilter{Status: &status, UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionReplacesApprovedFiles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDiagnosticRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE diagnostic_requests SET status = $1, status_note = $2, updated_at = $3 WHERE id = $4 AND status = $5")).
		WithArgs(models.StatusCompleted, "done", sqlmock.AnyArg(), "r1", models.StatusInProgress).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM approved_files WHERE request_id = $1")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO approved_files").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := &models.DiagnosticRequest{ID: "r1", Status: models.StatusCompleted, StatusNote: "done"}
	files := []*models.ApprovedFile{{FileID: "f1", PageRange: "1-2"}}
	require.NoError(t, repo.Transition(context.Background(), req, models.StatusInProgress, files))
	require.NotNil(t, files[0].RequestID)
	assert.Equal(t, "r1", *files[0].RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionKeepsFilesWhenNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDiagnosticRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE diagnostic_requests SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := &models.DiagnosticRequest{ID: "r1", Status: models.StatusRejected}
	require.NoError(t, repo.Transition(context.Background(), req, models.StatusPending, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionLosesRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDiagnosticRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE diagnostic_requests SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	req := &models.DiagnosticRequest{ID: "r1", Status: models.StatusCompleted}
	err := repo.Transition(context.Background(), req, models.StatusPending, []*models.ApprovedFile{})
	assert.True(t, errors.Is(err, ErrStatusChanged))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGuardedByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDiagnosticRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM diagnostic_requests WHERE id = $1 AND status = $2")).
		WithArgs("r1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "r1", models.StatusPending)
	assert.True(t, errors.Is(err, ErrStatusChanged))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDiagnosticRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT kind, status, COUNT(*) AS count FROM diagnostic_requests GROUP BY kind, status")).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "status", "count"}).
			AddRow("imaging", "pending", 3).
			AddRow("blood_test", "completed", 1))

	rows, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
