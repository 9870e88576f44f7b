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

var fileCols = []string{"id", "patient_id", "display_name", "category", "storage_key", "mime_type", "size_bytes", "requires_pagination", "uploaded_by", "created_at"}

func TestDeleteFileRunsHookInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM files WHERE id = $1 FOR UPDATE")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("f1", "p1", "CT", "imaging", "p1/f1.pdf", "application/pdf", 10, true, nil, now))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM files WHERE id = $1")).WithArgs("f1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var released string
	file, err := repo.Delete(context.Background(), "f1", func(_ context.Context, f *models.File) error {
		released = f.StorageKey
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "p1/f1.pdf", released)
	assert.Equal(t, "f1", file.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFileRollsBackWhenHookFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("f1", "p1", "CT", "imaging", "k", "application/pdf", 10, true, nil, now))
	mock.ExpectExec("DELETE FROM files").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), "f1", func(context.Context, *models.File) error {
		return errors.New("storage offline")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release file binary")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindFilesByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM files WHERE id IN ($1,$2)")).
		WithArgs("f1", "f2").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("f1", "p1", "CT", "imaging", "k", "application/pdf", 10, true, nil, now))

	files, err := repo.FindByIDs(context.Background(), []string{"f1", "f2"})
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFileGuardsPaginationOfReleasedFiles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)
	file := &models.File{ID: "f1", DisplayName: "CT", Category: "imaging", RequiresPagination: false}
	update := regexp.QuoteMeta("UPDATE files SET display_name = ") +
		`(?s).*` + regexp.QuoteMeta("NOT EXISTS (SELECT 1 FROM approved_files WHERE file_id = ")
	count := regexp.QuoteMeta("SELECT (SELECT COUNT(*) FROM approved_files af WHERE af.file_id = f.id) FROM files f WHERE f.id = $1")

	mock.ExpectExec(update).WithArgs("CT", "imaging", false, "f1", false, "f1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), file))

	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(count).WithArgs("f1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	assert.ErrorIs(t, repo.Update(context.Background(), file), ErrFileHasGrants)

	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(count).WithArgs("f1").WillReturnRows(sqlmock.NewRows([]string{"count"}))
	assert.ErrorIs(t, repo.Update(context.Background(), file), sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}
