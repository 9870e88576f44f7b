package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/internal/models"
)

var approvedCols = []string{"id", "file_id", "request_id", "released_to_user", "released_by", "page_range", "created_at"}

func TestFindGrantsSingleQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovedFileRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN diagnostic_requests dr ON dr.id = af.request_id")).
		WithArgs("f1", "u1").
		WillReturnRows(sqlmock.NewRows(approvedCols).
			AddRow("a1", "f1", "r1", nil, nil, "1-2", now).
			AddRow("a2", "f1", nil, "u1", "i1", "5", now))

	grants, err := repo.FindGrants(context.Background(), "f1", "u1")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.False(t, grants[0].IsManualRelease())
	assert.True(t, grants[1].IsManualRelease())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func manualRelease(account string) *models.ApprovedFile {
	by := "inst-1"
	return &models.ApprovedFile{ReleasedToUser: &account, ReleasedBy: &by, PageRange: "1-3"}
}

func TestCreateManualReleasesAtomic(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovedFileRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT released_to_user FROM approved_files WHERE file_id = $1 AND released_to_user = ANY($2)")).
		WillReturnRows(sqlmock.NewRows([]string{"released_to_user"}))
	mock.ExpectExec("INSERT INTO approved_files").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO approved_files").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	releases := []*models.ApprovedFile{manualRelease("g1"), manualRelease("g2")}
	require.NoError(t, repo.CreateManualReleases(context.Background(), "f1", releases))
	for _, rel := range releases {
		assert.Equal(t, "f1", rel.FileID)
		assert.NotEmpty(t, rel.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateManualReleasesRejectsExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovedFileRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT released_to_user FROM approved_files").
		WillReturnRows(sqlmock.NewRows([]string{"released_to_user"}).AddRow("g2"))
	mock.ExpectRollback()

	err := repo.CreateManualReleases(context.Background(), "f1", []*models.ApprovedFile{manualRelease("g1"), manualRelease("g2")})
	var dup *DuplicateReleaseError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{"g2"}, dup.AccountIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateManualReleasesMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovedFileRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT released_to_user FROM approved_files").
		WillReturnRows(sqlmock.NewRows([]string{"released_to_user"}))
	mock.ExpectExec("INSERT INTO approved_files").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateManualReleases(context.Background(), "f1", []*models.ApprovedFile{manualRelease("g1")})
	var dup *DuplicateReleaseError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{"g1"}, dup.AccountIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGrantedFiles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovedFileRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM files f\nWHERE f.patient_id = $1 AND EXISTS") + `(?s).*` +
		regexp.QuoteMeta("AND (f.requires_pagination = FALSE OR af.page_range <> ''))")).
		WithArgs("p1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "display_name", "category", "storage_key", "mime_type", "size_bytes", "requires_pagination", "uploaded_by", "created_at"}).
			AddRow("f1", "p1", "CT", "imaging", "k", "application/pdf", 10, true, nil, now))

	files, err := repo.ListGrantedFiles(context.Background(), "p1", "u1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].RequiresPagination)
	assert.NoError(t, mock.ExpectationsWereMet())
}
