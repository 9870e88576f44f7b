package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/dmr-api/internal/models"
)

const approvedFileColumns = `af.id, af.file_id, af.request_id, af.released_to_user, af.released_by, af.page_range, af.created_at`

const insertApprovedFile = `INSERT INTO approved_files (id, file_id, request_id, released_to_user, released_by, page_range, created_at)
VALUES (:id, :file_id, :request_id, :released_to_user, :released_by, :page_range, :created_at)`

// grantPredicate selects approved files visible to account $2: attached to a
// completed request the account owns, or manually released to it.
const grantPredicate = `((af.request_id IS NOT NULL AND dr.user_id = $2 AND dr.status = 'completed')
OR (af.request_id IS NULL AND af.released_to_user = $2))`

// DuplicateReleaseError reports accounts that already hold a manual release of a file.
type DuplicateReleaseError struct {
	FileID     string
	AccountIDs []string
}

func (e *DuplicateReleaseError) Error() string {
	return fmt.Sprintf("file %s already released to %s", e.FileID, strings.Join(e.AccountIDs, ", "))
}

// ApprovedFileRepository manages file grants.
type ApprovedFileRepository struct {
	db *sqlx.DB
}

// NewApprovedFileRepository constructs an ApprovedFileRepository.
func NewApprovedFileRepository(db *sqlx.DB) *ApprovedFileRepository {
	return &ApprovedFileRepository{db: db}
}

// FindGrants returns every approved file row granting accountID access to fileID.
func (r *ApprovedFileRepository) FindGrants(ctx context.Context, fileID, accountID string) ([]*models.ApprovedFile, error) {
	query := `SELECT ` + approvedFileColumns + ` FROM approved_files af
LEFT JOIN diagnostic_requests dr ON dr.id = af.request_id
WHERE af.file_id = $1 AND ` + grantPredicate + ` ORDER BY af.created_at`
	var grants []*models.ApprovedFile
	if err := r.db.SelectContext(ctx, &grants, query, fileID, accountID); err != nil {
		return nil, fmt.Errorf("find file grants: %w", err)
	}
	return grants, nil
}

// ListGrantedFiles returns the files of a patient accountID holds at least one
// usable grant on. A grant on a paginated file needs a non-empty page range.
func (r *ApprovedFileRepository) ListGrantedFiles(ctx context.Context, patientID, accountID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumnsQualified + ` FROM files f
WHERE f.patient_id = $1 AND EXISTS (
SELECT 1 FROM approved_files af LEFT JOIN diagnostic_requests dr ON dr.id = af.request_id
WHERE af.file_id = f.id AND ` + grantPredicate + `
AND (f.requires_pagination = FALSE OR af.page_range <> ''))
ORDER BY f.created_at DESC`
	var files []*models.File
	if err := r.db.SelectContext(ctx, &files, query, patientID, accountID); err != nil {
		return nil, fmt.Errorf("list granted files: %w", err)
	}
	return files, nil
}

// FindByID returns one approved file.
func (r *ApprovedFileRepository) FindByID(ctx context.Context, id string) (*models.ApprovedFile, error) {
	query := `SELECT ` + approvedFileColumns + ` FROM approved_files af WHERE af.id = $1`
	var af models.ApprovedFile
	if err := r.db.GetContext(ctx, &af, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find approved file: %w", err)
	}
	return &af, nil
}

// ListByFile returns every grant on a file.
func (r *ApprovedFileRepository) ListByFile(ctx context.Context, fileID string) ([]*models.ApprovedFile, error) {
	query := `SELECT ` + approvedFileColumns + ` FROM approved_files af WHERE af.file_id = $1 ORDER BY af.created_at`
	var items []*models.ApprovedFile
	if err := r.db.SelectContext(ctx, &items, query, fileID); err != nil {
		return nil, fmt.Errorf("list approved files by file: %w", err)
	}
	return items, nil
}

// ListByRequest returns the files attached to a request with their metadata.
func (r *ApprovedFileRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.ApprovedFile, error) {
	query := `SELECT ` + approvedFileColumns + ` FROM approved_files af WHERE af.request_id = $1 ORDER BY af.created_at`
	var items []*models.ApprovedFile
	if err := r.db.SelectContext(ctx, &items, query, requestID); err != nil {
		return nil, fmt.Errorf("list approved files by request: %w", err)
	}
	return items, nil
}

// CreateManualReleases stores manual releases of one file atomically. Any
// existing release for the same file and account aborts the whole batch.
func (r *ApprovedFileRepository) CreateManualReleases(ctx context.Context, fileID string, releases []*models.ApprovedFile) (err error) {
	if len(releases) == 0 {
		return nil
	}
	accountIDs := make([]string, 0, len(releases))
	for _, rel := range releases {
		if rel.ReleasedToUser != nil {
			accountIDs = append(accountIDs, *rel.ReleasedToUser)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manual release: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing []string
	const check = `SELECT released_to_user FROM approved_files WHERE file_id = $1 AND released_to_user = ANY($2) ORDER BY released_to_user`
	if err = tx.SelectContext(ctx, &existing, check, fileID, pq.Array(accountIDs)); err != nil {
		return fmt.Errorf("check existing releases: %w", err)
	}
	if len(existing) > 0 {
		err = &DuplicateReleaseError{FileID: fileID, AccountIDs: existing}
		return err
	}

	now := time.Now().UTC()
	for _, rel := range releases {
		if rel.ID == "" {
			rel.ID = uuid.NewString()
		}
		rel.FileID = fileID
		rel.RequestID = nil
		rel.CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, insertApprovedFile, rel); err != nil {
			if IsUniqueViolation(err) {
				err = &DuplicateReleaseError{FileID: fileID, AccountIDs: []string{deref(rel.ReleasedToUser)}}
				return err
			}
			return fmt.Errorf("create manual release: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit manual release: %w", err)
	}
	return nil
}

// UpdatePageRange changes the page range of a grant.
func (r *ApprovedFileRepository) UpdatePageRange(ctx context.Context, id, pageRange string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE approved_files SET page_range = $2 WHERE id = $1`, id, pageRange)
	if err != nil {
		return fmt.Errorf("update approved file: %w", err)
	}
	return requireAffected(res, "update approved file")
}

// Delete revokes a grant.
func (r *ApprovedFileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM approved_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete approved file: %w", err)
	}
	return requireAffected(res, "delete approved file")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
