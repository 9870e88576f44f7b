package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dmr-api/internal/models"
)

const fileColumns = `id, patient_id, display_name, category, storage_key, mime_type, size_bytes, requires_pagination, uploaded_by, created_at`

const fileColumnsQualified = `f.id, f.patient_id, f.display_name, f.category, f.storage_key, f.mime_type, f.size_bytes, f.requires_pagination, f.uploaded_by, f.created_at`

// FileReleaseHook frees the stored binary of a deleted file. Returning an
// error aborts the delete.
type FileReleaseHook func(ctx context.Context, file *models.File) error

// ErrFileHasGrants is returned when the pagination flag of a released file is changed.
var ErrFileHasGrants = errors.New("file has been released")

// FileRepository persists uploaded file metadata.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs a FileRepository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts file metadata.
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	file.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO files (id, patient_id, display_name, category, storage_key, mime_type, size_bytes, requires_pagination, uploaded_by, created_at)
VALUES (:id, :patient_id, :display_name, :category, :storage_key, :mime_type, :size_bytes, :requires_pagination, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// FindByID returns file metadata by identifier.
func (r *FileRepository) FindByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	var file models.File
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	return &file, nil
}

// FindByIDs returns the files matching ids; unknown ids are absent.
func (r *FileRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.File, error) {
	if len(ids) == 0 {
		return []*models.File{}, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id IN (%s)`, fileColumns, placeholders(len(ids)))
	var files []*models.File
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("find files by ids: %w", err)
	}
	return files, nil
}

// ListByPatient returns every file of a patient, newest first.
func (r *FileRepository) ListByPatient(ctx context.Context, patientID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE patient_id = $1 ORDER BY created_at DESC`
	var files []*models.File
	if err := r.db.SelectContext(ctx, &files, query, patientID); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// Update persists editable metadata. The pagination flag only changes while
// the file has no grants.
func (r *FileRepository) Update(ctx context.Context, file *models.File) error {
	const query = `UPDATE files SET display_name = :display_name, category = :category, requires_pagination = :requires_pagination
WHERE id = :id AND (requires_pagination = :requires_pagination OR NOT EXISTS (SELECT 1 FROM approved_files WHERE file_id = :id))`
	res, err := r.db.NamedExecContext(ctx, query, file)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	if err := requireAffected(res, "update file"); !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var grants int
	err = r.db.GetContext(ctx, &grants, `SELECT (SELECT COUNT(*) FROM approved_files af WHERE af.file_id = f.id) FROM files f WHERE f.id = $1`, file.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("count file grants: %w", err)
	}
	if grants > 0 {
		return ErrFileHasGrants
	}
	return sql.ErrNoRows
}

// Delete removes the file row and runs hook inside the same transaction. The
// row is restored if the hook fails.
func (r *FileRepository) Delete(ctx context.Context, id string, hook FileReleaseHook) (file *models.File, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row models.File
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock file: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete file: %w", err)
	}
	if hook != nil {
		if err = hook(ctx, &row); err != nil {
			return nil, fmt.Errorf("release file binary: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete file: %w", err)
	}
	return &row, nil
}
