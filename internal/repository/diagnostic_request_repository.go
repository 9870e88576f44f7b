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

	"github.com/noah-isme/dmr-api/internal/models"
)

// ErrStatusChanged is returned when a guarded status update finds the request
// no longer in the expected status.
var ErrStatusChanged = errors.New("diagnostic request status changed concurrently")

const diagnosticRequestColumns = `id, kind, patient_id, user_id, test_type, test_types, details, imaging_focus, infection_control_precautions, requester_name, requester_role, status, status_note, created_at, updated_at`

// DiagnosticRequestRepository persists diagnostic requests and their approved files.
type DiagnosticRequestRepository struct {
	db *sqlx.DB
}

// NewDiagnosticRequestRepository constructs a DiagnosticRequestRepository.
func NewDiagnosticRequestRepository(db *sqlx.DB) *DiagnosticRequestRepository {
	return &DiagnosticRequestRepository{db: db}
}

// Create inserts a new request.
func (r *DiagnosticRequestRepository) Create(ctx context.Context, req *models.DiagnosticRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.TestTypes == nil {
		req.TestTypes = models.StringList{}
	}

	const query = `INSERT INTO diagnostic_requests (id, kind, patient_id, user_id, test_type, test_types, details, imaging_focus, infection_control_precautions, requester_name, requester_role, status, status_note, created_at, updated_at)
VALUES (:id, :kind, :patient_id, :user_id, :test_type, :test_types, :details, :imaging_focus, :infection_control_precautions, :requester_name, :requester_role, :status, :status_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create diagnostic request: %w", err)
	}
	return nil
}

// FindByID returns a request by identifier.
func (r *DiagnosticRequestRepository) FindByID(ctx context.Context, id string) (*models.DiagnosticRequest, error) {
	query := `SELECT ` + diagnosticRequestColumns + ` FROM diagnostic_requests WHERE id = $1`
	var req models.DiagnosticRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find diagnostic request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest first, with the total count.
func (r *DiagnosticRequestRepository) List(ctx context.Context, filter models.DiagnosticRequestFilter) ([]*models.DiagnosticRequest, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, *filter.Kind)
	}
	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	base := "FROM diagnostic_requests WHERE " + strings.Join(conditions, " AND ")

	_, size, offset := normalisePage(filter.Page, filter.PageSize, 20)
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", diagnosticRequestColumns, base, size, offset)

	var items []*models.DiagnosticRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list diagnostic requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count diagnostic requests: %w", err)
	}
	return items, total, nil
}

// Update persists the descriptive fields of a request while it still holds
// the expected status. Status itself is never written here.
func (r *DiagnosticRequestRepository) Update(ctx context.Context, req *models.DiagnosticRequest, expected models.RequestStatus) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE diagnostic_requests SET test_type = $1, test_types = $2, details = $3, imaging_focus = $4, infection_control_precautions = $5,
requester_name = $6, requester_role = $7, updated_at = $8 WHERE id = $9 AND status = $10`
	res, err := r.db.ExecContext(ctx, query, req.TestType, req.TestTypes, req.Details, req.ImagingFocus, req.InfectionControlPrecautions,
		req.RequesterName, req.RequesterRole, req.UpdatedAt, req.ID, expected)
	if err != nil {
		return fmt.Errorf("update diagnostic request: %w", err)
	}
	if err := requireAffected(res, "update diagnostic request"); err != nil {
		return ErrStatusChanged
	}
	return nil
}

// Delete removes a request. A non-empty expected status guards the delete.
func (r *DiagnosticRequestRepository) Delete(ctx context.Context, id string, expected models.RequestStatus) error {
	query := `DELETE FROM diagnostic_requests WHERE id = $1`
	args := []interface{}{id}
	if expected != "" {
		query += ` AND status = $2`
		args = append(args, expected)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete diagnostic request: %w", err)
	}
	if err := requireAffected(res, "delete diagnostic request"); err != nil {
		if expected != "" {
			return ErrStatusChanged
		}
		return err
	}
	return nil
}

// Transition moves a request from one status to another in a single
// transaction. When files is non-nil the request's approved file set is
// replaced by it; an empty slice clears the set.
func (r *DiagnosticRequestRepository) Transition(ctx context.Context, req *models.DiagnosticRequest, from models.RequestStatus, files []*models.ApprovedFile) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req.UpdatedAt = time.Now().UTC()
	const update = `UPDATE diagnostic_requests SET status = $1, status_note = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	res, err := tx.ExecContext(ctx, update, req.Status, req.StatusNote, req.UpdatedAt, req.ID, from)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affectedErr := requireAffected(res, "update request status"); affectedErr != nil {
		err = ErrStatusChanged
		return err
	}

	if files != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM approved_files WHERE request_id = $1`, req.ID); err != nil {
			return fmt.Errorf("clear approved files: %w", err)
		}
		for _, af := range files {
			if af.ID == "" {
				af.ID = uuid.NewString()
			}
			reqID := req.ID
			af.RequestID = &reqID
			af.ReleasedToUser = nil
			af.CreatedAt = req.UpdatedAt
			if _, err = tx.NamedExecContext(ctx, insertApprovedFile, af); err != nil {
				return fmt.Errorf("attach approved file: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit status transition: %w", err)
	}
	return nil
}

// CountByStatus returns request counts grouped by kind and status.
func (r *DiagnosticRequestRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT kind, status, COUNT(*) AS count FROM diagnostic_requests GROUP BY kind, status ORDER BY kind, status`
	var rows []models.StatusCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count diagnostic requests by status: %w", err)
	}
	return rows, nil
}
