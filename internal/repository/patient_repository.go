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

const patientColumns = `id, first_name, last_name, date_of_birth, gender, mrn, ward, bed, phone_number, created_at, updated_at`

// PatientRepository manages persistence for patient records.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository constructs a PatientRepository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// List returns patients matching the filter together with the total count.
func (r *PatientRepository) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(mrn) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Ward != "" {
		conditions = append(conditions, fmt.Sprintf("ward = $%d", len(args)+1))
		args = append(args, filter.Ward)
	}
	base := "FROM patients WHERE " + strings.Join(conditions, " AND ")

	_, size, offset := normalisePage(filter.Page, filter.PageSize, 20)
	query := fmt.Sprintf("SELECT %s %s ORDER BY last_name ASC, first_name ASC LIMIT %d OFFSET %d", patientColumns, base, size, offset)

	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	return patients, total, nil
}

// FindByID returns a patient by identifier.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return &patient, nil
}

// Exists reports whether a patient with the identifier is stored.
func (r *PatientRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check patient exists: %w", err)
	}
	return exists, nil
}

// Count returns the number of stored patients.
func (r *PatientRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients`); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return total, nil
}

// Create inserts a new patient.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	const query = `INSERT INTO patients (id, first_name, last_name, date_of_birth, gender, mrn, ward, bed, phone_number, created_at, updated_at)
VALUES (:id, :first_name, :last_name, :date_of_birth, :gender, :mrn, :ward, :bed, :phone_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// Update persists mutable patient fields.
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	const query = `UPDATE patients SET first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth, gender = :gender,
mrn = :mrn, ward = :ward, bed = :bed, phone_number = :phone_number, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, patient)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return requireAffected(res, "update patient")
}

// Delete removes a patient. Dependent rows cascade in the schema; the patient's
// files are locked first and hook runs for each of them before commit, so a
// failing release keeps the patient and every file in place.
func (r *PatientRepository) Delete(ctx context.Context, id string, hook FileReleaseHook) (files []*models.File, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete patient: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM patients WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock patient: %w", err)
	}
	query := `SELECT ` + fileColumns + ` FROM files WHERE patient_id = $1 ORDER BY created_at FOR UPDATE`
	if err = tx.SelectContext(ctx, &files, query, id); err != nil {
		return nil, fmt.Errorf("lock patient files: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete patient: %w", err)
	}
	if hook != nil {
		for _, file := range files {
			if err = hook(ctx, file); err != nil {
				return nil, fmt.Errorf("release file binary %s: %w", file.ID, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete patient: %w", err)
	}
	return files, nil
}
