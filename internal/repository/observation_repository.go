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

// ObservationRepository persists every observation variant, one table per kind.
type ObservationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository constructs an ObservationRepository.
func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

func observationSelect(kind models.ObservationKind) string {
	cols := append([]string{"id", "patient_id", "user_id"}, kind.Columns()...)
	cols = append(cols, "created_at", "updated_at")
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), kind.Table())
}

func observationInsert(kind models.ObservationKind) string {
	cols := append([]string{"id", "patient_id", "user_id"}, kind.Columns()...)
	cols = append(cols, "created_at", "updated_at")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)", kind.Table(), strings.Join(cols, ", "), strings.Join(cols, ", :"))
}

func observationUpdate(kind models.ObservationKind) string {
	sets := make([]string, 0, len(kind.Columns())+1)
	for _, col := range kind.Columns() {
		sets = append(sets, fmt.Sprintf("%s = :%s", col, col))
	}
	sets = append(sets, "updated_at = :updated_at")
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", kind.Table(), strings.Join(sets, ", "))
}

// CreateBundle inserts all observations in a single transaction. Either every
// row is stored or none is.
func (r *ObservationRepository) CreateBundle(ctx context.Context, observations []*models.Observation) (err error) {
	if len(observations) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin observation bundle: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, obs := range observations {
		if !obs.Kind.Valid() {
			err = fmt.Errorf("create observation: unknown kind %q", obs.Kind)
			return err
		}
		if obs.ID == "" {
			obs.ID = uuid.NewString()
		}
		obs.CreatedAt = now
		obs.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, observationInsert(obs.Kind), obs); err != nil {
			return fmt.Errorf("create %s: %w", obs.Kind, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit observation bundle: %w", err)
	}
	return nil
}

// FindByID returns one observation of the given kind.
func (r *ObservationRepository) FindByID(ctx context.Context, kind models.ObservationKind, id string) (*models.Observation, error) {
	query := observationSelect(kind) + ` WHERE id = $1`
	var obs models.Observation
	if err := r.db.GetContext(ctx, &obs, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}
	obs.Kind = kind
	return &obs, nil
}

func observationWhere(filter models.ObservationFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns observations of one kind ordered by creation time.
func (r *ObservationRepository) List(ctx context.Context, kind models.ObservationKind, filter models.ObservationFilter) ([]*models.Observation, error) {
	where, args := observationWhere(filter)
	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}
	query := observationSelect(kind) + where + " ORDER BY created_at " + order
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var rows []*models.Observation
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	for _, obs := range rows {
		obs.Kind = kind
	}
	return rows, nil
}

// Count returns the number of observations of one kind matching the filter.
func (r *ObservationRepository) Count(ctx context.Context, kind models.ObservationKind, filter models.ObservationFilter) (int, error) {
	where, args := observationWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM "+kind.Table()+where, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return total, nil
}

// Update persists the value columns of an observation.
func (r *ObservationRepository) Update(ctx context.Context, obs *models.Observation) error {
	obs.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, observationUpdate(obs.Kind), obs)
	if err != nil {
		return fmt.Errorf("update %s: %w", obs.Kind, err)
	}
	return requireAffected(res, "update "+string(obs.Kind))
}

// Delete removes one observation.
func (r *ObservationRepository) Delete(ctx context.Context, kind models.ObservationKind, id string) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", kind.Table()), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return requireAffected(res, "delete "+string(kind))
}
