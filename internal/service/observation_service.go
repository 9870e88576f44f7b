package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/repository"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/export"
)

const (
	defaultObservationPageSize = 10
	maxObservationPageSize     = 100
)

type observationStore interface {
	CreateBundle(ctx context.Context, observations []*models.Observation) error
	FindByID(ctx context.Context, kind models.ObservationKind, id string) (*models.Observation, error)
	List(ctx context.Context, kind models.ObservationKind, filter models.ObservationFilter) ([]*models.Observation, error)
	Count(ctx context.Context, kind models.ObservationKind, filter models.ObservationFilter) (int, error)
	Update(ctx context.Context, obs *models.Observation) error
	Delete(ctx context.Context, kind models.ObservationKind, id string) error
}

type observationPatientLookup interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

// ObservationService records and reads patient observations.
type ObservationService struct {
	repo      observationStore
	patients  observationPatientLookup
	validator *ObservationValidator
	renderer  *export.Renderer
	metrics   *MetricsService
	audit     auditTrail
	logger    *zap.Logger
}

// NewObservationService constructs the observation service.
func NewObservationService(repo observationStore, patients observationPatientLookup, validator *ObservationValidator, renderer *export.Renderer, metrics *MetricsService, audit auditLogger, logger *zap.Logger) *ObservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	return &ObservationService{
		repo:      repo,
		patients:  patients,
		validator: validator,
		renderer:  renderer,
		metrics:   metrics,
		audit:     newAuditTrail(audit, logger, "observation-service"),
		logger:    logger,
	}
}

// CreateBundle validates every member and stores them atomically.
func (s *ObservationService) CreateBundle(ctx context.Context, caller *models.Caller, req *dto.ObservationBundleRequest) (map[models.ObservationKind]*models.Observation, error) {
	if err := authz.Authorize(authz.Observations, caller, authz.OpCreate, nil); err != nil {
		return nil, err
	}
	if req == nil {
		req = &dto.ObservationBundleRequest{}
	}
	observations, err := s.validator.ValidateBundle(ctx, caller, req.Members())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateBundle(ctx, observations); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.FieldErrors{"user": {"account does not exist"}}.Err("observation validation failed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store observations")
	}
	s.metrics.ObserveBundle(len(observations))

	created := make(map[models.ObservationKind]*models.Observation, len(observations))
	for _, obs := range observations {
		created[obs.Kind] = obs
		s.audit.emit(ctx, caller, models.AuditActionObservationCreate, string(obs.Kind), obs.ID, nil, obs)
	}
	s.logger.Debug("observation bundle stored", zap.String("patient_id", observations[0].PatientID), zap.Int("count", len(observations)))
	return created, nil
}

// List returns one variant for a patient. Students only see their own rows.
func (s *ObservationService) List(ctx context.Context, caller *models.Caller, kind models.ObservationKind, patientID string, page, pageSize int) ([]*models.Observation, *models.Pagination, error) {
	if err := authz.Authorize(authz.Observations, caller, authz.OpList, nil); err != nil {
		return nil, nil, err
	}
	if !kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "unknown observation type")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxObservationPageSize {
		pageSize = defaultObservationPageSize
	}
	filter := s.scope(caller, patientID)
	total, err := s.repo.Count(ctx, kind, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count observations")
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	rows, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list observations")
	}
	return rows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one observation.
func (s *ObservationService) Get(ctx context.Context, caller *models.Caller, kind models.ObservationKind, id string) (*models.Observation, error) {
	return s.loadAuthorized(ctx, caller, authz.OpRead, kind, id)
}

// Update replaces the values of an existing observation. The patient and
// owner of a row never change.
func (s *ObservationService) Update(ctx context.Context, caller *models.Caller, kind models.ObservationKind, id string, in dto.ObservationInput) (*models.Observation, error) {
	obs, err := s.loadAuthorized(ctx, caller, authz.OpUpdate, kind, id)
	if err != nil {
		return nil, err
	}
	if in == nil || in.Kind() != kind {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload does not match observation type")
	}
	if err := s.validator.ValidateValues(in); err != nil {
		return nil, err
	}
	errs := appErrors.FieldErrors{}
	if in.Member().Patient != obs.PatientID {
		errs.Add("patient", "patient cannot be changed")
	}
	if user := in.Member().User; user != nil && *user != "" && *user != obs.UserID {
		errs.Add("user", "owner cannot be changed")
	}
	if err := errs.Err("observation validation failed"); err != nil {
		return nil, err
	}

	before := *obs
	in.Apply(obs)
	if err := s.repo.Update(ctx, obs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update observation")
	}
	s.audit.emit(ctx, caller, models.AuditActionObservationUpdate, string(kind), obs.ID, before, obs)
	return obs, nil
}

// Delete removes one observation.
func (s *ObservationService) Delete(ctx context.Context, caller *models.Caller, kind models.ObservationKind, id string) error {
	obs, err := s.loadAuthorized(ctx, caller, authz.OpDelete, kind, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, kind, obs.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete observation")
	}
	s.audit.emit(ctx, caller, models.AuditActionObservationDelete, string(kind), obs.ID, obs, nil)
	return nil
}

// Grouped lists every requested variant for one patient. Count is the number
// of matching rows across the variants before the per variant limit applies.
func (s *ObservationService) Grouped(ctx context.Context, caller *models.Caller, query dto.ObservationListQuery) (*models.ObservationGroup, error) {
	if err := authz.Authorize(authz.Observations, caller, authz.OpList, nil); err != nil {
		return nil, err
	}
	kinds, filter, err := parseGroupedQuery(query)
	if err != nil {
		return nil, err
	}
	if caller.IsStudent() {
		filter.UserID = caller.AccountID
	}

	counts := make([]int, len(kinds))
	results := make([][]*models.Observation, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			rows, err := s.repo.List(gctx, kind, filter)
			if err != nil {
				return err
			}
			countFilter := filter
			countFilter.Limit = 0
			total, err := s.repo.Count(gctx, kind, countFilter)
			if err != nil {
				return err
			}
			results[i] = rows
			counts[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list observations")
	}

	group := &models.ObservationGroup{Results: make(map[models.ObservationKind][]*models.Observation, len(kinds))}
	for i, kind := range kinds {
		rows := results[i]
		if rows == nil {
			rows = []*models.Observation{}
		}
		group.Results[kind] = rows
		group.Count += counts[i]
	}
	return group, nil
}

// Export renders every visible observation of a patient as CSV or PDF.
func (s *ObservationService) Export(ctx context.Context, caller *models.Caller, patientID, rawFormat string) (*export.Document, error) {
	if err := authz.Authorize(authz.Observations, caller, authz.OpList, nil); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.FieldErrors{"format": {err.Error()}}.Err("invalid export request")
	}
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, appErrors.FieldErrors{"patient_id": {"must be a valid UUID"}}.Err("invalid export request")
	}
	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}

	filter := s.scope(caller, patientID)
	var rows []*models.Observation
	for _, kind := range models.ObservationKinds() {
		list, err := s.repo.List(ctx, kind, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list observations")
		}
		rows = append(rows, list...)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	dataset := export.Dataset{Headers: []string{"Recorded At", "Type", "Value", "Recorded By"}}
	for _, obs := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Recorded At": obs.CreatedAt.Format(time.RFC3339),
			"Type":        string(obs.Kind),
			"Value":       describeObservation(obs),
			"Recorded By": obs.UserID,
		})
	}
	base := fmt.Sprintf("observations_%s_%s", strings.ToLower(patient.MRN), time.Now().UTC().Format("20060102"))
	doc, err := s.renderer.Render(format, dataset, base, "Observations", patient.FullName(), "MRN "+patient.MRN)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return doc, nil
}

func (s *ObservationService) scope(caller *models.Caller, patientID string) models.ObservationFilter {
	filter := models.ObservationFilter{PatientID: patientID}
	if caller.IsStudent() {
		filter.UserID = caller.AccountID
	}
	return filter
}

func (s *ObservationService) loadAuthorized(ctx context.Context, caller *models.Caller, op authz.Operation, kind models.ObservationKind, id string) (*models.Observation, error) {
	if err := authz.Authorize(authz.Observations, caller, op, nil); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown observation type")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "observation not found")
	}
	obs, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load observation")
	}
	if err := authz.Authorize(authz.Observations, caller, op, authz.OwnedBy(obs.UserID)); err != nil {
		return nil, err
	}
	return obs, nil
}

func parseGroupedQuery(query dto.ObservationListQuery) ([]models.ObservationKind, models.ObservationFilter, error) {
	errs := appErrors.FieldErrors{}
	filter := models.ObservationFilter{PatientID: strings.TrimSpace(query.PatientID), Limit: defaultObservationPageSize}
	if filter.PatientID == "" {
		errs.Add("patient_id", "this field is required")
	} else if _, err := uuid.Parse(filter.PatientID); err != nil {
		errs.Add("patient_id", "must be a valid UUID")
	}

	if raw := strings.TrimSpace(query.PageSize); raw != "" {
		size, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			errs.Add("page_size", "must be an integer")
		case size < 1:
			filter.Limit = 1
		case size > maxObservationPageSize:
			filter.Limit = maxObservationPageSize
		default:
			filter.Limit = size
		}
	}

	switch strings.TrimSpace(query.Ordering) {
	case "", "-created_at":
	case "created_at":
		filter.Ascending = true
	default:
		errs.Add("ordering", "must be created_at or -created_at")
	}

	kinds := models.ObservationKinds()
	if raw := strings.TrimSpace(query.Types); raw != "" {
		kinds = kinds[:0]
		seen := make(map[models.ObservationKind]struct{})
		for _, part := range strings.Split(raw, ",") {
			kind, ok := models.ParseObservationKind(strings.TrimSpace(part))
			if !ok {
				errs.Add("types", fmt.Sprintf("unknown observation type %q", strings.TrimSpace(part)))
				continue
			}
			if _, dup := seen[kind]; dup {
				continue
			}
			seen[kind] = struct{}{}
			kinds = append(kinds, kind)
		}
	}

	if err := errs.Err("invalid observation query"); err != nil {
		return nil, filter, err
	}
	return kinds, filter, nil
}

func describeObservation(obs *models.Observation) string {
	switch obs.Kind {
	case models.KindNote:
		return derefString(obs.Content)
	case models.KindBloodPressure:
		return fmt.Sprintf("%d/%d mmHg", derefInt(obs.Systolic), derefInt(obs.Diastolic))
	case models.KindHeartRate:
		return fmt.Sprintf("%d bpm", derefInt(obs.HeartRate))
	case models.KindBodyTemperature:
		return fmt.Sprintf("%.1f C", derefFloat(obs.Temperature))
	case models.KindRespiratoryRate:
		return fmt.Sprintf("%d /min", derefInt(obs.RespiratoryRate))
	case models.KindBloodSugar:
		return fmt.Sprintf("%.1f mg/dL", derefFloat(obs.SugarLevel))
	case models.KindOxygenSaturation:
		return fmt.Sprintf("%d %%", derefInt(obs.SaturationPercentage))
	case models.KindPainScore:
		return fmt.Sprintf("%d/10", derefInt(obs.Score))
	}
	return ""
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
