package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/repository"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/storage"
)

type patientRepository interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, id string, hook repository.FileReleaseHook) ([]*models.File, error)
}

// PatientService handles patient record use cases.
type PatientService struct {
	repo      patientRepository
	blobs     storage.BlobStore
	cache     *CacheService
	validator *validator.Validate
	audit     auditTrail
	logger    *zap.Logger
}

// NewPatientService constructs the patient service. blobs holds the binaries
// of the patient's files, which are released when the patient is deleted.
func NewPatientService(repo patientRepository, blobs storage.BlobStore, cache *CacheService, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{
		repo:      repo,
		blobs:     blobs,
		cache:     cache,
		validator: validate,
		audit:     newAuditTrail(audit, logger, "patient-service"),
		logger:    logger,
	}
}

// List returns patients and pagination metadata.
func (s *PatientService) List(ctx context.Context, caller *models.Caller, query dto.PatientQuery) ([]models.Patient, *models.Pagination, error) {
	if err := authz.Authorize(authz.Patients, caller, authz.OpList, nil); err != nil {
		return nil, nil, err
	}
	filter := models.PatientFilter{Search: query.Search, Ward: query.Ward, Page: query.Page, PageSize: query.PageSize}
	patients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return patients, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a patient by id.
func (s *PatientService) Get(ctx context.Context, caller *models.Caller, id string) (*models.Patient, error) {
	if err := authz.Authorize(authz.Patients, caller, authz.OpRead, nil); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Create registers a new patient.
func (s *PatientService) Create(ctx context.Context, caller *models.Caller, req dto.PatientRequest) (*models.Patient, error) {
	if err := authz.Authorize(authz.Patients, caller, authz.OpCreate, nil); err != nil {
		return nil, err
	}
	patient := &models.Patient{}
	if err := s.apply(patient, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrIntegrityConflict, "mrn already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create patient")
	}
	s.audit.emit(ctx, caller, models.AuditActionPatientCreate, "patient", patient.ID, nil, patient)
	return patient, nil
}

// Update replaces the editable fields of a patient.
func (s *PatientService) Update(ctx context.Context, caller *models.Caller, id string, req dto.PatientRequest) (*models.Patient, error) {
	if err := authz.Authorize(authz.Patients, caller, authz.OpUpdate, nil); err != nil {
		return nil, err
	}
	patient, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *patient
	if err := s.apply(patient, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, patient); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		case repository.IsUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrIntegrityConflict, "mrn already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update patient")
	}
	s.audit.emit(ctx, caller, models.AuditActionPatientUpdate, "patient", patient.ID, before, patient)
	return patient, nil
}

// Delete removes a patient together with its dependent records and the stored
// binaries of its files.
func (s *PatientService) Delete(ctx context.Context, caller *models.Caller, id string) error {
	if err := authz.Authorize(authz.Patients, caller, authz.OpDelete, nil); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
	}
	var hook repository.FileReleaseHook
	if s.blobs != nil {
		hook = releaseBinary(s.blobs)
	}
	files, err := s.repo.Delete(ctx, id, hook)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete patient")
	}
	if err := s.cache.Invalidate(ctx, FileListingPattern(id)); err != nil {
		s.logger.Warn("failed to invalidate file listings", zap.String("patient_id", id), zap.Error(err))
	}
	s.audit.emit(ctx, caller, models.AuditActionPatientDelete, "patient", id, map[string]int{"files": len(files)}, nil)
	return nil
}

func (s *PatientService) load(ctx context.Context, id string) (*models.Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
	}
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

func (s *PatientService) apply(patient *models.Patient, req dto.PatientRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationFailed(err, "invalid patient payload")
	}
	patient.FirstName = req.FirstName
	patient.LastName = req.LastName
	patient.MRN = req.MRN
	patient.Ward = req.Ward
	patient.Bed = req.Bed
	patient.PhoneNumber = req.PhoneNumber
	patient.Gender = req.Gender
	if patient.Gender == "" {
		patient.Gender = models.GenderUnspecified
	}
	patient.DateOfBirth = nil
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return appErrors.FieldErrors{"date_of_birth": {"must be a date formatted as YYYY-MM-DD"}}.Err("invalid patient payload")
		}
		patient.DateOfBirth = &dob
	}
	return nil
}
