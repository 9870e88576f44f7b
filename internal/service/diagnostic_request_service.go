package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/repository"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

type diagnosticRequestStore interface {
	Create(ctx context.Context, req *models.DiagnosticRequest) error
	FindByID(ctx context.Context, id string) (*models.DiagnosticRequest, error)
	List(ctx context.Context, filter models.DiagnosticRequestFilter) ([]*models.DiagnosticRequest, int, error)
	Update(ctx context.Context, req *models.DiagnosticRequest, expected models.RequestStatus) error
	Delete(ctx context.Context, id string, expected models.RequestStatus) error
	Transition(ctx context.Context, req *models.DiagnosticRequest, from models.RequestStatus, files []*models.ApprovedFile) error
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

type requestGrantLister interface {
	ListByRequest(ctx context.Context, requestID string) ([]*models.ApprovedFile, error)
}

type requestFileLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]*models.File, error)
}

// RequestSurface selects the policy a diagnostic request call is evaluated against.
type RequestSurface int

const (
	// SurfaceStudent is the owner scoped surface used by student groups.
	SurfaceStudent RequestSurface = iota
	// SurfaceManagement is the instructor surface that drives the workflow.
	SurfaceManagement
)

func (s RequestSurface) policy() *authz.Policy {
	if s == SurfaceManagement {
		return authz.DiagnosticRequestsManagement
	}
	return authz.DiagnosticRequests
}

// DiagnosticRequestService implements the imaging and blood test workflow.
type DiagnosticRequestService struct {
	repo      diagnosticRequestStore
	grants    requestGrantLister
	files     requestFileLookup
	patients  patientExistence
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	audit     auditTrail
	logger    *zap.Logger
}

// NewDiagnosticRequestService constructs the workflow service.
func NewDiagnosticRequestService(repo diagnosticRequestStore, grants requestGrantLister, files requestFileLookup, patients patientExistence, cache *CacheService, metrics *MetricsService, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *DiagnosticRequestService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosticRequestService{
		repo:      repo,
		grants:    grants,
		files:     files,
		patients:  patients,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		audit:     newAuditTrail(audit, logger, "diagnostic-request-service"),
		logger:    logger,
	}
}

// Create places a new request. On the student surface the owner is always
// the caller; management may create on behalf of another account.
func (s *DiagnosticRequestService) Create(ctx context.Context, caller *models.Caller, surface RequestSurface, in dto.DiagnosticRequestInput) (*models.DiagnosticRequest, error) {
	if err := authz.Authorize(surface.policy(), caller, authz.OpCreate, nil); err != nil {
		return nil, err
	}
	errs := appErrors.FieldErrors{}
	if err := collectFieldErrors(errs, "", s.validator.Struct(in)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate request")
	}
	checkRequestContent(errs, in.Kind, in.TestType, in.TestTypes)
	if errs.Empty() {
		if err := s.checkPatient(ctx, errs, in.Patient); err != nil {
			return nil, err
		}
	}
	if err := errs.Err("invalid diagnostic request"); err != nil {
		return nil, err
	}

	owner := caller.AccountID
	if surface == SurfaceManagement && in.User != nil && *in.User != "" {
		owner = *in.User
	}
	req := &models.DiagnosticRequest{
		Kind:                        in.Kind,
		PatientID:                   in.Patient,
		UserID:                      owner,
		TestType:                    strings.TrimSpace(in.TestType),
		TestTypes:                   models.StringList(in.TestTypes),
		Details:                     in.Details,
		ImagingFocus:                in.ImagingFocus,
		InfectionControlPrecautions: in.InfectionControlPrecautions,
		RequesterName:               in.RequesterName,
		RequesterRole:               in.RequesterRole,
		Status:                      models.StatusPending,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.FieldErrors{"user": {"account does not exist"}}.Err("invalid diagnostic request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create diagnostic request")
	}
	s.audit.emit(ctx, caller, models.AuditActionRequestCreate, "diagnostic_request", req.ID, nil, req)
	return req, nil
}

// List returns requests visible on the surface. Students only see their own.
func (s *DiagnosticRequestService) List(ctx context.Context, caller *models.Caller, surface RequestSurface, query dto.DiagnosticRequestQuery) ([]*models.DiagnosticRequest, *models.Pagination, error) {
	if err := authz.Authorize(surface.policy(), caller, authz.OpList, nil); err != nil {
		return nil, nil, err
	}
	filter := models.DiagnosticRequestFilter{PatientID: strings.TrimSpace(query.PatientID), Page: query.Page, PageSize: query.PageSize}
	errs := appErrors.FieldErrors{}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := models.RequestStatus(raw)
		if !status.Valid() {
			errs.Add("status", fmt.Sprintf("unknown status %q", raw))
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Kind); raw != "" {
		kind := models.DiagnosticRequestKind(raw)
		if !kind.Valid() {
			errs.Add("kind", fmt.Sprintf("unknown kind %q", raw))
		}
		filter.Kind = &kind
	}
	if filter.PatientID != "" {
		if _, err := uuid.Parse(filter.PatientID); err != nil {
			errs.Add("patient_id", "must be a valid UUID")
		}
	}
	if err := errs.Err("invalid request query"); err != nil {
		return nil, nil, err
	}
	if caller.IsStudent() {
		filter.UserID = caller.AccountID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list diagnostic requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one request. Approved files are included once the request is
// completed, and always for staff.
func (s *DiagnosticRequestService) Get(ctx context.Context, caller *models.Caller, surface RequestSurface, id string) (*models.DiagnosticRequest, error) {
	req, err := s.loadAuthorized(ctx, caller, surface, authz.OpRead, id)
	if err != nil {
		return nil, err
	}
	if caller.IsStaff() || req.Status == models.StatusCompleted {
		if err := s.attachFiles(ctx, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// Update edits descriptive fields. Status is never writable here.
func (s *DiagnosticRequestService) Update(ctx context.Context, caller *models.Caller, surface RequestSurface, id string, upd dto.DiagnosticRequestUpdate) (*models.DiagnosticRequest, error) {
	req, err := s.loadAuthorized(ctx, caller, surface, authz.OpUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(upd); err != nil {
		return nil, validationFailed(err, "invalid diagnostic request")
	}
	before := *req
	if upd.TestType != nil {
		req.TestType = strings.TrimSpace(*upd.TestType)
	}
	if upd.TestTypes != nil {
		req.TestTypes = models.StringList(*upd.TestTypes)
	}
	if upd.Details != nil {
		req.Details = *upd.Details
	}
	if upd.ImagingFocus != nil {
		req.ImagingFocus = *upd.ImagingFocus
	}
	if upd.InfectionControlPrecautions != nil {
		req.InfectionControlPrecautions = *upd.InfectionControlPrecautions
	}
	if upd.RequesterName != nil {
		req.RequesterName = *upd.RequesterName
	}
	if upd.RequesterRole != nil {
		req.RequesterRole = *upd.RequesterRole
	}
	errs := appErrors.FieldErrors{}
	checkRequestContent(errs, req.Kind, req.TestType, req.TestTypes)
	if err := errs.Err("invalid diagnostic request"); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, req, before.Status); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update diagnostic request")
	}
	s.audit.emit(ctx, caller, models.AuditActionRequestUpdate, "diagnostic_request", req.ID, before, req)
	return req, nil
}

// Delete removes a request. Students may only delete their own pending requests.
func (s *DiagnosticRequestService) Delete(ctx context.Context, caller *models.Caller, surface RequestSurface, id string) error {
	req, err := s.loadAuthorized(ctx, caller, surface, authz.OpDelete, id)
	if err != nil {
		return err
	}
	var expected models.RequestStatus
	if caller.IsStudent() {
		expected = models.StatusPending
	}
	if err := s.repo.Delete(ctx, req.ID, expected); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusChanged):
			return appErrors.Clone(appErrors.ErrForbidden, "request can only be changed while pending")
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "diagnostic request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete diagnostic request")
	}
	if req.Status == models.StatusCompleted {
		s.invalidateFiles(ctx, req.PatientID)
	}
	s.audit.emit(ctx, caller, models.AuditActionRequestDelete, "diagnostic_request", req.ID, req, nil)
	return nil
}

// UpdateStatus moves a request through its lifecycle. A present approved
// files list replaces the request's grants in the same transaction.
func (s *DiagnosticRequestService) UpdateStatus(ctx context.Context, caller *models.Caller, id string, in dto.StatusUpdateRequest) (*models.DiagnosticRequest, error) {
	req, err := s.loadAuthorized(ctx, caller, SurfaceManagement, authz.OpTransition, id)
	if err != nil {
		return nil, err
	}
	errs := appErrors.FieldErrors{}
	if err := collectFieldErrors(errs, "", s.validator.Struct(in)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate status update")
	}
	if in.Status != "" && !in.Status.Valid() {
		errs.Add("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	if err := errs.Err("invalid status update"); err != nil {
		return nil, err
	}

	from := req.Status
	if !models.CanTransition(from, in.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move request from %s to %s", from, in.Status))
	}

	var files []*models.ApprovedFile
	if in.ApprovedFiles != nil {
		if in.Status != models.StatusCompleted {
			return nil, appErrors.FieldErrors{"approved_files": {"files can only be attached when completing a request"}}.Err("invalid status update")
		}
		files, err = s.resolveAttachments(ctx, caller, req, *in.ApprovedFiles)
		if err != nil {
			return nil, err
		}
	}

	req.Status = in.Status
	req.StatusNote = in.Note
	if err := s.repo.Transition(ctx, req, from, files); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed, reload and retry")
		case repository.IsForeignKeyViolation(err):
			return nil, appErrors.FieldErrors{"approved_files": {"file no longer exists"}}.Err("invalid status update")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}
	s.metrics.RecordTransition(string(req.Kind), string(from), string(req.Status))
	if req.Status == models.StatusCompleted || files != nil {
		s.invalidateFiles(ctx, req.PatientID)
	}
	if err := s.attachFiles(ctx, req); err != nil {
		s.logger.Warn("failed to reload approved files", zap.String("request_id", req.ID), zap.Error(err))
	}
	s.audit.emit(ctx, caller, models.AuditActionRequestStatusChange, "diagnostic_request", req.ID,
		map[string]interface{}{"status": from},
		map[string]interface{}{"status": req.Status, "note": req.StatusNote, "approved_files": len(req.ApprovedFiles)})
	s.logger.Info("diagnostic request status changed",
		zap.String("request_id", req.ID), zap.String("from", string(from)), zap.String("to", string(req.Status)))
	return req, nil
}

// Stats summarises requests by kind and status.
func (s *DiagnosticRequestService) Stats(ctx context.Context, caller *models.Caller) (*models.DiagnosticRequestStats, error) {
	if err := authz.Authorize(authz.DiagnosticRequestsManagement, caller, authz.OpList, nil); err != nil {
		return nil, err
	}
	rows, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count diagnostic requests")
	}
	return models.NewDiagnosticRequestStats(rows), nil
}

func (s *DiagnosticRequestService) resolveAttachments(ctx context.Context, caller *models.Caller, req *models.DiagnosticRequest, inputs []dto.ApprovedFileInput) ([]*models.ApprovedFile, error) {
	errs := appErrors.FieldErrors{}
	ids := make([]string, 0, len(inputs))
	seen := make(map[string]int, len(inputs))
	for i, in := range inputs {
		key := fmt.Sprintf("approved_files[%d].file_id", i)
		if _, err := uuid.Parse(in.FileID); err != nil {
			errs.Add(key, "must be a valid UUID")
			continue
		}
		if prev, dup := seen[in.FileID]; dup {
			errs.Add(key, fmt.Sprintf("duplicates approved_files[%d]", prev))
			continue
		}
		seen[in.FileID] = i
		ids = append(ids, in.FileID)
	}
	if !errs.Empty() {
		return nil, errs.Err("invalid status update")
	}

	found, err := s.files.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load files")
	}
	byID := make(map[string]*models.File, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}

	releasedBy := caller.AccountID
	files := make([]*models.ApprovedFile, 0, len(inputs))
	for i, in := range inputs {
		file, ok := byID[in.FileID]
		if !ok || file.PatientID != req.PatientID {
			errs.Add(fmt.Sprintf("approved_files[%d].file_id", i), "file does not belong to the request's patient")
			continue
		}
		pageRange, msg := canonicalReleaseRange(file, in.PageRange)
		if msg != "" {
			errs.Add(fmt.Sprintf("approved_files[%d].page_range", i), msg)
			continue
		}
		by := releasedBy
		files = append(files, &models.ApprovedFile{FileID: file.ID, PageRange: pageRange, ReleasedBy: &by, File: file})
	}
	if err := errs.Err("invalid status update"); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *DiagnosticRequestService) loadAuthorized(ctx context.Context, caller *models.Caller, surface RequestSurface, op authz.Operation, id string) (*models.DiagnosticRequest, error) {
	policy := surface.policy()
	if err := authz.Authorize(policy, caller, op, nil); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "diagnostic request not found")
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "diagnostic request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load diagnostic request")
	}
	if err := authz.Authorize(policy, caller, op, authz.OwnedRequest(req)); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *DiagnosticRequestService) attachFiles(ctx context.Context, req *models.DiagnosticRequest) error {
	if s.grants == nil {
		return nil
	}
	grants, err := s.grants.ListByRequest(ctx, req.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved files")
	}
	if len(grants) > 0 && s.files != nil {
		ids := make([]string, len(grants))
		for i, g := range grants {
			ids[i] = g.FileID
		}
		files, err := s.files.FindByIDs(ctx, ids)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved files")
		}
		byID := make(map[string]*models.File, len(files))
		for _, f := range files {
			byID[f.ID] = f
		}
		for _, g := range grants {
			g.File = byID[g.FileID]
		}
	}
	req.ApprovedFiles = grants
	return nil
}

func (s *DiagnosticRequestService) checkPatient(ctx context.Context, errs appErrors.FieldErrors, patientID string) error {
	if s.patients == nil {
		return nil
	}
	exists, err := s.patients.Exists(ctx, patientID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify patient")
	}
	if !exists {
		errs.Add("patient", "patient does not exist")
	}
	return nil
}

func (s *DiagnosticRequestService) invalidateFiles(ctx context.Context, patientID string) {
	if err := s.cache.Invalidate(ctx, FileListingPattern(patientID)); err != nil {
		s.logger.Warn("failed to invalidate file listings", zap.String("patient_id", patientID), zap.Error(err))
	}
}

// checkRequestContent enforces the per kind test fields: imaging names one
// test_type, blood tests list test_types or name a single test_type.
func checkRequestContent(errs appErrors.FieldErrors, kind models.DiagnosticRequestKind, testType string, testTypes []string) {
	switch kind {
	case models.RequestKindImaging:
		if strings.TrimSpace(testType) == "" {
			errs.Add("test_type", "imaging requests require a test_type")
		}
		if len(testTypes) > 0 {
			errs.Add("test_types", "only blood test requests carry test_types")
		}
	case models.RequestKindBloodTest:
		if len(testTypes) == 0 && strings.TrimSpace(testType) == "" {
			errs.Add("test_types", "blood test requests require at least one test")
		}
	}
}
