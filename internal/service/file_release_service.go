package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/repository"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/pagerange"
)

type releaseStore interface {
	FindByID(ctx context.Context, id string) (*models.ApprovedFile, error)
	ListByFile(ctx context.Context, fileID string) ([]*models.ApprovedFile, error)
	CreateManualReleases(ctx context.Context, fileID string, releases []*models.ApprovedFile) error
	UpdatePageRange(ctx context.Context, id, pageRange string) error
	Delete(ctx context.Context, id string) error
}

type releaseFileLookup interface {
	FindByID(ctx context.Context, id string) (*models.File, error)
}

type releaseAccountLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]*models.Account, error)
	ListStudentGroups(ctx context.Context, search string) ([]*models.Account, error)
}

// FileReleaseService issues and manages manual file releases to student groups.
type FileReleaseService struct {
	repo      releaseStore
	files     releaseFileLookup
	accounts  releaseAccountLookup
	cache     *CacheService
	validator *validator.Validate
	audit     auditTrail
	logger    *zap.Logger
}

// NewFileReleaseService constructs the release service.
func NewFileReleaseService(repo releaseStore, files releaseFileLookup, accounts releaseAccountLookup, cache *CacheService, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *FileReleaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &FileReleaseService{
		repo:      repo,
		files:     files,
		accounts:  accounts,
		cache:     cache,
		validator: validate,
		audit:     newAuditTrail(audit, logger, "file-release-service"),
		logger:    logger,
	}
}

// Release grants a file to every listed student group. Nothing is stored if
// any group already holds a manual release of the file.
func (s *FileReleaseService) Release(ctx context.Context, caller *models.Caller, fileID string, req dto.ManualReleaseRequest) ([]*models.ApprovedFile, error) {
	if err := authz.Authorize(authz.FileReleases, caller, authz.OpCreate, nil); err != nil {
		return nil, err
	}
	file, err := s.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	errs := appErrors.FieldErrors{}
	if err := collectFieldErrors(errs, "", s.validator.Struct(req)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate release")
	}
	pageRange, msg := canonicalReleaseRange(file, req.PageRange)
	if msg != "" {
		errs.Add("page_range", msg)
	}
	if err := errs.Err("invalid release"); err != nil {
		return nil, err
	}

	ids := uniqueStrings(req.StudentGroupIDs)
	accounts, err := s.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student groups")
	}
	byID := make(map[string]*models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, id := range ids {
		account, ok := byID[id]
		switch {
		case !ok:
			errs.Add("student_group_ids", fmt.Sprintf("%s does not exist", id))
		case authz.ResolveRole(account) != models.RoleStudent:
			errs.Add("student_group_ids", fmt.Sprintf("%s is not a student group", id))
		}
	}
	if err := errs.Err("invalid release"); err != nil {
		return nil, err
	}

	releasedBy := caller.AccountID
	releases := make([]*models.ApprovedFile, 0, len(ids))
	for _, id := range ids {
		to := id
		by := releasedBy
		releases = append(releases, &models.ApprovedFile{ReleasedToUser: &to, ReleasedBy: &by, PageRange: pageRange})
	}
	if err := s.repo.CreateManualReleases(ctx, file.ID, releases); err != nil {
		var dup *repository.DuplicateReleaseError
		if errors.As(err, &dup) {
			return nil, appErrors.WithDetails(appErrors.ErrIntegrityConflict, "file already released to student group", map[string][]string{
				"student_group_ids": dup.AccountIDs,
			})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release file")
	}
	s.invalidate(ctx, file.PatientID)
	for _, rel := range releases {
		s.audit.emit(ctx, caller, models.AuditActionFileRelease, "approved_file", rel.ID, nil, rel)
	}
	s.logger.Info("file released", zap.String("file_id", file.ID), zap.Int("groups", len(releases)))
	return releases, nil
}

// ListReleases returns every grant on a file, request attached or manual.
func (s *FileReleaseService) ListReleases(ctx context.Context, caller *models.Caller, fileID string) ([]*models.ApprovedFile, error) {
	if err := authz.Authorize(authz.FileReleases, caller, authz.OpList, nil); err != nil {
		return nil, err
	}
	file, err := s.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByFile(ctx, file.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list releases")
	}
	return items, nil
}

// UpdateRelease replaces the page range of a grant.
func (s *FileReleaseService) UpdateRelease(ctx context.Context, caller *models.Caller, id string, req dto.UpdateReleaseRequest) (*models.ApprovedFile, error) {
	if err := authz.Authorize(authz.FileReleases, caller, authz.OpUpdate, nil); err != nil {
		return nil, err
	}
	grant, err := s.loadGrant(ctx, id)
	if err != nil {
		return nil, err
	}
	file, err := s.loadFile(ctx, grant.FileID)
	if err != nil {
		return nil, err
	}
	pageRange, msg := canonicalReleaseRange(file, req.PageRange)
	if msg != "" {
		return nil, appErrors.FieldErrors{"page_range": {msg}}.Err("invalid release")
	}
	before := *grant
	if err := s.repo.UpdatePageRange(ctx, grant.ID, pageRange); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approved file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update release")
	}
	grant.PageRange = pageRange
	s.invalidate(ctx, file.PatientID)
	s.audit.emit(ctx, caller, models.AuditActionFileReleaseUpdate, "approved_file", grant.ID, before, grant)
	return grant, nil
}

// Revoke deletes a grant.
func (s *FileReleaseService) Revoke(ctx context.Context, caller *models.Caller, id string) error {
	if err := authz.Authorize(authz.FileReleases, caller, authz.OpDelete, nil); err != nil {
		return err
	}
	grant, err := s.loadGrant(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, grant.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "approved file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke release")
	}
	if file, err := s.files.FindByID(ctx, grant.FileID); err == nil {
		s.invalidate(ctx, file.PatientID)
	} else {
		s.logger.Warn("failed to resolve file for cache invalidation", zap.String("file_id", grant.FileID), zap.Error(err))
	}
	s.audit.emit(ctx, caller, models.AuditActionFileReleaseRevoke, "approved_file", grant.ID, grant, nil)
	return nil
}

// StudentGroups lists the accounts files can be released to.
func (s *FileReleaseService) StudentGroups(ctx context.Context, caller *models.Caller, search string) ([]*models.Account, error) {
	if err := authz.Authorize(authz.FileReleases, caller, authz.OpList, nil); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListStudentGroups(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student groups")
	}
	return accounts, nil
}

func (s *FileReleaseService) loadFile(ctx context.Context, id string) (*models.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

func (s *FileReleaseService) loadGrant(ctx context.Context, id string) (*models.ApprovedFile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "approved file not found")
	}
	grant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approved file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved file")
	}
	return grant, nil
}

func (s *FileReleaseService) invalidate(ctx context.Context, patientID string) {
	if err := s.cache.Invalidate(ctx, FileListingPattern(patientID)); err != nil {
		s.logger.Warn("failed to invalidate file listings", zap.String("patient_id", patientID), zap.Error(err))
	}
}

// canonicalReleaseRange applies the page range rules shared by manual releases
// and request attachments. It returns the canonical range or a failure message.
func canonicalReleaseRange(file *models.File, raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if !file.RequiresPagination {
		if raw != "" {
			return "", "page_range only applies to paginated files"
		}
		return "", ""
	}
	if raw == "" {
		return "", "page_range is required for paginated files"
	}
	r, err := pagerange.Parse(raw)
	if err != nil {
		return "", err.Error()
	}
	return r.String(), ""
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
