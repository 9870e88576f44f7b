package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

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

type fileStore interface {
	Create(ctx context.Context, file *models.File) error
	FindByID(ctx context.Context, id string) (*models.File, error)
	Update(ctx context.Context, file *models.File) error
	Delete(ctx context.Context, id string, hook repository.FileReleaseHook) (*models.File, error)
}

// FileUpload carries the uploaded binary and its client supplied metadata.
type FileUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// FileServiceConfig holds upload validation parameters.
type FileServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// FileService manages clinical document metadata and binaries.
type FileService struct {
	repo      fileStore
	patients  patientExistence
	blobs     storage.BlobStore
	cache     *CacheService
	validator *validator.Validate
	audit     auditTrail
	logger    *zap.Logger
	cfg       FileServiceConfig
	mimeSet   map[string]struct{}
}

// NewFileService constructs the service with defaults.
func NewFileService(repo fileStore, patients patientExistence, blobs storage.BlobStore, cache *CacheService, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg FileServiceConfig) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{models.MIMETypePDF, "image/png", "image/jpeg"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &FileService{
		repo:      repo,
		patients:  patients,
		blobs:     blobs,
		cache:     cache,
		validator: validate,
		audit:     newAuditTrail(audit, logger, "file-service"),
		logger:    logger,
		cfg:       cfg,
		mimeSet:   mimeSet,
	}
}

// Upload stores the binary and records its metadata against a patient.
func (s *FileService) Upload(ctx context.Context, caller *models.Caller, patientID string, meta dto.UploadFileRequest, upload FileUpload) (*models.File, error) {
	if err := authz.Authorize(authz.Files, caller, authz.OpCreate, nil); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(meta); err != nil {
		return nil, validationFailed(err, "invalid file metadata")
	}
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
	}
	exists, err := s.patients.Exists(ctx, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify patient")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
	}

	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.FieldErrors{"file": {"file is required"}}.Err("invalid upload")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.FieldErrors{"file": {fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize)}}.Err("invalid upload")
	}
	mimeType, err := detectMime(upload.Content)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.FieldErrors{"file": {fmt.Sprintf("mime type %s not allowed", mimeType)}}.Err("invalid upload")
	}
	if meta.RequiresPagination && mimeType != models.MIMETypePDF {
		return nil, appErrors.FieldErrors{"requires_pagination": {"only PDF documents can be paginated"}}.Err("invalid upload")
	}

	name := strings.TrimSpace(meta.DisplayName)
	if name == "" {
		name = filepath.Base(upload.Filename)
	}
	file := &models.File{
		ID:                 uuid.NewString(),
		PatientID:          patientID,
		DisplayName:        name,
		Category:           strings.TrimSpace(meta.Category),
		MimeType:           mimeType,
		SizeBytes:          upload.Size,
		RequiresPagination: meta.RequiresPagination,
	}
	file.StorageKey = fmt.Sprintf("patients/%s/%s%s", patientID, file.ID, fileExtension(upload.Filename, mimeType))
	uploader := caller.AccountID
	file.UploadedBy = &uploader

	if err := s.blobs.Put(ctx, file.StorageKey, upload.Content, upload.Size, mimeType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if err := s.repo.Create(ctx, file); err != nil {
		if delErr := s.blobs.Delete(ctx, file.StorageKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned blob", zap.String("key", file.StorageKey), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create file metadata")
	}
	s.invalidate(ctx, patientID)
	s.audit.emit(ctx, caller, models.AuditActionFileUpload, "file", file.ID, nil, file)
	return file, nil
}

// Get returns file metadata for staff.
func (s *FileService) Get(ctx context.Context, caller *models.Caller, id string) (*models.File, error) {
	if err := authz.Authorize(authz.Files, caller, authz.OpRead, nil); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Update edits display metadata and the pagination flag.
func (s *FileService) Update(ctx context.Context, caller *models.Caller, id string, req dto.UpdateFileRequest) (*models.File, error) {
	if err := authz.Authorize(authz.Files, caller, authz.OpUpdate, nil); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailed(err, "invalid file metadata")
	}
	file, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *file
	if req.DisplayName != nil {
		file.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Category != nil {
		file.Category = strings.TrimSpace(*req.Category)
	}
	if req.RequiresPagination != nil {
		if *req.RequiresPagination && file.MimeType != models.MIMETypePDF {
			return nil, appErrors.FieldErrors{"requires_pagination": {"only PDF documents can be paginated"}}.Err("invalid file metadata")
		}
		file.RequiresPagination = *req.RequiresPagination
	}
	if err := s.repo.Update(ctx, file); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		case errors.Is(err, repository.ErrFileHasGrants):
			return nil, appErrors.WithDetails(appErrors.ErrIntegrityConflict, "file already released", map[string][]string{
				"requires_pagination": {"revoke existing releases before changing pagination"},
			})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update file")
	}
	s.invalidate(ctx, file.PatientID)
	s.audit.emit(ctx, caller, models.AuditActionFileUpdate, "file", file.ID, before, file)
	return file, nil
}

// Delete removes the metadata row and releases the stored binary in the same
// transaction. A missing binary does not block the delete.
func (s *FileService) Delete(ctx context.Context, caller *models.Caller, id string) error {
	if err := authz.Authorize(authz.Files, caller, authz.OpDelete, nil); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file, err := s.repo.Delete(ctx, id, releaseBinary(s.blobs))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	s.invalidate(ctx, file.PatientID)
	s.audit.emit(ctx, caller, models.AuditActionFileDelete, "file", file.ID, file, nil)
	return nil
}

// releaseBinary deletes the stored binary of a file. A binary that is
// already gone counts as released.
func releaseBinary(blobs storage.BlobStore) repository.FileReleaseHook {
	return func(ctx context.Context, file *models.File) error {
		if err := blobs.Delete(ctx, file.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return nil
	}
}

func (s *FileService) load(ctx context.Context, id string) (*models.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

func (s *FileService) invalidate(ctx context.Context, patientID string) {
	if err := s.cache.Invalidate(ctx, FileListingPattern(patientID)); err != nil {
		s.logger.Warn("failed to invalidate file listings", zap.String("patient_id", patientID), zap.Error(err))
	}
}

// detectMime sniffs the leading bytes; the client supplied content type is ignored.
func detectMime(content io.ReadSeeker) (string, error) {
	header := make([]byte, 512)
	n, err := content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.FieldErrors{"file": {"empty file"}}.Err("invalid upload")
	}
	mimeType := http.DetectContentType(header[:n])
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType)), nil
}

func fileExtension(original, mimeType string) string {
	if ext := strings.ToLower(filepath.Ext(original)); ext != "" && len(ext) <= 8 {
		return ext
	}
	switch mimeType {
	case models.MIMETypePDF:
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}
