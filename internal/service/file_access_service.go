package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/pagerange"
	"github.com/noah-isme/dmr-api/pkg/storage"
)

// File view outcomes recorded in metrics.
const (
	viewServed   = "served"
	viewDenied   = "denied"
	viewNotFound = "not_found"
	viewInvalid  = "invalid"
)

type fileLookup interface {
	FindByID(ctx context.Context, id string) (*models.File, error)
	ListByPatient(ctx context.Context, patientID string) ([]*models.File, error)
}

type grantFinder interface {
	FindGrants(ctx context.Context, fileID, accountID string) ([]*models.ApprovedFile, error)
	ListGrantedFiles(ctx context.Context, patientID, accountID string) ([]*models.File, error)
}

type pageExtractor interface {
	PageCount(rs io.ReadSeeker) (int, error)
	Extract(rs io.ReadSeeker, pages pagerange.Range) ([]byte, error)
}

// FileContent is a readable file body ready to stream. Callers must close Body.
type FileContent struct {
	File        *models.File
	ContentType string
	Size        int64
	Body        io.ReadCloser
	Pages       []int
}

// FileAccessService gates reads of patient files on the caller's grants.
type FileAccessService struct {
	files     fileLookup
	grants    grantFinder
	patients  patientExistence
	blobs     storage.BlobStore
	extractor pageExtractor
	cache     *CacheService
	metrics   *MetricsService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewFileAccessService constructs the access gate.
func NewFileAccessService(files fileLookup, grants grantFinder, patients patientExistence, blobs storage.BlobStore, extractor pageExtractor, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *FileAccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileAccessService{
		files:     files,
		grants:    grants,
		patients:  patients,
		blobs:     blobs,
		extractor: extractor,
		cache:     cache,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Resolve returns the caller's grant on file. Staff are unrestricted; students
// need at least one approved file row, and their page ranges are merged.
func (s *FileAccessService) Resolve(ctx context.Context, file *models.File, caller *models.Caller) (*models.FileGrant, error) {
	if caller == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if caller.IsStaff() {
		return &models.FileGrant{FileID: file.ID, Unrestricted: true}, nil
	}
	start := time.Now()
	rows, err := s.grants.FindGrants(ctx, file.ID, caller.AccountID)
	s.metrics.ObserveDBQuery("file_grants", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve file access")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if !file.RequiresPagination {
		return &models.FileGrant{FileID: file.ID, Unrestricted: true}, nil
	}
	var pages pagerange.Range
	for _, row := range rows {
		r, err := pagerange.Parse(row.PageRange)
		if err != nil {
			if !errors.Is(err, pagerange.ErrEmpty) {
				s.logger.Warn("ignoring unparsable page range", zap.String("approved_file_id", row.ID), zap.Error(err))
			}
			continue
		}
		pages = pages.Union(r)
	}
	if pages.Empty() {
		return nil, nil
	}
	return &models.FileGrant{FileID: file.ID, Pages: pages}, nil
}

// List returns the patient's files visible to the caller.
func (s *FileAccessService) List(ctx context.Context, caller *models.Caller, patientID string) ([]*models.File, error) {
	if err := authz.Authorize(authz.FileContent, caller, authz.OpList, nil); err != nil {
		return nil, err
	}
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}

	files, _, err := readThrough(ctx, s.cache, FileListingKey(patientID, caller.AccountID), s.cacheTTL, func(ctx context.Context) ([]*models.File, error) {
		var (
			files []*models.File
			err   error
		)
		if caller.IsStaff() {
			files, err = s.files.ListByPatient(ctx, patientID)
		} else {
			files, err = s.grants.ListGrantedFiles(ctx, patientID, caller.AccountID)
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
		}
		if files == nil {
			files = []*models.File{}
		}
		return files, nil
	})
	return files, err
}

// Metadata returns one file with the caller's grant.
func (s *FileAccessService) Metadata(ctx context.Context, caller *models.Caller, patientID, fileID string) (*models.FileAccess, error) {
	file, grant, err := s.authorize(ctx, caller, patientID, fileID)
	if err != nil {
		return nil, err
	}
	return &models.FileAccess{File: file, Grant: grant}, nil
}

// View opens the file content. Paginated files are cut down to the requested
// pages, which default to the whole grant.
func (s *FileAccessService) View(ctx context.Context, caller *models.Caller, patientID, fileID string, query dto.FileViewQuery) (*FileContent, error) {
	content, outcome, err := s.view(ctx, caller, patientID, fileID, query)
	s.metrics.RecordFileView(outcome)
	return content, err
}

func (s *FileAccessService) view(ctx context.Context, caller *models.Caller, patientID, fileID string, query dto.FileViewQuery) (*FileContent, string, error) {
	file, grant, err := s.authorize(ctx, caller, patientID, fileID)
	if err != nil {
		return nil, outcomeOf(err), err
	}
	var requested pagerange.Range
	if file.RequiresPagination {
		if requested, err = requestedPages(query); err != nil {
			return nil, viewInvalid, err
		}
	}
	obj, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("file binary missing", zap.String("file_id", file.ID), zap.String("key", file.StorageKey))
			return nil, viewNotFound, appErrors.Clone(appErrors.ErrNotFound, "file content not found")
		}
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}

	if !file.RequiresPagination {
		return &FileContent{File: file, ContentType: file.MimeType, Size: obj.Size, Body: obj.Body}, viewServed, nil
	}

	data, err := io.ReadAll(obj.Body)
	_ = obj.Body.Close()
	if err != nil {
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file")
	}
	doc := bytes.NewReader(data)
	total, err := s.extractor.PageCount(doc)
	if err != nil {
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document pages")
	}

	if requested.Empty() {
		if grant.Unrestricted {
			requested = pagerange.Full(total)
		} else {
			requested = grant.Pages
		}
	}
	if beyond := requested.Beyond(total); !beyond.Empty() {
		return nil, viewInvalid, appErrors.FieldErrors{
			"pages": {fmt.Sprintf("document has %d pages; requested %s", total, beyond)},
		}.Err("requested pages do not exist")
	}
	if !grant.Unrestricted {
		if outside := grant.Pages.Outside(requested); !outside.Empty() {
			return nil, viewDenied, appErrors.WithDetails(appErrors.ErrForbidden, "pages not released", map[string][]string{
				"pages": {outside.String()},
			})
		}
	}

	out, err := s.extractor.Extract(doc, requested)
	if err != nil {
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to extract pages")
	}
	return &FileContent{
		File:        file,
		ContentType: models.MIMETypePDF,
		Size:        int64(len(out)),
		Body:        io.NopCloser(bytes.NewReader(out)),
		Pages:       requested.Pages(),
	}, viewServed, nil
}

func (s *FileAccessService) authorize(ctx context.Context, caller *models.Caller, patientID, fileID string) (*models.File, *models.FileGrant, error) {
	if err := authz.Authorize(authz.FileContent, caller, authz.OpRead, nil); err != nil {
		return nil, nil, err
	}
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.PatientID != patientID {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	grant, err := s.Resolve(ctx, file, caller)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Authorize(authz.FileContent, caller, authz.OpRead, authz.GrantedBy(grant)); err != nil {
		return nil, nil, err
	}
	return file, grant, nil
}

func (s *FileAccessService) requirePatient(ctx context.Context, patientID string) error {
	if _, err := uuid.Parse(patientID); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
	}
	exists, err := s.patients.Exists(ctx, patientID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify patient")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
	}
	return nil
}

// requestedPages reads ?page=N or ?pages=expr. Neither yields an empty range.
func requestedPages(query dto.FileViewQuery) (pagerange.Range, error) {
	page := strings.TrimSpace(query.Page)
	pages := strings.TrimSpace(query.Pages)
	switch {
	case page != "" && pages != "":
		return pagerange.Range{}, appErrors.FieldErrors{"pages": {"use either page or pages, not both"}}.Err("invalid page selection")
	case page != "":
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return pagerange.Range{}, appErrors.FieldErrors{"page": {"must be a positive integer"}}.Err("invalid page selection")
		}
		return pagerange.Parse(strconv.Itoa(n))
	case pages != "":
		r, err := pagerange.Parse(pages)
		if err != nil {
			return pagerange.Range{}, appErrors.FieldErrors{"pages": {err.Error()}}.Err("invalid page selection")
		}
		return r, nil
	}
	return pagerange.Range{}, nil
}

func outcomeOf(err error) string {
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrNotFound.Code:
		return viewNotFound
	case appErrors.ErrForbidden.Code, appErrors.ErrUnauthorized.Code:
		return viewDenied
	case appErrors.ErrValidation.Code:
		return viewInvalid
	}
	return "error"
}
