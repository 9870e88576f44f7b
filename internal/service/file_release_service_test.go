package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/repository"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

const (
	groupA       = "8e7f6a5b-4c3d-4e2f-9a1b-0c9d8e7f6a5b"
	groupB       = "9f8a7b6c-5d4e-4f3a-8b2c-1d0e9f8a7b6c"
	tutorAccount = "a09b8c7d-6e5f-4a4b-9c3d-2e1f0a9b8c7d"
)

type releaseRepoStub struct {
	items map[string]*models.ApprovedFile
}

func newReleaseRepoStub() *releaseRepoStub {
	return &releaseRepoStub{items: make(map[string]*models.ApprovedFile)}
}

func (s *releaseRepoStub) FindByID(ctx context.Context, id string) (*models.ApprovedFile, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (s *releaseRepoStub) ListByFile(ctx context.Context, fileID string) ([]*models.ApprovedFile, error) {
	var out []*models.ApprovedFile
	for _, item := range s.items {
		if item.FileID == fileID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *releaseRepoStub) CreateManualReleases(ctx context.Context, fileID string, releases []*models.ApprovedFile) error {
	var dup []string
	for _, rel := range releases {
		for _, existing := range s.items {
			if existing.FileID == fileID && existing.ReleasedToUser != nil && *existing.ReleasedToUser == *rel.ReleasedToUser {
				dup = append(dup, *rel.ReleasedToUser)
			}
		}
	}
	if len(dup) > 0 {
		return &repository.DuplicateReleaseError{FileID: fileID, AccountIDs: dup}
	}
	for i, rel := range releases {
		rel.ID = []string{"b1c2d3e4-f5a6-4b7c-8d9e-0f1a2b3c4d5e", "c2d3e4f5-a6b7-4c8d-9e0f-1a2b3c4d5e6f"}[i]
		rel.FileID = fileID
		s.items[rel.ID] = rel
	}
	return nil
}

func (s *releaseRepoStub) UpdatePageRange(ctx context.Context, id, pageRange string) error {
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.PageRange = pageRange
	return nil
}

func (s *releaseRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

type accountLookupStub struct {
	accounts []*models.Account
}

func (s accountLookupStub) FindByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range s.accounts {
		for _, id := range ids {
			if a.ID == id {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (s accountLookupStub) ListStudentGroups(ctx context.Context, search string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range s.accounts {
		if len(a.Groups) == 0 {
			out = append(out, a)
		}
	}
	return out, nil
}

func newReleaseFixture(t *testing.T) (*FileReleaseService, *releaseRepoStub, *auditLoggerStub) {
	t.Helper()
	repo := newReleaseRepoStub()
	audit := &auditLoggerStub{}
	accounts := accountLookupStub{accounts: []*models.Account{
		{ID: groupA, Username: "group-a", Active: true},
		{ID: groupB, Username: "group-b", Active: true},
		{ID: tutorAccount, Username: "tutor", Active: true, Groups: []string{models.GroupInstructor}},
	}}
	return NewFileReleaseService(repo, sampleFiles(), accounts, nil, audit, nil, nil), repo, audit
}

func TestReleaseToStudentGroups(t *testing.T) {
	svc, repo, audit := newReleaseFixture(t)

	releases, err := svc.Release(context.Background(), instructorCaller, pdfFileID, dto.ManualReleaseRequest{
		StudentGroupIDs: []string{groupB, groupA, groupA},
		PageRange:       "4,1-2",
	})
	require.NoError(t, err)
	require.Len(t, releases, 2)
	for _, rel := range releases {
		assert.Equal(t, "1-2,4", rel.PageRange)
		assert.Nil(t, rel.RequestID)
		assert.Equal(t, instructorCaller.AccountID, *rel.ReleasedBy)
	}
	assert.Len(t, repo.items, 2)
	assert.Len(t, audit.logs, 2)

	_, err = svc.Release(context.Background(), instructorCaller, pdfFileID, dto.ManualReleaseRequest{
		StudentGroupIDs: []string{groupA},
		PageRange:       "1",
	})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrIntegrityConflict.Code, appErr.Code)
	assert.Equal(t, []string{groupA}, appErr.Details["student_group_ids"])
	assert.Len(t, repo.items, 2)
}

func TestReleaseValidation(t *testing.T) {
	missing := "d3e4f5a6-b7c8-4d9e-8f0a-2b3c4d5e6f70"
	cases := map[string]struct {
		fileID string
		req    dto.ManualReleaseRequest
		field  string
	}{
		"no groups":            {pdfFileID, dto.ManualReleaseRequest{PageRange: "1"}, "student_group_ids"},
		"unknown group":        {pdfFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{missing}, PageRange: "1"}, "student_group_ids"},
		"instructor account":   {pdfFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{tutorAccount}, PageRange: "1"}, "student_group_ids"},
		"range on unpaginated": {imageFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{groupA}, PageRange: "1"}, "page_range"},
		"missing range":        {pdfFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{groupA}}, "page_range"},
		"unparsable range":     {pdfFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{groupA}, PageRange: "0-2"}, "page_range"},
		"oversized range":      {pdfFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{groupA}, PageRange: "1-2000000000"}, "page_range"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, repo, _ := newReleaseFixture(t)
			_, err := svc.Release(context.Background(), adminCaller, tc.fileID, tc.req)
			appErr := appErrors.FromError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Contains(t, appErr.Details, tc.field)
			assert.Empty(t, repo.items)
		})
	}
}

func TestUpdateAndRevokeRelease(t *testing.T) {
	svc, repo, audit := newReleaseFixture(t)
	ctx := context.Background()
	releases, err := svc.Release(ctx, instructorCaller, pdfFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{groupA}, PageRange: "1"})
	require.NoError(t, err)
	id := releases[0].ID

	updated, err := svc.UpdateRelease(ctx, instructorCaller, id, dto.UpdateReleaseRequest{PageRange: "3-5, 1"})
	require.NoError(t, err)
	assert.Equal(t, "1,3-5", updated.PageRange)
	assert.Equal(t, "1,3-5", repo.items[id].PageRange)

	_, err = svc.UpdateRelease(ctx, instructorCaller, id, dto.UpdateReleaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateRelease(ctx, instructorCaller, id, dto.UpdateReleaseRequest{PageRange: "1-2000000000"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "1,3-5", repo.items[id].PageRange)

	listed, err := svc.ListReleases(ctx, instructorCaller, pdfFileID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, svc.Revoke(ctx, instructorCaller, id))
	assert.Empty(t, repo.items)
	assert.Equal(t, models.AuditActionFileReleaseRevoke, audit.logs[len(audit.logs)-1].Action)
	assert.ErrorIs(t, svc.Revoke(ctx, instructorCaller, id), appErrors.ErrNotFound)
}

func TestReleaseRequiresStaff(t *testing.T) {
	svc, _, _ := newReleaseFixture(t)

	_, err := svc.Release(context.Background(), studentCaller, pdfFileID, dto.ManualReleaseRequest{StudentGroupIDs: []string{groupA}, PageRange: "1"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	groups, err := svc.StudentGroups(context.Background(), instructorCaller, "")
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}
