package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

type mockAuthRepo struct {
	accounts         map[string]*models.Account
	findErr          error
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, acc := range m.accounts {
		if acc.Username == username {
			return acc, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	acc, ok := m.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return acc, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthFixture(t *testing.T, accounts ...*models.Account) (*AuthService, *mockAuthRepo) {
	t.Helper()
	repo := &mockAuthRepo{accounts: make(map[string]*models.Account)}
	for _, acc := range accounts {
		repo.accounts[acc.ID] = acc
	}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "dmr-api"})
	return svc, repo
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "ward-team-1", PasswordHash: hashed(t, "password"), Active: true, Groups: []string{models.GroupInstructor}}
	svc, repo := newAuthFixture(t, acc)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Username: "ward-team-1", Password: "password", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, models.RoleInstructor, res.Account.Role)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "ward-team-1", PasswordHash: hashed(t, "password"), Active: true}
	svc, _ := newAuthFixture(t, acc)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "ward-team-1", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "unknown", Password: "password"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "ward-team-1", PasswordHash: hashed(t, "password"), Active: false}
	svc, _ := newAuthFixture(t, acc)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "ward-team-1", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login(context.Background(), dto.LoginRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "ward-team-1"}
	svc, _ := newAuthFixture(t, acc)
	token, _, err := svc.generateAccessToken(acc)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.AccountID)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "different"})
	_, err = other.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthenticateResolvesRoleFromCurrentGroups(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "tutor", Active: true}
	svc, _ := newAuthFixture(t, acc)
	token, _, err := svc.generateAccessToken(acc)
	require.NoError(t, err)

	caller, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, caller.Role)

	// Promotion takes effect without a new token.
	acc.Groups = []string{models.GroupInstructor}
	caller, err = svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, caller.Role)
	assert.Equal(t, "a1", caller.AccountID)
}

func TestAuthenticateRejectsInactiveAndUnknown(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "team", Active: true}
	svc, repo := newAuthFixture(t, acc)
	token, _, err := svc.generateAccessToken(acc)
	require.NoError(t, err)

	acc.Active = false
	_, err = svc.Authenticate(context.Background(), token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	delete(repo.accounts, "a1")
	_, err = svc.Authenticate(context.Background(), token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceMe(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "team", FullName: "Ward Team", Active: true, Groups: []string{"cohort-a"}}
	svc, _ := newAuthFixture(t, acc)

	info, err := svc.Me(context.Background(), &models.Caller{AccountID: "a1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "Ward Team", info.FullName)
	assert.Equal(t, []string{"cohort-a"}, info.Groups)

	_, err = svc.Me(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestLogoutRevokesOnlyThatToken(t *testing.T) {
	acc := &models.Account{ID: "a1", Username: "team", Active: true}
	svc, repo := newAuthFixture(t, acc)
	ctx := context.Background()

	first, _, err := svc.generateAccessToken(acc)
	require.NoError(t, err)
	second, _, err := svc.generateAccessToken(acc)
	require.NoError(t, err)

	caller, err := svc.Authenticate(ctx, first)
	require.NoError(t, err)
	require.NotEmpty(t, caller.TokenID)
	require.NoError(t, svc.Logout(ctx, caller, "10.0.0.9", "ward-tablet"))

	_, err = svc.Authenticate(ctx, first)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.Authenticate(ctx, second)
	assert.NoError(t, err)

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogout, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.9", repo.auditLogs[0].IPAddress)

	assert.ErrorIs(t, svc.Logout(ctx, nil, "", ""), appErrors.ErrUnauthorized)
	assert.ErrorIs(t, svc.Logout(ctx, &models.Caller{AccountID: "a1"}, "", ""), appErrors.ErrUnauthorized)
}

func TestLogoutIsSharedThroughCache(t *testing.T) {
	cache, _ := newCacheFixture(t)
	acc := &models.Account{ID: "a1", Username: "team", Active: true}
	repo := &mockAuthRepo{accounts: map[string]*models.Account{"a1": acc}}
	cfg := AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour}
	nodeA := NewAuthService(repo, NewTokenRevocations(cache), nil, nil, cfg)
	nodeB := NewAuthService(repo, NewTokenRevocations(cache), nil, nil, cfg)
	ctx := context.Background()

	token, _, err := nodeA.generateAccessToken(acc)
	require.NoError(t, err)
	caller, err := nodeA.Authenticate(ctx, token)
	require.NoError(t, err)
	require.NoError(t, nodeA.Logout(ctx, caller, "", ""))

	_, err = nodeB.Authenticate(ctx, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoked")
}

func TestTokenRevocationsExpire(t *testing.T) {
	revocations := NewTokenRevocations(nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	revocations.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, revocations.Revoke(ctx, "jti-1", now.Add(time.Minute)))
	require.NoError(t, revocations.Revoke(ctx, "jti-old", now.Add(-time.Minute)))
	assert.True(t, revocations.Revoked(ctx, "jti-1"))
	assert.False(t, revocations.Revoked(ctx, "jti-old"))
	assert.False(t, revocations.Revoked(ctx, ""))

	now = now.Add(2 * time.Minute)
	assert.False(t, revocations.Revoked(ctx, "jti-1"))
	require.NoError(t, revocations.Revoke(ctx, "jti-2", now.Add(time.Minute)))
	assert.Len(t, revocations.local, 1)
}
