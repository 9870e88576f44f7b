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
	"github.com/lib/pq"

	"github.com/noah-isme/dmr-api/internal/models"
)

const accountColumns = `id, username, password_hash, full_name, is_superuser, active, last_login, created_at, updated_at`

// AccountRepository provides database access for login accounts and their groups.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByUsername returns an account with its groups by username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(username) = LOWER($1) LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by username: %w", err)
	}
	if err := r.attachGroups(ctx, []*models.Account{&account}); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByID returns an account with its groups by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	if err := r.attachGroups(ctx, []*models.Account{&account}); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByIDs returns the accounts matching ids with their groups. Unknown ids
// are silently absent from the result.
func (r *AccountRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	if len(ids) == 0 {
		return []*models.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1) ORDER BY username`
	var accounts []*models.Account
	if err := r.db.SelectContext(ctx, &accounts, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find accounts by ids: %w", err)
	}
	if err := r.attachGroups(ctx, accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListStudentGroups returns active accounts belonging to no elevated group.
func (r *AccountRepository) ListStudentGroups(ctx context.Context, search string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a
WHERE a.active = TRUE AND a.is_superuser = FALSE
AND NOT EXISTS (SELECT 1 FROM account_groups g WHERE g.account_id = a.id AND g.group_name IN ('admin', 'instructor'))`
	var args []interface{}
	if search != "" {
		query += ` AND (LOWER(a.username) LIKE $1 OR LOWER(a.full_name) LIKE $1)`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += ` ORDER BY a.username`

	var accounts []*models.Account
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, fmt.Errorf("list student groups: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) attachGroups(ctx context.Context, accounts []*models.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(accounts))
	byID := make(map[string]*models.Account, len(accounts))
	for _, a := range accounts {
		a.Groups = []string{}
		ids = append(ids, a.ID)
		byID[a.ID] = a
	}

	const query = `SELECT account_id, group_name FROM account_groups WHERE account_id = ANY($1) ORDER BY group_name`
	var rows []struct {
		AccountID string `db:"account_id"`
		GroupName string `db:"group_name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load account groups: %w", err)
	}
	for _, row := range rows {
		if a, ok := byID[row.AccountID]; ok {
			a.Groups = append(a.Groups, row.GroupName)
		}
	}
	return nil
}

// Create inserts a new account and its group memberships.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (err error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create account: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO accounts (id, username, password_hash, full_name, is_superuser, active, created_at, updated_at) VALUES (:id, :username, :password_hash, :full_name, :is_superuser, :active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	for _, group := range account.Groups {
		if _, err = tx.ExecContext(ctx, `INSERT INTO account_groups (account_id, group_name) VALUES ($1, $2)`, account.ID, group); err != nil {
			return fmt.Errorf("create account group: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create account: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for an account.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE accounts SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *AccountRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
