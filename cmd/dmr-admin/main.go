package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/repository"
	"github.com/noah-isme/dmr-api/migrations"
	"github.com/noah-isme/dmr-api/pkg/config"
	"github.com/noah-isme/dmr-api/pkg/database"
	"github.com/noah-isme/dmr-api/pkg/logger"
)

const usage = `usage: dmr-admin <command> [flags]

commands:
  migrate          apply pending SQL migrations
  create-account   create a login account
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	switch os.Args[1] {
	case "migrate":
		applied, err := applyMigrations(ctx, db, migrations.FS)
		if err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Strings("versions", applied))
	case "create-account":
		opts, err := parseAccountFlags(os.Args[2:])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		account, err := provisionAccount(ctx, repository.NewAccountRepository(db), opts)
		if err != nil {
			logr.Fatal("failed to create account", zap.Error(err))
		}
		logr.Info("account created", zap.String("id", account.ID), zap.String("username", account.Username), zap.Strings("groups", account.Groups))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

type accountOptions struct {
	Username  string
	Password  string
	FullName  string
	Groups    []string
	Superuser bool
}

func parseAccountFlags(args []string) (accountOptions, error) {
	var (
		opts   accountOptions
		groups string
	)
	set := flag.NewFlagSet("create-account", flag.ContinueOnError)
	set.StringVar(&opts.Username, "username", "", "login name")
	set.StringVar(&opts.Password, "password", "", "initial password")
	set.StringVar(&opts.FullName, "full-name", "", "display name")
	set.StringVar(&groups, "groups", "", "comma separated groups (admin, instructor); empty for a student group")
	set.BoolVar(&opts.Superuser, "superuser", false, "grant every permission")
	if err := set.Parse(args); err != nil {
		return opts, err
	}
	if strings.TrimSpace(opts.Username) == "" || opts.Password == "" {
		return opts, errors.New("-username and -password are required")
	}
	for _, g := range strings.Split(groups, ",") {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if g != models.GroupAdmin && g != models.GroupInstructor {
			return opts, fmt.Errorf("unknown group %q", g)
		}
		opts.Groups = append(opts.Groups, g)
	}
	return opts, nil
}

type accountCreator interface {
	Create(ctx context.Context, account *models.Account) error
}

func provisionAccount(ctx context.Context, store accountCreator, opts accountOptions) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &models.Account{
		Username:     strings.TrimSpace(opts.Username),
		PasswordHash: string(hash),
		FullName:     opts.FullName,
		IsSuperuser:  opts.Superuser,
		Active:       true,
		Groups:       opts.Groups,
	}
	if err := store.Create(ctx, account); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("username %q already exists", account.Username)
		}
		return nil, err
	}
	return account, nil
}

// applyMigrations runs every *.sql file in fsys not yet recorded in
// schema_migrations, each inside its own transaction.
func applyMigrations(ctx context.Context, db *sqlx.DB, fsys fs.FS) ([]string, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	var done []string
	if err := db.SelectContext(ctx, &done, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	seen := make(map[string]struct{}, len(done))
	for _, v := range done {
		seen[v] = struct{}{}
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var applied []string
	for _, name := range files {
		version := strings.TrimSuffix(name, ".sql")
		if _, ok := seen[version]; ok {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return applied, err
		}
		if err := applyOne(ctx, db, version, string(body)); err != nil {
			return applied, err
		}
		applied = append(applied, version)
	}
	return applied, nil
}

func applyOne(ctx context.Context, db *sqlx.DB, version, body string) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("apply %s: %w", version, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record %s: %w", version, err)
	}
	return tx.Commit()
}
