package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const (
	cmdUp       = "up"
	cmdDown     = "down"
	cmdStatus   = "status"
	cmdVersion  = "version"
	cmdCreate   = "create"
	cmdValidate = "validate"
	cmdSetRole  = "set-role"
)

var errSQLiteGoose = errors.New("goose migrations target postgres; sqlite databases only support -cmd=up")

type options struct {
	cmd     string
	dir     string
	name    string
	version string
	email   string
	role    string
	sqlite  bool
}

// needsDB reports whether the command talks to the storefront database.
func needsDB(cmd string) bool {
	switch cmd {
	case cmdCreate, cmdValidate:
		return false
	}
	return true
}

// runOffline handles the commands that only touch the migrations directory.
func runOffline(opts options, out io.Writer) error {
	switch opts.cmd {
	case cmdCreate:
		if strings.TrimSpace(opts.name) == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Fprintln(out, "created migration:", path)
	case cmdValidate:
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Fprintln(out, "migration validation passed")
	default:
		return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}
	return nil
}

// runWithDB handles schema changes and the admin bootstrap. SQLite databases
// (local development and tests) are built from the models instead of goose.
func runWithDB(ctx context.Context, opts options, client *db.Client, out io.Writer) error {
	switch opts.cmd {
	case cmdSetRole:
		return setRole(ctx, opts, users.NewRepository(client.DB()), out)
	case cmdUp, cmdDown, cmdStatus, cmdVersion:
	default:
		return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}

	if opts.sqlite {
		if opts.cmd != cmdUp {
			return errSQLiteGoose
		}
		if err := migrate.AutoMigrateModels(ctx, client); err != nil {
			return err
		}
		fmt.Fprintln(out, "sqlite schema migrated from models")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	if opts.cmd == cmdVersion {
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	}
	return migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
}

type roleSetter interface {
	SetRole(ctx context.Context, email string, role enums.UserRole) (*models.User, error)
}

// setRole promotes (or demotes) an existing account, typically the first admin.
func setRole(ctx context.Context, opts options, repo roleSetter, out io.Writer) error {
	email := users.NormalizeEmail(opts.email)
	if email == "" {
		return errors.New("missing -email for set-role")
	}
	role := enums.UserRole(strings.ToLower(strings.TrimSpace(opts.role)))
	if !role.IsValid() {
		return fmt.Errorf("invalid -role %q", opts.role)
	}
	user, err := repo.SetRole(ctx, email, role)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no account registered for %s", email)
	}
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	fmt.Fprintf(out, "%s is now %s\n", user.Email, user.Role)
	return nil
}
