package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestNeedsDB(t *testing.T) {
	assert.False(t, needsDB(cmdCreate))
	assert.False(t, needsDB(cmdValidate))
	assert.True(t, needsDB(cmdUp))
	assert.True(t, needsDB(cmdSetRole))
}

func TestRunOfflineCreatesAndValidatesMigration(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, runOffline(options{cmd: cmdCreate, dir: dir, name: "Add Coupon Codes"}, &out))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_add_coupon_codes.sql"))
	assert.Contains(t, out.String(), filepath.Join(dir, entries[0].Name()))

	out.Reset()
	require.NoError(t, runOffline(options{cmd: cmdValidate, dir: dir}, &out))
	assert.Contains(t, out.String(), "passed")

	assert.Error(t, runOffline(options{cmd: cmdCreate, dir: dir}, &out))
}

func TestRunWithDBMigratesSQLiteFromModels(t *testing.T) {
	client := dbtest.New(t)
	var out bytes.Buffer

	require.NoError(t, runWithDB(context.Background(), options{cmd: cmdUp, sqlite: true}, client, &out))
	assert.Contains(t, out.String(), "sqlite schema migrated")

	err := runWithDB(context.Background(), options{cmd: cmdDown, sqlite: true}, client, &out)
	assert.ErrorIs(t, err, errSQLiteGoose)
}

func TestRunWithDBSetRolePromotesFirstAdmin(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()
	repo := users.NewRepository(client.DB())
	_, err := repo.Create(ctx, users.CreateUserDTO{Name: "Owner", Email: "owner@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	var out bytes.Buffer
	opts := options{cmd: cmdSetRole, email: "Owner@Example.com", role: "admin", sqlite: true}
	require.NoError(t, runWithDB(ctx, opts, client, &out))
	assert.Equal(t, "owner@example.com is now admin\n", out.String())

	user, err := repo.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, user.Role)
}

func TestRunWithDBSetRoleRejectsBadInput(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()
	var out bytes.Buffer

	err := runWithDB(ctx, options{cmd: cmdSetRole, role: "admin"}, client, &out)
	assert.EqualError(t, err, "missing -email for set-role")

	err = runWithDB(ctx, options{cmd: cmdSetRole, email: "a@example.com", role: "superuser"}, client, &out)
	assert.EqualError(t, err, `invalid -role "superuser"`)

	err = runWithDB(ctx, options{cmd: cmdSetRole, email: "ghost@example.com", role: "admin"}, client, &out)
	assert.EqualError(t, err, "no account registered for ghost@example.com")

	err = runWithDB(ctx, options{cmd: "reset"}, client, &out)
	assert.EqualError(t, err, "unknown -cmd value: reset")
}
