// Package dbtest opens throwaway in-memory SQLite databases with the full
// schema for package tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// New returns a migrated client whose database disappears with the test.
func New(t testing.TB) *db.Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    "file:dbtest_" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.AutoMigrateModels(context.Background(), client); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// MustCreateUser inserts a user with the given role.
func MustCreateUser(t testing.TB, client *db.Client, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test " + string(role),
		Email:        fmt.Sprintf("user_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Role:         role,
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCreateProduct inserts a product priced in cents with the given stock.
func MustCreateProduct(t testing.TB, client *db.Client, title string, priceCents int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:      title,
		PriceCents: priceCents,
		Category:   "General",
		Brand:      "Acme",
		Images:     types.StringList{"https://img.example.com/" + uuid.NewString() + ".jpg"},
		Stock:      stock,
	}
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// ReloadProduct reads the product back from the database.
func ReloadProduct(t testing.TB, client *db.Client, id uuid.UUID) *models.Product {
	t.Helper()
	var product models.Product
	if err := client.DB().First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}
