package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindWithReviews loads the product and its reviews, newest first.
func (r *Repository) FindWithReviews(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts the product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update persists every column of the product except derived review stats.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("*").
		Omit("id", "rating", "review_count", "created_at", "Reviews").
		Updates(product).Error
}

// DetachFromCarts drops the product's cart lines and recomputes the total of
// every cart that held one.
func (r *Repository) DetachFromCarts(ctx context.Context, productID uuid.UUID) error {
	var cartIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("product_id = ?", productID).
		Distinct("cart_id").
		Pluck("cart_id", &cartIDs).Error
	if err != nil {
		return err
	}
	if len(cartIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id IN ?", cartIDs).
		Update("total_cents", gorm.Expr(
			"COALESCE((SELECT SUM(cart_items.unit_price_cents * cart_items.quantity) FROM cart_items WHERE cart_items.cart_id = carts.id), 0)",
		)).Error
}

// Delete removes the product. Wishlist and review rows cascade; callers detach
// cart lines first so cart totals stay in step.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List returns one page of products matching the filters plus the total match count.
func (r *Repository) List(ctx context.Context, input ListProductsInput) ([]models.Product, int64, error) {
	query := applyFilters(r.db.WithContext(ctx).Model(&models.Product{}), input.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := input.Pagination.Normalize()
	var rows []models.Product
	err := query.
		Order(input.Sort.OrderClause()).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyFilters(query *gorm.DB, f ProductListFilters) *gorm.DB {
	if c := strings.TrimSpace(f.Category); c != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(c))
	}
	if b := strings.TrimSpace(f.Brand); b != "" {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(b))
	}
	if f.MinPriceCents != nil {
		query = query.Where("price_cents >= ?", *f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		query = query.Where("price_cents <= ?", *f.MaxPriceCents)
	}
	if f.MinRating != nil {
		query = query.Where("rating >= ?", *f.MinRating)
	}
	if f.Featured != nil {
		query = query.Where("featured = ?", *f.Featured)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\' OR LOWER(brand) LIKE ? ESCAPE '\\'",
			like, like, like,
		)
	}
	return query
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// sortOrDefault keeps unknown sort keys on the newest ordering.
func sortOrDefault(raw string) enums.ProductSort {
	return enums.ParseProductSort(strings.TrimSpace(strings.ToLower(raw)))
}
