package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service exposes catalog browsing and admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ProductInput holds the validated payload to create or replace a product.
type ProductInput struct {
	Title          string
	Description    string
	Price          float64
	OriginalPrice  *float64
	Discount       *int
	Category       string
	Brand          string
	Images         []string
	Stock          int
	Specifications map[string]string
	Features       []string
	Featured       bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx   txRunner
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(tx txRunner, repo *Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	f := input.Filters
	if f.MinPriceCents != nil && f.MaxPriceCents != nil && *f.MinPriceCents > *f.MaxPriceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	input.Sort = sortOrDefault(string(input.Sort))
	input.Pagination = input.Pagination.Normalize()

	rows, total, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Internal(err, "list products")
	}

	products := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		products = append(products, *FromModel(&rows[i]))
	}
	return &ProductListResult{
		Products:   products,
		Pagination: pagination.NewMeta(input.Pagination, total),
	}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindWithReviews(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(product), nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	product := &models.Product{}
	if err := applyInput(product, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Internal(err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if err := applyInput(product, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Internal(err, "update product")
	}
	return FromModel(product), nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DetachFromCarts(ctx, id); err != nil {
			return pkgerrors.Internal(err, "detach product from carts")
		}
		deleted, err := repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Internal(err, "delete product")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil
	})
}

func applyInput(product *models.Product, input ProductInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.Price <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	images := make(types.StringList, 0, len(input.Images))
	for _, img := range input.Images {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			images = append(images, trimmed)
		}
	}
	if len(images) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	if input.Discount != nil && (*input.Discount < 0 || *input.Discount > 100) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
	}

	product.Title = title
	product.Description = strings.TrimSpace(input.Description)
	product.PriceCents = money.CentsFromFloat(input.Price)
	product.OriginalPriceCents = nil
	if input.OriginalPrice != nil {
		original := money.CentsFromFloat(*input.OriginalPrice)
		product.OriginalPriceCents = &original
	}
	product.DiscountPercent = input.Discount
	product.Category = strings.TrimSpace(input.Category)
	product.Brand = strings.TrimSpace(input.Brand)
	product.Images = images
	product.Stock = input.Stock
	product.Specifications = types.StringMap(input.Specifications)
	product.Features = types.StringList(input.Features)
	product.Featured = input.Featured
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Product not found")
	}
	return pkgerrors.Internal(err, "load product")
}
