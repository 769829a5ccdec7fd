package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	msgCartNotFound      = "Cart not found"
	msgItemNotFound      = "Item not found in cart"
	msgProductNotFound   = "Product not found"
	msgInsufficientStock = "Insufficient stock"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service maintains each user's single cart.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	tx          txRunner
	repo        *Repository
	productRepo *products.Repository
}

// NewService builds the cart service.
func NewService(tx txRunner, repo *Repository, productRepo *products.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{tx: tx, repo: repo, productRepo: productRepo}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Internal(err, "load cart")
		}
		// lines can disappear underneath the cart when a product is deleted
		if err := syncTotal(ctx, repo, record); err != nil {
			return err
		}
		out = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := s.loadProduct(ctx, tx, input.ProductID)
		if err != nil {
			return err
		}
		if input.Quantity > product.Stock {
			return insufficientStock(product, input.Quantity)
		}

		record, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Internal(err, "load cart")
		}

		if line := findLine(record, input.ProductID); line != nil {
			// price captured at first add is kept
			if err := repo.UpdateLineQuantity(ctx, line.ID, line.Quantity+input.Quantity); err != nil {
				return pkgerrors.Internal(err, "update cart line")
			}
		} else {
			line := &models.CartItem{
				CartID:         record.ID,
				ProductID:      product.ID,
				Quantity:       input.Quantity,
				UnitPriceCents: product.PriceCents,
				Position:       nextPosition(record),
			}
			if err := repo.AddLine(ctx, line); err != nil {
				return pkgerrors.Internal(err, "add cart line")
			}
		}

		out, err = recompute(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		line := findLine(record, productID)
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgItemNotFound)
		}

		if quantity <= 0 {
			if _, err := repo.DeleteLine(ctx, record.ID, productID); err != nil {
				return pkgerrors.Internal(err, "remove cart line")
			}
		} else {
			// stock is checked again at checkout
			if err := repo.UpdateLineQuantity(ctx, line.ID, quantity); err != nil {
				return pkgerrors.Internal(err, "update cart line")
			}
		}

		out, err = recompute(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteLine(ctx, record.ID, productID); err != nil {
			return pkgerrors.Internal(err, "remove cart line")
		}
		out, err = recompute(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		if err := repo.Clear(ctx, record.ID); err != nil {
			return pkgerrors.Internal(err, "clear cart")
		}
		out, err = recompute(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

func (s *service) loadProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound)
		}
		return nil, pkgerrors.Internal(err, "load product")
	}
	return product, nil
}

func loadCart(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	record, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgCartNotFound)
		}
		return nil, pkgerrors.Internal(err, "load cart")
	}
	return record, nil
}

// recompute reloads the cart and persists total = sum(price * quantity).
func recompute(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	record, err := loadCart(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	if err := syncTotal(ctx, repo, record); err != nil {
		return nil, err
	}
	return record, nil
}

func syncTotal(ctx context.Context, repo *Repository, record *models.Cart) error {
	total := TotalCents(record.Items)
	if total == record.TotalCents {
		return nil
	}
	if err := repo.UpdateTotal(ctx, record.ID, total); err != nil {
		return pkgerrors.Internal(err, "update cart total")
	}
	record.TotalCents = total
	return nil
}

func findLine(record *models.Cart, productID uuid.UUID) *models.CartItem {
	for i := range record.Items {
		if record.Items[i].ProductID == productID {
			return &record.Items[i]
		}
	}
	return nil
}

func nextPosition(record *models.Cart) int {
	next := 0
	for _, item := range record.Items {
		if item.Position >= next {
			next = item.Position + 1
		}
	}
	return next
}

func insufficientStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msgInsufficientStock).WithDetails(map[string]any{
		"productId": product.ID,
		"requested": requested,
		"available": product.Stock,
	})
}
