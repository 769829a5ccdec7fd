package cart

import (
	"time"

	"github.com/google/uuid"

	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// CartDTO is the cart as returned to its owner, products resolved.
type CartDTO struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"userId"`
	Items      []CartItemDTO `json:"items"`
	TotalPrice float64       `json:"totalPrice"`
	ItemCount  int           `json:"itemCount"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// CartItemDTO is a single cart line.
type CartItemDTO struct {
	ProductID uuid.UUID            `json:"productId"`
	Product   *products.ProductDTO `json:"product,omitempty"`
	Quantity  int                  `json:"quantity"`
	Price     float64              `json:"price"`
	LineTotal float64              `json:"lineTotal"`
}

// AddItemInput is the payload for adding a product to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// FromModel maps a cart with preloaded lines to its DTO.
func FromModel(c *models.Cart) *CartDTO {
	if c == nil {
		return nil
	}
	dto := &CartDTO{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      make([]CartItemDTO, 0, len(c.Items)),
		TotalPrice: money.Float(c.TotalCents),
		UpdatedAt:  c.UpdatedAt,
	}
	for _, item := range c.Items {
		dto.Items = append(dto.Items, CartItemDTO{
			ProductID: item.ProductID,
			Product:   products.FromModel(item.Product),
			Quantity:  item.Quantity,
			Price:     money.Float(item.UnitPriceCents),
			LineTotal: money.Float(item.LineTotalCents()),
		})
		dto.ItemCount += item.Quantity
	}
	return dto
}

// TotalCents sums unit price times quantity over every line.
func TotalCents(items []models.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	return total
}
