package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderDTO is the public representation of an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"orderNumber"`
	UserID          uuid.UUID             `json:"userId"`
	User            *OrderUserDTO         `json:"user,omitempty"`
	Items           []OrderItemDTO        `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   enums.PaymentStatus   `json:"paymentStatus"`
	OrderStatus     enums.OrderStatus     `json:"orderStatus"`
	Subtotal        float64               `json:"subtotal"`
	Tax             float64               `json:"tax"`
	ShippingCost    float64               `json:"shippingCost"`
	TotalAmount     float64               `json:"totalAmount"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// OrderItemDTO is a snapshot line of an order.
type OrderItemDTO struct {
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Image     string    `json:"image,omitempty"`
}

// OrderUserDTO is the buyer summary attached to order reads.
type OrderUserDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// OrderList is a page of orders.
type OrderList struct {
	Orders     []OrderDTO      `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// FromModel maps an order with its items (and user, when loaded).
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           make([]OrderItemDTO, 0, len(o.Items)),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		OrderStatus:     o.OrderStatus,
		Subtotal:        money.Float(o.SubtotalCents),
		Tax:             money.Float(o.TaxCents),
		ShippingCost:    money.Float(o.ShippingCents),
		TotalAmount:     money.Float(o.TotalCents),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     money.Float(item.UnitPriceCents),
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	if o.User != nil {
		dto.User = &OrderUserDTO{ID: o.User.ID, Name: o.User.Name, Email: o.User.Email}
	}
	return dto
}
