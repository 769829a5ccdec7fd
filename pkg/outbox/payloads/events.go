package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderItemLine is the per-line snapshot carried by order events.
type OrderItemLine struct {
	ProductID      uuid.UUID `json:"productId"`
	Title          string    `json:"title"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
}

// OrderCreatedEvent is emitted once checkout commits.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	UserID        uuid.UUID           `json:"userId"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	SubtotalCents int64               `json:"subtotalCents"`
	TaxCents      int64               `json:"taxCents"`
	ShippingCents int64               `json:"shippingCents"`
	TotalCents    int64               `json:"totalCents"`
	Items         []OrderItemLine     `json:"items"`
}

// OrderStatusChangedEvent is emitted when an admin moves an order or its payment.
type OrderStatusChangedEvent struct {
	OrderID               uuid.UUID           `json:"orderId"`
	OrderNumber           string              `json:"orderNumber"`
	UserID                uuid.UUID           `json:"userId"`
	PreviousOrderStatus   enums.OrderStatus   `json:"previousOrderStatus"`
	OrderStatus           enums.OrderStatus   `json:"orderStatus"`
	PreviousPaymentStatus enums.PaymentStatus `json:"previousPaymentStatus"`
	PaymentStatus         enums.PaymentStatus `json:"paymentStatus"`
	Restocked             bool                `json:"restocked"`
}

// ProductReviewedEvent is emitted after a review lands and the rating is recomputed.
type ProductReviewedEvent struct {
	ProductID   uuid.UUID `json:"productId"`
	ReviewID    uuid.UUID `json:"reviewId"`
	UserID      uuid.UUID `json:"userId"`
	Rating      int       `json:"rating"`
	NewRating   float64   `json:"newRating"`
	ReviewCount int       `json:"reviewCount"`
}

// OrderStaleEvent flags an order that has sat in pending longer than the
// configured threshold. It is emitted at most once per order.
type OrderStaleEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	UserID        uuid.UUID           `json:"userId"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	PlacedAt      time.Time           `json:"placedAt"`
	PendingHours  int                 `json:"pendingHours"`
}
