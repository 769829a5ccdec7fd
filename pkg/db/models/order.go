package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the immutable result of a checkout. Only the status columns change.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:idx_orders_user_created,priority:1"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus   enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null"`
	OrderStatus     enums.OrderStatus     `gorm:"column:order_status;type:text;not null"`
	SubtotalCents   int64                 `gorm:"column:subtotal_cents;type:bigint;not null"`
	TaxCents        int64                 `gorm:"column:tax_cents;type:bigint;not null"`
	ShippingCents   int64                 `gorm:"column:shipping_cents;type:bigint;not null"`
	TotalCents      int64                 `gorm:"column:total_cents;type:bigint;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime;index:idx_orders_user_created,priority:2"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	User  *User       `gorm:"foreignKey:UserID"`
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is a snapshot of a cart line at checkout time. ProductID is kept
// for reference only; title, price and image never follow later edits.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:idx_order_items_order_id"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Title          string    `gorm:"column:title;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;type:bigint;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	Image          string    `gorm:"column:image;not null;default:''"`
	Position       int       `gorm:"column:position;not null;default:0"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
