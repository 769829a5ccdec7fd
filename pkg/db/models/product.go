package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Product is a catalog entry. Rating and ReviewCount are derived from Reviews.
type Product struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Title              string           `gorm:"column:title;not null"`
	Description        string           `gorm:"column:description;not null;default:''"`
	PriceCents         int64            `gorm:"column:price_cents;type:bigint;not null"`
	OriginalPriceCents *int64           `gorm:"column:original_price_cents;type:bigint"`
	DiscountPercent    *int             `gorm:"column:discount_percent"`
	Category           string           `gorm:"column:category;not null;index:idx_products_category"`
	Brand              string           `gorm:"column:brand;not null;index:idx_products_brand"`
	Images             types.StringList `gorm:"column:images;type:jsonb;not null"`
	Stock              int              `gorm:"column:stock;not null;default:0"`
	Rating             float64          `gorm:"column:rating;type:numeric(2,1);not null;default:0"`
	ReviewCount        int              `gorm:"column:review_count;not null;default:0"`
	Specifications     types.StringMap  `gorm:"column:specifications;type:jsonb"`
	Features           types.StringList `gorm:"column:features;type:jsonb"`
	Featured           bool             `gorm:"column:featured;not null;default:false;index:idx_products_featured"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Reviews []Review `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Review is a single user's rating of a product. One per (product, user).
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_reviews_product_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_reviews_product_user"`
	UserName  string    `gorm:"column:user_name;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   string    `gorm:"column:comment;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
