package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// ProductDTO is the public representation of a catalog entry.
type ProductDTO struct {
	ID             uuid.UUID         `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	OriginalPrice  *float64          `json:"originalPrice,omitempty"`
	Discount       *int              `json:"discount,omitempty"`
	Category       string            `json:"category"`
	Brand          string            `json:"brand"`
	Images         []string          `json:"images"`
	Stock          int               `json:"stock"`
	Rating         float64           `json:"rating"`
	ReviewCount    int               `json:"reviewCount"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Features       []string          `json:"features,omitempty"`
	Featured       bool              `json:"featured"`
	Reviews        []ReviewDTO       `json:"reviews,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ReviewDTO is a single review as shown on the product page.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductListResult is the paginated catalog response.
type ProductListResult struct {
	Products   []ProductDTO   `json:"products"`
	Pagination PaginationMeta `json:"pagination"`
}

// FromModel maps a product (and any loaded reviews) to its DTO.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Price:          money.Float(p.PriceCents),
		Discount:       p.DiscountPercent,
		Category:       p.Category,
		Brand:          p.Brand,
		Images:         append([]string{}, p.Images...),
		Stock:          p.Stock,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		Specifications: p.Specifications,
		Features:       append([]string(nil), p.Features...),
		Featured:       p.Featured,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.OriginalPriceCents != nil {
		original := money.Float(*p.OriginalPriceCents)
		dto.OriginalPrice = &original
	}
	if len(p.Reviews) > 0 {
		dto.Reviews = make([]ReviewDTO, 0, len(p.Reviews))
		for _, r := range p.Reviews {
			dto.Reviews = append(dto.Reviews, ReviewFromModel(r))
		}
	}
	return dto
}

// ReviewFromModel maps a review row to its DTO.
func ReviewFromModel(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
