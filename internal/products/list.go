package product

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category      string
	Brand         string
	MinPriceCents *int64
	MaxPriceCents *int64
	MinRating     *float64
	Search        string
	Featured      *bool
}

// ListProductsInput captures the inputs needed to filter, sort and paginate products.
type ListProductsInput struct {
	Filters    ProductListFilters
	Sort       enums.ProductSort
	Pagination pagination.Params
}

// PaginationMeta mirrors pagination.Meta in the catalog response.
type PaginationMeta = pagination.Meta
