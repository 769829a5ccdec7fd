package enums

// ProductSort selects the ordering of catalog listings.
type ProductSort string

const (
	ProductSortNewest    ProductSort = "newest"
	ProductSortPriceAsc  ProductSort = "price-asc"
	ProductSortPriceDesc ProductSort = "price-desc"
	ProductSortRating    ProductSort = "rating"
)

// ParseProductSort falls back to newest for unknown values.
func ParseProductSort(value string) ProductSort {
	switch ProductSort(value) {
	case ProductSortPriceAsc, ProductSortPriceDesc, ProductSortRating:
		return ProductSort(value)
	default:
		return ProductSortNewest
	}
}

// OrderClause returns the SQL ordering for the sort key.
func (s ProductSort) OrderClause() string {
	switch s {
	case ProductSortPriceAsc:
		return "price_cents ASC, created_at DESC"
	case ProductSortPriceDesc:
		return "price_cents DESC, created_at DESC"
	case ProductSortRating:
		return "rating DESC, review_count DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}
