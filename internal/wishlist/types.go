package wishlist

import (
	"time"

	products "github.com/angelmondragon/storefront-backend/internal/products"
)

// WishlistItemDTO wraps the product included in a wishlist row.
type WishlistItemDTO struct {
	Product   *products.ProductDTO `json:"product"`
	CreatedAt time.Time            `json:"createdAt"`
}

// WishlistDTO is the caller's full wishlist, newest first.
type WishlistDTO struct {
	Items []WishlistItemDTO `json:"items"`
}
