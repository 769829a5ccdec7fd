package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ProductList serves the public, filterable catalog.
func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseProductListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseProductListQuery(r *http.Request) (products.ListProductsInput, error) {
	input := products.ListProductsInput{
		Filters: products.ProductListFilters{
			Category: validators.QueryText(r, "category", 64),
			Brand:    validators.QueryText(r, "brand", 64),
			Search:   validators.QueryText(r, "search", 128),
		},
		Sort: enums.ParseProductSort(strings.TrimSpace(r.URL.Query().Get("sort"))),
	}

	var err error
	if input.Pagination, err = validators.QueryPage(r); err != nil {
		return input, err
	}
	if input.Filters.MinPriceCents, err = validators.QueryPriceCents(r, "minPrice"); err != nil {
		return input, err
	}
	if input.Filters.MaxPriceCents, err = validators.QueryPriceCents(r, "maxPrice"); err != nil {
		return input, err
	}
	if input.Filters.MinRating, err = validators.QueryRating(r, "minRating"); err != nil {
		return input, err
	}
	if input.Filters.Featured, err = validators.QueryBool(r, "featured"); err != nil {
		return input, err
	}
	return input, nil
}

// ProductDetail returns one product with its reviews.
func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type productRequest struct {
	Title          string            `json:"title" validate:"notblank"`
	Description    string            `json:"description"`
	Price          float64           `json:"price" validate:"required,gt=0"`
	OriginalPrice  *float64          `json:"originalPrice,omitempty"`
	Discount       *int              `json:"discount,omitempty"`
	Category       string            `json:"category"`
	Brand          string            `json:"brand"`
	Images         []string          `json:"images" validate:"required,min=1,dive,omitempty,imageurl"`
	Stock          int               `json:"stock" validate:"min=0"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Features       []string          `json:"features,omitempty"`
	Featured       bool              `json:"featured"`
}

func (p productRequest) toInput() products.ProductInput {
	return products.ProductInput{
		Title:          validators.CleanText(p.Title, 200),
		Description:    validators.CleanMultiline(p.Description, 5000),
		Price:          p.Price,
		OriginalPrice:  p.OriginalPrice,
		Discount:       p.Discount,
		Category:       validators.CleanText(p.Category, 64),
		Brand:          validators.CleanText(p.Brand, 64),
		Images:         p.Images,
		Stock:          p.Stock,
		Specifications: p.Specifications,
		Features:       p.Features,
		Featured:       p.Featured,
	}
}

// ProductCreate adds a catalog entry (admin).
func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Product created successfully", product)
	}
}

// ProductUpdate replaces a catalog entry (admin).
func ProductUpdate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Product updated successfully", product)
	}
}

// ProductDelete removes a catalog entry (admin).
func ProductDelete(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Product deleted successfully", nil)
	}
}
