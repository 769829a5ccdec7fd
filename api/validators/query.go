package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	maxPage   = 1_000_000
	maxRating = 5
)

// QueryPage reads ?page= and ?limit= for list endpoints.
func QueryPage(r *http.Request) (pagination.Params, error) {
	page, err := queryInt(r, "page", 1, 1, maxPage)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := queryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}

// QueryPriceCents parses a price bound like ?minPrice=19.99 exactly, without
// going through float64. Amounts with sub-cent precision are rejected.
func QueryPriceCents(r *http.Request, key string) (*int64, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.IsNegative() {
		return nil, queryError(key, "query parameter must be a non-negative amount")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, queryError(key, "query parameter must have at most two decimal places")
	}
	cents := money.ToCents(amount)
	return &cents, nil
}

// QueryRating parses a star rating filter between 0 and 5.
func QueryRating(r *http.Request, key string) (*float64, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 || value > maxRating {
		return nil, queryError(key, "query parameter must be a rating between 0 and 5")
	}
	return &value, nil
}

func QueryBool(r *http.Request, key string) (*bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, queryError(key, "query parameter must be a boolean")
	}
	return &value, nil
}

// QueryText returns a cleaned free-text filter such as ?search= or ?brand=.
func QueryText(r *http.Request, key string, maxRunes int) string {
	return CleanText(r.URL.Query().Get(key), maxRunes)
}

func queryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "query parameter must be numeric")
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func queryError(key, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": key})
}
