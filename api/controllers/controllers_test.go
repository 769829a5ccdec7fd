package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  struct {
		Code string `json:"code"`
	} `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func asUser(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

type stubCartService struct {
	cart.Service
	lastUser     uuid.UUID
	lastInput    cart.AddItemInput
	lastProduct  uuid.UUID
	lastQuantity int
	calls        int
	err          error
}

func (s *stubCartService) AddItem(_ context.Context, userID uuid.UUID, input cart.AddItemInput) (*cart.CartDTO, error) {
	s.lastUser = userID
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &cart.CartDTO{UserID: userID, ItemCount: input.Quantity}, nil
}

func (s *stubCartService) UpdateItem(_ context.Context, userID, productID uuid.UUID, quantity int) (*cart.CartDTO, error) {
	s.calls++
	s.lastUser = userID
	s.lastProduct = productID
	s.lastQuantity = quantity
	if s.err != nil {
		return nil, s.err
	}
	return &cart.CartDTO{UserID: userID}, nil
}

func (s *stubCartService) RemoveItem(_ context.Context, userID, productID uuid.UUID) (*cart.CartDTO, error) {
	s.calls++
	s.lastUser = userID
	s.lastProduct = productID
	if s.err != nil {
		return nil, s.err
	}
	return &cart.CartDTO{UserID: userID}, nil
}

func TestCartAddItemDefaultsQuantityToOne(t *testing.T) {
	svc := &stubCartService{}
	userID := uuid.New()
	productID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(`{"productId":"`+productID.String()+`"}`))
	req = asUser(req, userID, enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.lastUser)
	assert.Equal(t, productID, svc.lastInput.ProductID)
	assert.Equal(t, 1, svc.lastInput.Quantity)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Product added to cart", env.Message)
}

func TestCartAddItemRejectsMalformedProductID(t *testing.T) {
	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(`{"productId":"nope","quantity":2}`))
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeEnvelope(t, rec).Errors.Code)
}

func TestCartAddItemSurfacesInsufficientStock(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(`{"productId":"`+uuid.NewString()+`","quantity":50}`))
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Insufficient stock", env.Message)
}

func TestCartUpdateItemRequiresQuantity(t *testing.T) {
	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"productId":"`+uuid.NewString()+`"}`))
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, string(pkgerrors.CodeValidation), env.Errors.Code)
	assert.Equal(t, "Product ID and quantity are required", env.Message)
	assert.Zero(t, svc.calls)
}

func TestCartUpdateItemRequiresProductID(t *testing.T) {
	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"quantity":2}`))
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestCartUpdateItemPassesExplicitZero(t *testing.T) {
	svc := &stubCartService{}
	userID := uuid.New()
	productID := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"productId":"`+productID.String()+`","quantity":0}`))
	req = asUser(req, userID, enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, userID, svc.lastUser)
	assert.Equal(t, productID, svc.lastProduct)
	assert.Equal(t, 0, svc.lastQuantity)
	assert.Equal(t, "Cart updated", decodeEnvelope(t, rec).Message)
}

func TestCartUpdateItemMissingLineIs404(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "Item not found in cart")}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"productId":"`+uuid.NewString()+`","quantity":3}`))
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found in cart", decodeEnvelope(t, rec).Message)
}

func TestCartRemoveItemReadsQueryParam(t *testing.T) {
	svc := &stubCartService{}
	productID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart?productId="+productID.String(), nil)
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, productID, svc.lastProduct)
	assert.Equal(t, "Item removed from cart", decodeEnvelope(t, rec).Message)
}

func TestCartRemoveItemRejectsMalformedProductID(t *testing.T) {
	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart?productId=nope", nil)
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestCartRemoveItemMissingCartIs404(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found")}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart?productId="+uuid.NewString(), nil)
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartFetchRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubCheckoutService struct {
	input checkout.PlaceOrderInput
}

func (s *stubCheckoutService) PlaceOrder(_ context.Context, userID uuid.UUID, input checkout.PlaceOrderInput) (*orders.OrderDTO, error) {
	s.input = input
	return &orders.OrderDTO{ID: uuid.New(), UserID: userID, OrderNumber: "ORD-1-ABC"}, nil
}

func TestOrderCreatePassesAddressThroughAndReturns201(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"shippingAddress":{"name":"Ada","phone":"555","addressLine1":"1 Loop","city":"X","state":"Y","zipCode":"1"},"paymentMethod":"cod"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	OrderCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Order created successfully", decodeEnvelope(t, rec).Message)
	require.NotNil(t, svc.input.ShippingAddress)
	assert.Equal(t, "Ada", svc.input.ShippingAddress.Name)
	assert.Equal(t, "cod", svc.input.PaymentMethod)
}

func TestOrderCreateLeavesIncompleteAddressToService(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shippingAddress":{"name":"Ada"},"paymentMethod":"card"}`))
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	OrderCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ada", svc.input.ShippingAddress.Name)
}

type stubOrdersService struct {
	orders.Service
	actor  orders.Actor
	params pagination.Params
	input  orders.UpdateStatusInput
}

func (s *stubOrdersService) List(_ context.Context, actor orders.Actor, params pagination.Params) (*orders.OrderList, error) {
	s.actor = actor
	s.params = params
	return &orders.OrderList{Orders: []orders.OrderDTO{}}, nil
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, actor orders.Actor, orderID uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	s.actor = actor
	s.input = input
	return &orders.OrderDTO{ID: orderID}, nil
}

func TestOrderListPassesActorAndPaging(t *testing.T) {
	svc := &stubOrdersService{}
	admin := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=2&limit=5", nil)
	req = asUser(req, admin, enums.UserRoleAdmin)
	rec := httptest.NewRecorder()
	OrderList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.actor.IsAdmin())
	assert.Equal(t, admin, svc.actor.UserID)
	assert.Equal(t, pagination.Params{Page: 2, Limit: 5}, svc.params)
}

func TestOrderUpdateStatusMapsOptionalFields(t *testing.T) {
	svc := &stubOrdersService{}
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID.String(), strings.NewReader(`{"orderStatus":"shipped"}`))
	req = withURLParam(req, "orderId", orderID.String())
	req = asUser(req, uuid.New(), enums.UserRoleAdmin)
	rec := httptest.NewRecorder()
	OrderUpdateStatus(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order updated successfully", decodeEnvelope(t, rec).Message)
	require.NotNil(t, svc.input.OrderStatus)
	assert.Equal(t, enums.OrderStatus("shipped"), *svc.input.OrderStatus)
	assert.Nil(t, svc.input.PaymentStatus)
}

type stubReviewService struct {
	input reviews.AddReviewInput
	err   error
}

func (s *stubReviewService) AddReview(_ context.Context, input reviews.AddReviewInput) (*products.ProductDTO, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &products.ProductDTO{ID: input.ProductID, Rating: 4.5, ReviewCount: 2}, nil
}

func TestReviewCreateReturns201WithProduct(t *testing.T) {
	svc := &stubReviewService{}
	productID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":5,"comment":"  great  "}`))
	req = withURLParam(req, "productId", productID.String())
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	ReviewCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.input.Rating)
	assert.Equal(t, 5, *svc.input.Rating)
	assert.Equal(t, "great", svc.input.Comment)
	assert.Equal(t, productID, svc.input.ProductID)
}

func TestReviewCreateDuplicateIs400(t *testing.T) {
	svc := &stubReviewService{err: pkgerrors.New(pkgerrors.CodeDuplicateReview, "You have already reviewed this product")}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":5,"comment":"again"}`))
	req = withURLParam(req, "productId", uuid.NewString())
	req = asUser(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	ReviewCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, string(pkgerrors.CodeDuplicateReview), env.Errors.Code)
	assert.Equal(t, "You have already reviewed this product", env.Message)
}

type stubProductService struct {
	products.Service
	input products.ListProductsInput
}

func (s *stubProductService) ListProducts(_ context.Context, input products.ListProductsInput) (*products.ProductListResult, error) {
	s.input = input
	return &products.ProductListResult{Products: []products.ProductDTO{}}, nil
}

func TestProductListParsesFilters(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=Audio&minPrice=10.5&maxPrice=99&minRating=4&featured=true&sort=price-asc&page=3&limit=20&search=%20head%20", nil)
	rec := httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	f := svc.input.Filters
	assert.Equal(t, "Audio", f.Category)
	assert.Equal(t, "head", f.Search)
	require.NotNil(t, f.MinPriceCents)
	assert.EqualValues(t, 1050, *f.MinPriceCents)
	require.NotNil(t, f.MaxPriceCents)
	assert.EqualValues(t, 9900, *f.MaxPriceCents)
	require.NotNil(t, f.MinRating)
	assert.Equal(t, 4.0, *f.MinRating)
	require.NotNil(t, f.Featured)
	assert.True(t, *f.Featured)
	assert.Equal(t, enums.ProductSortPriceAsc, svc.input.Sort)
	assert.Equal(t, pagination.Params{Page: 3, Limit: 20}, svc.input.Pagination)
}

func TestProductListRejectsOversizedLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=500", nil)
	rec := httptest.NewRecorder()
	ProductList(&stubProductService{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubNewsletter struct{ email string }

func (s *stubNewsletter) Subscribe(_ context.Context, email string) error {
	s.email = email
	return nil
}

func TestNewsletterSubscribe(t *testing.T) {
	svc := &stubNewsletter{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter", strings.NewReader(`{"email":"fan@example.com"}`))
	rec := httptest.NewRecorder()
	NewsletterSubscribe(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "fan@example.com", svc.email)
	assert.Equal(t, "Subscribed successfully", decodeEnvelope(t, rec).Message)
}

func TestNewsletterSubscribeRejectsBadEmail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter", strings.NewReader(`{"email":"nope"}`))
	rec := httptest.NewRecorder()
	NewsletterSubscribe(&stubNewsletter{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	healthy := map[string]Pinger{
		"database": pingerFunc(func(context.Context) error { return nil }),
		"redis":    pingerFunc(func(context.Context) error { return nil }),
	}
	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, healthy).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy["redis"] = pingerFunc(func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, healthy).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
