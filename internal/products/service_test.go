package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *Repository, func(p *models.Product)) {
	t.Helper()
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(client, repo)
	require.NoError(t, err)
	insert := func(p *models.Product) {
		if len(p.Images) == 0 {
			p.Images = types.StringList{"https://img.example.com/a.jpg"}
		}
		require.NoError(t, client.DB().Create(p).Error)
	}
	return svc, repo, insert
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	svc, _, insert := newTestService(t)
	insert(&models.Product{Title: "Trail Shoe", Brand: "Peak", Category: "Shoes", PriceCents: 8999, Stock: 3, Rating: 4.5})
	insert(&models.Product{Title: "Road Shoe", Brand: "Stride", Category: "Shoes", PriceCents: 12000, Stock: 1, Rating: 3.9, Featured: true})
	insert(&models.Product{Title: "Wool Socks", Brand: "Peak", Category: "Apparel", PriceCents: 1500, Stock: 40})

	res, err := svc.ListProducts(context.Background(), ListProductsInput{
		Filters: ProductListFilters{Category: "shoes"},
		Sort:    enums.ProductSortPriceDesc,
	})
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "Road Shoe", res.Products[0].Title)
	assert.Equal(t, 120.0, res.Products[0].Price)
	assert.Equal(t, int64(2), res.Pagination.Total)
	assert.Equal(t, pagination.DefaultLimit, res.Pagination.Limit)

	minPrice := int64(1000)
	maxPrice := int64(10000)
	res, err = svc.ListProducts(context.Background(), ListProductsInput{
		Filters: ProductListFilters{Brand: "peak", MinPriceCents: &minPrice, MaxPriceCents: &maxPrice},
		Sort:    enums.ProductSortPriceAsc,
	})
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "Wool Socks", res.Products[0].Title)

	minRating := 4.0
	res, err = svc.ListProducts(context.Background(), ListProductsInput{Filters: ProductListFilters{MinRating: &minRating}})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "Trail Shoe", res.Products[0].Title)

	featured := true
	res, err = svc.ListProducts(context.Background(), ListProductsInput{Filters: ProductListFilters{Featured: &featured}})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.True(t, res.Products[0].Featured)

	res, err = svc.ListProducts(context.Background(), ListProductsInput{Filters: ProductListFilters{Search: "SOCK"}})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
}

func TestListProductsPaginates(t *testing.T) {
	svc, _, insert := newTestService(t)
	for i := 0; i < 5; i++ {
		insert(&models.Product{Title: "Item", Brand: "B", Category: "C", PriceCents: int64(100 * (i + 1))})
	}

	res, err := svc.ListProducts(context.Background(), ListProductsInput{
		Sort:       enums.ProductSortPriceAsc,
		Pagination: pagination.Params{Page: 2, Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	assert.Equal(t, 3.0, res.Products[0].Price)
	assert.Equal(t, pagination.Meta{Page: 2, Limit: 2, Total: 5, Pages: 3}, res.Pagination)
}

func TestListProductsRejectsInvertedPriceRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	minPrice, maxPrice := int64(500), int64(100)
	_, err := svc.ListProducts(context.Background(), ListProductsInput{
		Filters: ProductListFilters{MinPriceCents: &minPrice, MaxPriceCents: &maxPrice},
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreateUpdateDeleteProduct(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	original := 59.99
	discount := 20

	created, err := svc.CreateProduct(ctx, ProductInput{
		Title:         "  Rain Jacket ",
		Price:         47.99,
		OriginalPrice: &original,
		Discount:      &discount,
		Category:      "Apparel",
		Brand:         "Peak",
		Images:        []string{" https://img.example.com/jacket.jpg ", ""},
		Stock:         7,
		Features:      []string{"waterproof"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Rain Jacket", created.Title)
	assert.Equal(t, 47.99, created.Price)
	require.NotNil(t, created.OriginalPrice)
	assert.Equal(t, 59.99, *created.OriginalPrice)
	assert.Equal(t, []string{"https://img.example.com/jacket.jpg"}, created.Images)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4799), stored.PriceCents)

	updated, err := svc.UpdateProduct(ctx, created.ID, ProductInput{
		Title:    "Rain Jacket v2",
		Price:    50,
		Category: "Apparel",
		Brand:    "Peak",
		Images:   []string{"https://img.example.com/jacket2.jpg"},
		Stock:    0,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rain Jacket v2", updated.Title)
	assert.Nil(t, updated.OriginalPrice)

	stored, err = repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
	assert.Nil(t, stored.OriginalPriceCents)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	err = svc.DeleteProduct(ctx, created.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	cases := map[string]ProductInput{
		"missing title":  {Price: 1, Images: []string{"x"}},
		"zero price":     {Title: "x", Images: []string{"x"}},
		"negative stock": {Title: "x", Price: 1, Stock: -1, Images: []string{"x"}},
		"no images":      {Title: "x", Price: 1},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), input)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestGetProductIncludesReviewsNewestFirst(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(client, NewRepository(client.DB()))
	require.NoError(t, err)
	product := dbtest.MustCreateProduct(t, client, "Lamp", 2500, 2)
	first := dbtest.MustCreateUser(t, client, enums.UserRoleUser)
	second := dbtest.MustCreateUser(t, client, enums.UserRoleUser)
	require.NoError(t, client.DB().Create(&models.Review{ProductID: product.ID, UserID: first.ID, UserName: "A", Rating: 4, Comment: "ok"}).Error)
	require.NoError(t, client.DB().Create(&models.Review{ProductID: product.ID, UserID: second.ID, UserName: "B", Rating: 5, Comment: "great"}).Error)

	dto, err := svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.Len(t, dto.Reviews, 2)

	_, err = svc.GetProduct(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestDeleteProductDetachesCartLinesAndRecomputesTotals(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(client, NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	a := dbtest.MustCreateProduct(t, client, "A", 1000, 10)
	b := dbtest.MustCreateProduct(t, client, "B", 2500, 10)

	buyer := dbtest.MustCreateUser(t, client, enums.UserRoleUser)
	held := &models.Cart{UserID: buyer.ID, TotalCents: 4500}
	require.NoError(t, client.DB().Create(held).Error)
	require.NoError(t, client.DB().Create(&models.CartItem{CartID: held.ID, ProductID: a.ID, Quantity: 2, UnitPriceCents: 1000, Position: 0}).Error)
	require.NoError(t, client.DB().Create(&models.CartItem{CartID: held.ID, ProductID: b.ID, Quantity: 1, UnitPriceCents: 2500, Position: 1}).Error)

	other := dbtest.MustCreateUser(t, client, enums.UserRoleUser)
	untouched := &models.Cart{UserID: other.ID, TotalCents: 1000}
	require.NoError(t, client.DB().Create(untouched).Error)
	require.NoError(t, client.DB().Create(&models.CartItem{CartID: untouched.ID, ProductID: a.ID, Quantity: 1, UnitPriceCents: 1000}).Error)

	require.NoError(t, svc.DeleteProduct(ctx, b.ID))

	var reloaded models.Cart
	require.NoError(t, client.DB().First(&reloaded, "id = ?", held.ID).Error)
	assert.Equal(t, int64(2000), reloaded.TotalCents)

	var lines []models.CartItem
	require.NoError(t, client.DB().Where("cart_id = ?", held.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, a.ID, lines[0].ProductID)

	require.NoError(t, client.DB().First(&reloaded, "id = ?", untouched.ID).Error)
	assert.Equal(t, int64(1000), reloaded.TotalCents)
}
