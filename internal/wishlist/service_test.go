package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestWishlistLifecycle(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(ServiceParams{
		WishlistRepo: NewRepository(client.DB()),
		ProductRepo:  products.NewRepository(client.DB()),
	})
	require.NoError(t, err)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleUser)
	other := dbtest.MustCreateUser(t, client, enums.UserRoleUser)
	lamp := dbtest.MustCreateProduct(t, client, "Lamp", 2000, 1)

	require.NoError(t, svc.AddItem(ctx, user.ID, lamp.ID))

	err = svc.AddItem(ctx, user.ID, lamp.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Equal(t, "Product already in wishlist", pkgerrors.As(err).Message())

	err = svc.AddItem(ctx, user.ID, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	list, err := svc.GetWishlist(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Lamp", list.Items[0].Product.Title)

	otherList, err := svc.GetWishlist(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, otherList.Items)

	require.NoError(t, svc.RemoveItem(ctx, user.ID, lamp.ID))
	require.NoError(t, svc.RemoveItem(ctx, user.ID, lamp.ID))
	list, err = svc.GetWishlist(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}
