package categories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeCache struct {
	mu    sync.Mutex
	data  map[string]string
	gets  int
	dels  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dels++
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeCache) CatalogCacheKey(name string) string {
	return "catalog:" + name
}

func TestListUsesCacheAndCreateInvalidates(t *testing.T) {
	client := dbtest.New(t)
	cache := newFakeCache()
	svc, err := NewService(NewRepository(client.DB()), cache, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Home & Garden"})
	require.NoError(t, err)

	first, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "home-garden", first[0].Slug)
	assert.Len(t, cache.data, 1)

	// served from cache even though the table changes underneath
	require.NoError(t, client.DB().Exec("DELETE FROM categories").Error)
	cached, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Books", Slug: "Books!"})
	require.NoError(t, err)
	assert.Empty(t, cache.data)

	fresh, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "books", fresh[0].Slug)
}

func TestCreateRejectsDuplicatesAndBlankNames(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, CreateCategoryInput{Name: " "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Toys"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Toys"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "mens-shoes", Slugify("  Men's   Shoes "))
	assert.Equal(t, "", Slugify("!!!"))
}
