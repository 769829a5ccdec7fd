package categories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const listCacheTTL = 10 * time.Minute

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// CategoryDTO is the public category shape.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Image       *string   `json:"image,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// CreateCategoryInput is the admin payload for a new category.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Image       *string
	Description *string
}

// Service lists and creates categories. Listings are cached in Redis.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CatalogCacheKey(name string) string
}

type service struct {
	repo  *Repository
	cache cache
	logg  *logger.Logger
}

// NewService builds the categories service. cache may be nil.
func NewService(repo *Repository, cache cache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo, cache: cache, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	if cached, ok := s.readCache(ctx); ok {
		return cached, nil
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Internal(err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	s.writeCache(ctx, out)
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}

	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Image:       input.Image,
		Description: input.Description,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsAnyUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "Category already exists")
		}
		return nil, pkgerrors.Internal(err, "create category")
	}
	s.invalidate(ctx)
	dto := fromModel(*category)
	return &dto, nil
}

// Slugify lowercases and hyphenates a name: "Home & Garden" -> "home-garden".
func Slugify(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	return strings.Trim(slugInvalid.ReplaceAllString(lowered, "-"), "-")
}

func (s *service) listKey() string {
	return s.cache.CatalogCacheKey("categories")
}

func (s *service) readCache(ctx context.Context) ([]CategoryDTO, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.listKey())
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.warn(ctx, "category cache read failed", err)
		}
		return nil, false
	}
	var out []CategoryDTO
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.warn(ctx, "category cache decode failed", err)
		return nil, false
	}
	return out, true
}

func (s *service) writeCache(ctx context.Context, value []CategoryDTO) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.listKey(), string(payload), listCacheTTL); err != nil {
		s.warn(ctx, "category cache write failed", err)
	}
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.listKey()); err != nil {
		s.warn(ctx, "category cache invalidation failed", err)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func fromModel(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Image:       c.Image,
		Description: c.Description,
	}
}
