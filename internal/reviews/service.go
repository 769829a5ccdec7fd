package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const (
	minRating = 1
	maxRating = 5

	msgRequired  = "Rating and comment are required"
	msgRange     = "Rating must be between 1 and 5"
	msgDuplicate = "You have already reviewed this product"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AddReviewInput is a reviewer's submission. Rating is nil when omitted.
type AddReviewInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    *int
	Comment   string
}

// Service records reviews and keeps product ratings in sync.
type Service interface {
	AddReview(ctx context.Context, input AddReviewInput) (*products.ProductDTO, error)
}

type service struct {
	tx          txRunner
	repo        *Repository
	productRepo *products.Repository
	outbox      outbox.Emitter
}

// NewService builds the review service.
func NewService(tx txRunner, repo *Repository, productRepo *products.Repository, emitter outbox.Emitter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, productRepo: productRepo, outbox: emitter}, nil
}

func (s *service) AddReview(ctx context.Context, input AddReviewInput) (*products.ProductDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	comment := strings.TrimSpace(input.Comment)
	if input.Rating == nil || comment == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgRequired)
	}
	rating := *input.Rating
	if rating < minRating || rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgRange)
	}

	var result *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		if _, err := productRepo.FindByID(ctx, input.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
			}
			return pkgerrors.Internal(err, "load product")
		}

		exists, err := repo.ExistsForUser(ctx, input.ProductID, input.UserID)
		if err != nil {
			return pkgerrors.Internal(err, "check existing review")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeDuplicateReview, msgDuplicate)
		}

		name, err := repo.ReviewerName(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
			}
			return pkgerrors.Internal(err, "load reviewer")
		}

		review := &models.Review{
			ProductID: input.ProductID,
			UserID:    input.UserID,
			UserName:  name,
			Rating:    rating,
			Comment:   comment,
		}
		if err := repo.Create(ctx, review); err != nil {
			if db.IsAnyUniqueViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateReview, err, msgDuplicate)
			}
			return pkgerrors.Internal(err, "create review")
		}

		ratings, err := repo.Ratings(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Internal(err, "load ratings")
		}
		newRating := money.MeanRounded(ratings, 1)
		if err := repo.UpdateProductRating(ctx, input.ProductID, newRating, len(ratings)); err != nil {
			return pkgerrors.Internal(err, "update product rating")
		}

		result, err = productRepo.FindWithReviews(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Internal(err, "reload product")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductReviewed,
			AggregateType: enums.AggregateProduct,
			AggregateID:   input.ProductID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data: payloads.ProductReviewedEvent{
				ProductID:   input.ProductID,
				ReviewID:    review.ID,
				UserID:      input.UserID,
				Rating:      rating,
				NewRating:   newRating,
				ReviewCount: len(ratings),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return products.FromModel(result), nil
}
