// Package newsletter records email subscriptions.
package newsletter

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// SubscribeRequest is the public subscription payload.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Service subscribes addresses. Repeated addresses are accepted silently.
type Service interface {
	Subscribe(ctx context.Context, email string) error
}

type service struct {
	db *gorm.DB
}

// NewService builds the newsletter service.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &service{db: db}, nil
}

func (s *service) Subscribe(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !strings.Contains(normalized, "@") {
		return pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&models.NewsletterSubscriber{Email: normalized}).Error
	if err != nil {
		return pkgerrors.Internal(err, "subscribe")
	}
	return nil
}
