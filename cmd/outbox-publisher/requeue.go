package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type deadLetters interface {
	ListRetryable(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	RequeueTx(tx *gorm.DB, eventID uuid.UUID) error
}

// requeueDeadLetters hands up to limit retryable DLQ entries back to the
// outbox. Each entry moves in its own transaction so one bad row does not
// hold back the rest.
func requeueDeadLetters(ctx context.Context, db dbClient, dlq deadLetters, logg *logger.Logger, limit int) (int, error) {
	entries, err := dlq.ListRetryable(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list dlq: %w", err)
	}
	moved := 0
	var errs error
	for _, entry := range entries {
		err := db.WithTx(ctx, func(tx *gorm.DB) error {
			return dlq.RequeueTx(tx, entry.EventID)
		})
		if errors.Is(err, outbox.ErrNotDeadLettered) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("requeue %s: %w", entry.EventID, err))
			continue
		}
		moved++
		logg.Info(logg.WithEvent(ctx, entry.EventID.String(), string(entry.EventType), entry.AggregateID.String()), "dead-lettered event requeued")
	}
	return moved, errs
}
