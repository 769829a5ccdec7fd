package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const (
	defaultStaleAfter = 48 * time.Hour
	defaultStaleBatch = 200
)

type staleOrderFinder interface {
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type outboxExistenceChecker interface {
	Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

// OrderStaleJobParams configure the stale order job.
type OrderStaleJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Orders     staleOrderFinder
	Outbox     outbox.Emitter
	OutboxRepo outboxExistenceChecker
	StaleAfter time.Duration
	BatchSize  int
}

// NewOrderStaleJob builds the job that flags orders stuck in pending so
// operations can follow up. Orders are never modified.
func NewOrderStaleJob(params OrderStaleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultStaleBatch
	}
	return &orderStaleJob{
		logg:       params.Logger,
		db:         params.DB,
		orders:     params.Orders,
		outbox:     params.Outbox,
		outboxRepo: params.OutboxRepo,
		staleAfter: staleAfter,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type orderStaleJob struct {
	logg       *logger.Logger
	db         txRunner
	orders     staleOrderFinder
	outbox     outbox.Emitter
	outboxRepo outboxExistenceChecker
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func (j *orderStaleJob) Name() string { return "order-stale" }

func (j *orderStaleJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	stale, err := j.orders.FindStalePending(ctx, now.Add(-j.staleAfter), j.batch)
	if err != nil {
		return fmt.Errorf("query stale orders: %w", err)
	}

	var errs error
	flagged := 0
	for _, order := range stale {
		emitted, err := j.flag(ctx, order, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if emitted {
			flagged++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"flagged":    flagged,
	})
	j.logg.Info(logCtx, "cron.order_stale_complete")
	return errs
}

func (j *orderStaleJob) flag(ctx context.Context, order models.Order, now time.Time) (bool, error) {
	exists, err := j.outboxRepo.Exists(ctx, enums.EventOrderStale, enums.AggregateOrder, order.ID)
	if err != nil {
		return false, fmt.Errorf("check existing flag: %w", err)
	}
	if exists {
		return false, nil
	}
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStale,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderStaleEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				PaymentMethod: order.PaymentMethod,
				PaymentStatus: order.PaymentStatus,
				PlacedAt:      order.CreatedAt,
				PendingHours:  int(now.Sub(order.CreatedAt).Hours()),
			},
		})
	})
	return err == nil, err
}
