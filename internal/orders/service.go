package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/checkout/stock"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const msgOrderNotFound = "Order not found"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the caller holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// UpdateStatusInput carries the admin's requested status changes. Nil fields are left alone.
type UpdateStatusInput struct {
	OrderStatus   *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// Service exposes order history and admin status management.
type Service interface {
	List(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
}

// NewService builds the order service.
func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter}, nil
}

func (s *service) List(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	query := ListQuery{Page: params}
	if actor.IsAdmin() {
		query.IncludeUser = true
	} else {
		userID := actor.UserID
		query.UserID = &userID
	}

	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Internal(err, "list orders")
	}
	out := &OrderList{
		Orders:     make([]OrderDTO, 0, len(rows)),
		Pagination: pagination.NewMeta(params, total),
	}
	for i := range rows {
		out.Orders = append(out.Orders, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return FromModel(order), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.OrderStatus == nil && input.PaymentStatus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderStatus or paymentStatus is required")
	}
	if input.OrderStatus != nil && !input.OrderStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		result = order

		prevOrder, prevPayment := order.OrderStatus, order.PaymentStatus
		if input.OrderStatus != nil && *input.OrderStatus != prevOrder {
			if !prevOrder.CanTransitionTo(*input.OrderStatus) {
				return transitionConflict("order status", prevOrder.String(), input.OrderStatus.String())
			}
			order.OrderStatus = *input.OrderStatus
		}
		if input.PaymentStatus != nil && *input.PaymentStatus != prevPayment {
			if !prevPayment.CanTransitionTo(*input.PaymentStatus) {
				return transitionConflict("payment status", prevPayment.String(), input.PaymentStatus.String())
			}
			order.PaymentStatus = *input.PaymentStatus
		}
		if order.OrderStatus == prevOrder && order.PaymentStatus == prevPayment {
			return nil
		}

		if err := repo.UpdateStatuses(ctx, order); err != nil {
			return pkgerrors.Internal(err, "update order status")
		}

		restocked := false
		if order.OrderStatus == enums.OrderStatusCancelled && prevOrder != enums.OrderStatusCancelled {
			if err := restock(ctx, tx, order.Items); err != nil {
				return pkgerrors.Internal(err, "restock cancelled order")
			}
			restocked = true
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:               order.ID,
				OrderNumber:           order.OrderNumber,
				UserID:                order.UserID,
				PreviousOrderStatus:   prevOrder,
				OrderStatus:           order.OrderStatus,
				PreviousPaymentStatus: prevPayment,
				PaymentStatus:         order.PaymentStatus,
				Restocked:             restocked,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(result), nil
}

func loadOrder(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
		}
		return nil, pkgerrors.Internal(err, "load order")
	}
	return order, nil
}

func restock(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error {
	var errs error
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if err := stock.Restock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product %s: %w", item.ProductID, err))
		}
	}
	return errs
}

func transitionConflict(field, from, to string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot change %s from %s to %s", field, from, to)).
		WithDetails(map[string]string{"from": from, "to": to})
}
