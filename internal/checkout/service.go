package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/stock"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const orderNumberSuffixLen = 9

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type checkoutMetrics interface {
	IncPlaced(paymentMethod string, totalCents int64)
	IncRejected(reason string)
}

// PlaceOrderInput is the buyer's checkout request.
type PlaceOrderInput struct {
	ShippingAddress *types.ShippingAddress
	PaymentMethod   string
}

// Service turns the caller's cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error)
}

type service struct {
	tx         txRunner
	cartRepo   *cart.Repository
	ordersRepo *orders.Repository
	outbox     outbox.Emitter
	cfg        config.CheckoutConfig
	metrics    checkoutMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the checkout service. metrics and logg may be nil.
func NewService(
	tx txRunner,
	cartRepo *cart.Repository,
	ordersRepo *orders.Repository,
	emitter outbox.Emitter,
	cfg config.CheckoutConfig,
	metrics checkoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.TaxBasisPoints < 0 || cfg.ShippingCents < 0 {
		return nil, fmt.Errorf("checkout tax and shipping must not be negative")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		outbox:     emitter,
		cfg:        cfg,
		metrics:    metrics,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error) {
	order, err := s.placeOrder(ctx, userID, input)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncRejected(strings.ToLower(string(pkgerrors.CodeOf(err))))
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncPlaced(order.PaymentMethod.String(), order.TotalCents)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrder(ctx, order.ID.String(), order.OrderNumber), "order placed")
	}
	return orders.FromModel(order), nil
}

func (s *service) placeOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	address, method, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		record, err := cartRepo.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "Cart is empty")
			}
			return pkgerrors.Internal(err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "Cart is empty")
		}

		items := make([]models.OrderItem, 0, len(record.Items))
		for i, line := range record.Items {
			title := line.ProductID.String()
			image := ""
			if line.Product != nil {
				title = line.Product.Title
				image = line.Product.Images.First()
			}
			ok, err := stock.Decrement(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Internal(err, "decrement stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock for "+title).
					WithDetails(map[string]any{"productId": line.ProductID, "requested": line.Quantity})
			}
			items = append(items, models.OrderItem{
				ProductID:      line.ProductID,
				Title:          title,
				UnitPriceCents: line.UnitPriceCents,
				Quantity:       line.Quantity,
				Image:          image,
				Position:       i,
			})
		}

		number, err := s.orderNumber()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}

		// the stored total can lag behind lines removed by a product delete
		subtotal := cart.TotalCents(record.Items)
		tax := money.ApplyBasisPoints(subtotal, s.cfg.TaxBasisPoints)
		shipping := s.cfg.ShippingCents
		order = &models.Order{
			OrderNumber:     number,
			UserID:          userID,
			ShippingAddress: address,
			PaymentMethod:   method,
			PaymentStatus:   method.InitialPaymentStatus(),
			OrderStatus:     enums.OrderStatusPending,
			SubtotalCents:   subtotal,
			TaxCents:        tax,
			ShippingCents:   shipping,
			TotalCents:      subtotal + tax + shipping,
			Items:           items,
		}
		if err := s.ordersRepo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Internal(err, "create order")
		}

		if err := cartRepo.Clear(ctx, record.ID); err != nil {
			return pkgerrors.Internal(err, "clear cart")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data:          orderCreatedEvent(order),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// orderNumber is ORD-<unix millis>-<random base36>, unique without a sequence.
func (s *service) orderNumber() (string, error) {
	suffix, err := security.RandomUpperBase36(orderNumberSuffixLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%s", s.now().UnixMilli(), suffix), nil
}

func validateInput(input PlaceOrderInput) (types.ShippingAddress, enums.PaymentMethod, error) {
	if input.ShippingAddress == nil || strings.TrimSpace(input.PaymentMethod) == "" {
		return types.ShippingAddress{}, "", pkgerrors.New(pkgerrors.CodeValidation, "Shipping address and payment method are required")
	}
	address := *input.ShippingAddress
	if missing := address.MissingFields(); len(missing) > 0 {
		return types.ShippingAddress{}, "", pkgerrors.New(pkgerrors.CodeValidation, "Shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	method, err := enums.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(input.PaymentMethod)))
	if err != nil {
		return types.ShippingAddress{}, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment method must be card, upi or cod")
	}
	return address, method, nil
}

func orderCreatedEvent(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderItemLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderItemLine{
			ProductID:      item.ProductID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		SubtotalCents: order.SubtotalCents,
		TaxCents:      order.TaxCents,
		ShippingCents: order.ShippingCents,
		TotalCents:    order.TotalCents,
		Items:         lines,
	}
}
