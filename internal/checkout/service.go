package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/courseloop/enrollflow/internal/auth"
	"github.com/courseloop/enrollflow/internal/aws"
	"github.com/courseloop/enrollflow/internal/gateways"
	"github.com/courseloop/enrollflow/internal/orders"
	"github.com/courseloop/enrollflow/internal/pricing"
	"go.uber.org/zap"
)

// ErrPersistence indicates the local order write failed after the provider
// order was already created: an orphaned external order exists. Logged loudly;
// the reconciliation engine tolerates the missing row (webhooks for it ack as
// no-ops) and the manual paths recover it.
var ErrPersistence = errors.New("order persistence failed")

// ErrNoSupportedCurrency indicates neither the resolved nor the fallback
// currency is chargeable on the selected gateway.
var ErrNoSupportedCurrency = errors.New("no supported currency for gateway")

// Request selects what to buy. Region must already be server-derived.
type Request struct {
	CourseID   string
	Region     string
	CouponCode string
}

// Session is a created order: the local pending record plus whatever the
// browser needs to continue with the provider.
type Session struct {
	Gateway    string
	OrderID    string
	Amount     int64
	Currency   string
	Directives gateways.ClientDirectives
}

// Service implements the create-order contract once, shared by all three
// gateways: resolve pricing, fall back currency where the provider demands
// it, create the provider order, persist the pending record.
type Service struct {
	resolver       *pricing.Resolver
	orders         *orders.Store
	fallbackRegion string
	logger         *zap.Logger
}

func NewService(resolver *pricing.Resolver, orderStore *orders.Store, logger *zap.Logger) *Service {
	return &Service{
		resolver:       resolver,
		orders:         orderStore,
		fallbackRegion: pricing.RegionUS,
		logger:         logger,
	}
}

// CreateOrder runs the shared flow for an authenticated user. Pricing must
// resolve before any provider call; a provider failure persists nothing.
func (s *Service) CreateOrder(ctx context.Context, adapter gateways.Adapter, user *auth.User, req Request) (*Session, error) {
	log := s.logger.With(zap.String("gateway", adapter.Name()), zap.String("user_id", user.ID))

	res, err := s.resolver.Resolve(ctx, pricing.Input{
		CourseID:   req.CourseID,
		Region:     req.Region,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve pricing: %w", err)
	}

	if !adapter.SupportsCurrency(res.Currency) {
		// currency-downgrade fallback: re-resolve for the fallback region and
		// charge/persist that amount, not the original region's
		log.Info("currency unsupported, re-resolving",
			zap.String("step", "currency-fallback"),
			zap.String("currency", res.Currency),
			zap.String("fallback_region", s.fallbackRegion))
		res, err = s.resolver.Resolve(ctx, pricing.Input{
			CourseID:   req.CourseID,
			Region:     s.fallbackRegion,
			CouponCode: req.CouponCode,
		})
		if err != nil {
			return nil, fmt.Errorf("resolve fallback pricing: %w", err)
		}
		if !adapter.SupportsCurrency(res.Currency) {
			return nil, ErrNoSupportedCurrency
		}
	}

	po, err := adapter.CreateOrder(ctx, gateways.CreateOrderInput{
		UserID:    user.ID,
		UserEmail: user.Email,
		CourseID:  res.CourseID,
		Amount:    res.Amount,
		Currency:  res.Currency,
	})
	if err != nil {
		return nil, err
	}
	log.Info("provider order created",
		zap.String("step", "provider-create"),
		zap.String("order_id", po.OrderID),
		zap.Int64("amount", res.Amount),
		zap.String("currency", res.Currency))

	order := orders.Order{
		Gateway:    adapter.Name(),
		OrderID:    po.OrderID,
		UserID:     user.ID,
		UserEmail:  user.Email,
		CourseID:   res.CourseID,
		CohortID:   res.CohortID,
		Amount:     res.Amount,
		Currency:   res.Currency,
		CouponCode: res.CouponApplied,
		Status:     orders.StatusPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		// the provider-side order exists with no local record
		log.Error("orphaned provider order: local persist failed after provider create",
			zap.String("step", "persist"),
			zap.String("order_id", po.OrderID),
			zap.String("aws_code", aws.ErrorCode(err)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &Session{
		Gateway:    adapter.Name(),
		OrderID:    po.OrderID,
		Amount:     res.Amount,
		Currency:   res.Currency,
		Directives: po.Directives,
	}, nil
}
