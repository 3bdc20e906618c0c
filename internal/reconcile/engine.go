package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/courseloop/enrollflow/internal/aws"
	"github.com/courseloop/enrollflow/internal/enrollments"
	"github.com/courseloop/enrollflow/internal/orders"
	"go.uber.org/zap"
)

// ErrOrderNotFound indicates no order row exists for the identifiers given.
var ErrOrderNotFound = errors.New("order not found")

// ErrOrderFailed indicates a confirmation arrived for an order already in
// the terminal failed state.
var ErrOrderFailed = errors.New("order already failed")

// NotificationPublisher is the queue the engine hands side-effect messages to.
type NotificationPublisher interface {
	SendNotification(ctx context.Context, payload interface{}, attributes map[string]string) error
}

// Notification is the message placed on the queue after a paid transition.
// The notifier worker renders it into payer and operator emails.
type Notification struct {
	Kind      string `json:"kind"`
	To        string `json:"to"`
	Gateway   string `json:"gateway"`
	OrderID   string `json:"order_id"`
	CourseID  string `json:"course_id,omitempty"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id,omitempty"`
}

// KindPaymentConfirmed is the single notification kind the engine emits.
const KindPaymentConfirmed = "payment_confirmed"

// Result reports one reconciliation attempt. Transitioned distinguishes a
// fresh pending->paid win from an idempotent re-invocation.
type Result struct {
	Transitioned bool
	Order        *orders.Order
}

// Engine drives the order state machine. Webhooks, user-return captures and
// manual fixes all converge here so the gateways cannot drift: one CAS
// transition, one side-effect path.
type Engine struct {
	orders      *orders.Store
	enrollments *enrollments.Store
	publisher   NotificationPublisher
	metrics     *aws.Metrics
	logger      *zap.Logger
}

func NewEngine(orderStore *orders.Store, enrollStore *enrollments.Store, publisher NotificationPublisher, metrics *aws.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		orders:      orderStore,
		enrollments: enrollStore,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
	}
}

// Confirm transitions (gateway, orderID) from pending to paid and fires the
// post-transition side effects exactly once. Re-invocation on an already-paid
// order is a success no-op. A missing row returns ErrOrderNotFound; callers
// on the webhook path translate that into an acknowledgement.
func (e *Engine) Confirm(ctx context.Context, gateway, orderID, paymentID string) (*Result, error) {
	log := e.logger.With(
		zap.String("gateway", gateway),
		zap.String("order_id", orderID),
	)

	err := e.orders.MarkPaid(ctx, gateway, orderID, paymentID)
	if err == nil {
		order, getErr := e.orders.Get(ctx, gateway, orderID)
		if getErr != nil {
			return nil, fmt.Errorf("reload paid order: %w", getErr)
		}
		log.Info("order reconciled", zap.String("step", "transition"), zap.String("payment_id", paymentID))
		e.applyPaidSideEffects(ctx, log, order)
		e.count(ctx, aws.MetricOrdersReconciled, gateway)
		return &Result{Transitioned: true, Order: order}, nil
	}

	if !errors.Is(err, orders.ErrStatusMismatch) {
		return nil, fmt.Errorf("mark paid: %w", err)
	}

	// Lost the conditional update: either the row is missing or the order is
	// already terminal. Inspect to decide.
	order, getErr := e.orders.Get(ctx, gateway, orderID)
	if getErr != nil {
		return nil, fmt.Errorf("inspect order after mismatch: %w", getErr)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	switch order.Status {
	case orders.StatusPaid:
		// duplicate confirmation: no state change, no duplicate side effects
		log.Info("duplicate confirmation", zap.String("step", "idempotent-noop"))
		e.count(ctx, aws.MetricDuplicateConfirmations, gateway)
		return &Result{Transitioned: false, Order: order}, nil
	case orders.StatusFailed:
		return nil, ErrOrderFailed
	default:
		return nil, fmt.Errorf("unexpected status %q after conditional failure", order.Status)
	}
}

// Fail transitions pending -> failed. Already-terminal orders are left alone.
func (e *Engine) Fail(ctx context.Context, gateway, orderID string) error {
	err := e.orders.MarkFailed(ctx, gateway, orderID)
	if errors.Is(err, orders.ErrStatusMismatch) {
		e.logger.Info("fail ignored for non-pending order",
			zap.String("gateway", gateway), zap.String("order_id", orderID))
		return nil
	}
	return err
}

// ConfirmByEmail is the manual-fix path: locate the order by (email, orderID)
// across gateways and force the paid transition. Trusted callers only.
func (e *Engine) ConfirmByEmail(ctx context.Context, email, orderID string) (*Result, error) {
	gateway, err := e.findGateway(ctx, orderID, func(o *orders.Order) bool {
		return o.UserEmail == email
	})
	if err != nil {
		return nil, err
	}
	res, err := e.Confirm(ctx, gateway, orderID, "")
	if err != nil {
		return nil, err
	}
	e.count(ctx, aws.MetricManualFixes, gateway)
	return res, nil
}

// ConfirmByPaymentID is the manual-confirm path keyed on
// (orderID, paymentID). Trusted callers only.
func (e *Engine) ConfirmByPaymentID(ctx context.Context, orderID, paymentID string) (*Result, error) {
	gateway, err := e.findGateway(ctx, orderID, nil)
	if err != nil {
		return nil, err
	}
	res, err := e.Confirm(ctx, gateway, orderID, paymentID)
	if err != nil {
		return nil, err
	}
	e.count(ctx, aws.MetricManualFixes, gateway)
	return res, nil
}

// ClaimByEmail projects a signed-in user's paid guest orders into their
// enrollment. This is the explicit recovery step for orders created before
// authentication; nothing performs it implicitly.
func (e *Engine) ClaimByEmail(ctx context.Context, userID, email string) (int, error) {
	paid, err := e.orders.PaidByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("find paid orders: %w", err)
	}
	claimed := 0
	for _, o := range paid {
		if o.UserID != "" && o.UserID != userID {
			// someone else's order against the same email; skip
			continue
		}
		err := e.enrollments.Upsert(ctx, enrollments.Enrollment{
			UserID:        userID,
			CourseID:      o.CourseID,
			CohortID:      o.CohortID,
			PaymentStatus: enrollments.PaymentCompleted,
		})
		if err != nil {
			return claimed, fmt.Errorf("project claimed order %s: %w", o.OrderID, err)
		}
		claimed++
	}
	return claimed, nil
}

// findGateway scans the known gateways for orderID, optionally filtered.
func (e *Engine) findGateway(ctx context.Context, orderID string, match func(*orders.Order) bool) (string, error) {
	for _, gw := range []string{orders.GatewayRazorpay, orders.GatewayStripe, orders.GatewayPaypal} {
		o, err := e.orders.Get(ctx, gw, orderID)
		if err != nil {
			return "", fmt.Errorf("probe %s: %w", gw, err)
		}
		if o == nil {
			continue
		}
		if match != nil && !match(o) {
			continue
		}
		return gw, nil
	}
	return "", ErrOrderNotFound
}

// applyPaidSideEffects runs the enrollment projection and notification
// publish. Both are downstream of the paid fact: their failures are logged
// and never roll the transition back.
func (e *Engine) applyPaidSideEffects(ctx context.Context, log *zap.Logger, order *orders.Order) {
	if order.UserID != "" {
		err := e.enrollments.Upsert(ctx, enrollments.Enrollment{
			UserID:        order.UserID,
			CourseID:      order.CourseID,
			CohortID:      order.CohortID,
			PaymentStatus: enrollments.PaymentCompleted,
		})
		if err != nil {
			log.Error("enrollment projection failed; order is paid, recover via claim",
				zap.String("step", "project"), zap.Error(err))
		}
	} else {
		log.Warn("paid order has no user_id; enrollment deferred to claim step",
			zap.String("step", "project"), zap.String("user_email", order.UserEmail))
	}

	if e.publisher != nil {
		n := Notification{
			Kind:      KindPaymentConfirmed,
			To:        order.UserEmail,
			Gateway:   order.Gateway,
			OrderID:   order.OrderID,
			CourseID:  order.CourseID,
			Amount:    order.Amount,
			Currency:  order.Currency,
			PaymentID: order.PaymentID,
		}
		attrs := map[string]string{"kind": n.Kind, "gateway": n.Gateway}
		if err := e.publisher.SendNotification(ctx, n, attrs); err != nil {
			log.Error("notification enqueue failed", zap.String("step", "notify"), zap.Error(err))
		}
	}
}

func (e *Engine) count(ctx context.Context, name, gateway string) {
	if e.metrics == nil {
		return
	}
	if err := e.metrics.Count(ctx, name, gateway); err != nil {
		e.logger.Warn("metric emission failed", zap.String("metric", name), zap.Error(err))
	}
}
