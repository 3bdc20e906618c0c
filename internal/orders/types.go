package orders

import "time"

// Gateways. Each owns its own order_id space.
const (
	GatewayStripe   = "stripe"   // card-checkout sessions
	GatewayRazorpay = "razorpay" // regional orders
	GatewayPaypal   = "paypal"   // wallet orders
)

// Order statuses. paid and failed are terminal.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// Order is the item stored in the order_enrollments DynamoDB table,
// keyed by (gateway, order_id). Rows are never deleted; they are the
// payment audit trail.
type Order struct {
	Gateway    string     `dynamodbav:"gateway"`  // PK
	OrderID    string     `dynamodbav:"order_id"` // SK, assigned by the gateway
	UserID     string     `dynamodbav:"user_id,omitempty"`
	UserEmail  string     `dynamodbav:"user_email,omitempty"`
	CourseID   string     `dynamodbav:"course_id,omitempty"`
	CohortID   string     `dynamodbav:"cohort_id,omitempty"`
	Amount     int64      `dynamodbav:"amount"` // minor units, fixed at creation
	Currency   string     `dynamodbav:"currency"`
	CouponCode string     `dynamodbav:"coupon_code,omitempty"`
	Status     string     `dynamodbav:"status"`
	PaymentID  string     `dynamodbav:"payment_id,omitempty"`
	CreatedAt  time.Time  `dynamodbav:"created_at"`
	UpdatedAt  time.Time  `dynamodbav:"updated_at"`
	PaidAt     *time.Time `dynamodbav:"paid_at,omitempty"`
}
