package validation

// PriceRequest is the payload for POST /price. Region is honored only when
// override is enabled; production derives it server-side.
type PriceRequest struct {
	CourseID string `json:"course_id,omitempty"`
	Region   string `json:"region,omitempty" validate:"omitempty,oneof=IN US"`
	Coupon   string `json:"coupon,omitempty" validate:"omitempty,couponcode"`
}

// CreateOrderRequest is the payload for the three create-order endpoints.
type CreateOrderRequest struct {
	CourseID string `json:"course_id,omitempty"`
	Region   string `json:"region,omitempty" validate:"omitempty,oneof=IN US"`
	Coupon   string `json:"coupon,omitempty" validate:"omitempty,couponcode"`
}

// CaptureRequest confirms a wallet order after buyer approval.
type CaptureRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// ManualFixRequest forces reconciliation by (email, order id).
type ManualFixRequest struct {
	UserEmail string `json:"user_email" validate:"required,email"`
	OrderID   string `json:"order_id" validate:"required"`
}

// ManualConfirmRequest forces reconciliation by (order id, payment id).
type ManualConfirmRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
}
