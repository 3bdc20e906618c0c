package main

// NotificationMessage is the queue message produced after a paid transition.
// It mirrors the payload the reconciliation engine publishes.
type NotificationMessage struct {
	Kind      string `json:"kind"`
	To        string `json:"to"`
	Gateway   string `json:"gateway"`
	OrderID   string `json:"order_id"`
	CourseID  string `json:"course_id,omitempty"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id,omitempty"`
}

const kindPaymentConfirmed = "payment_confirmed"
