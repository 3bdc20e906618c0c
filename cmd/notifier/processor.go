package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/courseloop/enrollflow/internal/mail"
	"github.com/courseloop/enrollflow/internal/pricing"
	"go.uber.org/zap"
)

// sender lets tests substitute the mail provider.
type sender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Processor renders queue messages into payer and operator emails. Delivery
// is best-effort: a failed send is logged and dropped rather than retried
// into duplicate emails.
type Processor struct {
	mail         sender
	fromAddr     string
	operatorAddr string
	logger       *zap.Logger
}

// NewProcessor creates a notifier processor.
func NewProcessor(mailClient sender, fromAddr, operatorAddr string, logger *zap.Logger) *Processor {
	return &Processor{
		mail:         mailClient,
		fromAddr:     fromAddr,
		operatorAddr: operatorAddr,
		logger:       logger,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	p.logger.Info("received notification batch", zap.Int("count", len(ev.Records)))
	for _, rec := range ev.Records {
		p.processMessage(ctx, rec)
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) {
	var msg NotificationMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		// a malformed body will never parse on retry; drop it
		p.logger.Error("invalid message body", zap.String("body", rec.Body), zap.Error(err))
		return
	}
	if msg.Kind != kindPaymentConfirmed {
		p.logger.Warn("unknown notification kind", zap.String("kind", msg.Kind))
		return
	}

	log := p.logger.With(
		zap.String("gateway", msg.Gateway),
		zap.String("order_id", msg.OrderID),
	)

	display := pricing.FormatDisplay(msg.Currency, msg.Amount)

	if msg.To != "" {
		if err := p.mail.Send(ctx, p.payerEmail(msg, display)); err != nil {
			log.Error("payer email failed", zap.String("to", msg.To), zap.Error(err))
		} else {
			log.Info("payer email sent", zap.String("to", msg.To))
		}
	} else {
		log.Warn("notification has no payer address")
	}

	if p.operatorAddr != "" {
		if err := p.mail.Send(ctx, p.operatorEmail(msg, display)); err != nil {
			log.Error("operator email failed", zap.Error(err))
		}
	}
}

func (p *Processor) payerEmail(msg NotificationMessage, display string) mail.Message {
	return mail.Message{
		From:    p.fromAddr,
		To:      msg.To,
		Subject: "Payment confirmed: you're enrolled",
		HTML: fmt.Sprintf(
			"<p>Your payment of <strong>%s</strong> is confirmed and your seat is booked.</p>"+
				"<p>Order reference: %s</p>",
			display, msg.OrderID),
		Text: fmt.Sprintf("Your payment of %s is confirmed and your seat is booked. Order reference: %s",
			display, msg.OrderID),
	}
}

func (p *Processor) operatorEmail(msg NotificationMessage, display string) mail.Message {
	return mail.Message{
		From:    p.fromAddr,
		To:      p.operatorAddr,
		Subject: fmt.Sprintf("New enrollment paid via %s", msg.Gateway),
		HTML: fmt.Sprintf(
			"<p>%s paid %s via %s.</p><p>order=%s payment=%s course=%s</p>",
			msg.To, display, msg.Gateway, msg.OrderID, msg.PaymentID, msg.CourseID),
	}
}
