package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/courseloop/enrollflow/internal/mail"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	mailClient := mail.NewClient(os.Getenv("RESEND_API_KEY"), os.Getenv("MAIL_BASE_URL"))
	p := NewProcessor(mailClient, os.Getenv("MAIL_FROM"), os.Getenv("OPERATOR_EMAIL"), logger)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"kind":"payment_confirmed","to":"student@example.com","gateway":"razorpay","order_id":"local-order-1","amount":649900,"currency":"INR"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		return
	}

	lambda.Start(p.Handle)
}
