package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/courseloop/enrollflow/internal/auth"
	"github.com/courseloop/enrollflow/internal/aws"
	"github.com/courseloop/enrollflow/internal/checkout"
	"github.com/courseloop/enrollflow/internal/enrollments"
	"github.com/courseloop/enrollflow/internal/gateways"
	"github.com/courseloop/enrollflow/internal/handlers"
	"github.com/courseloop/enrollflow/internal/orders"
	"github.com/courseloop/enrollflow/internal/pricing"
	"github.com/courseloop/enrollflow/internal/reconcile"
	"go.uber.org/zap"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	ordersTable := os.Getenv("ORDERS_TABLE")
	orderStore := orders.NewStore(clients.DynamoDB, ordersTable)
	enrollStore := enrollments.NewStore(clients.DynamoDB, os.Getenv("ENROLLMENTS_TABLE"))
	resolver := pricing.NewResolver(pricing.NewStore(
		clients.DynamoDB,
		os.Getenv("COURSES_TABLE"),
		os.Getenv("COUPONS_TABLE"),
		os.Getenv("DEFAULT_COURSE_ID"),
	))

	publisher := aws.NewPublisher(clients.SQS, os.Getenv("NOTIFICATIONS_QUEUE_URL"))
	metrics := aws.NewMetrics(clients.CloudWatch)
	engine := reconcile.NewEngine(orderStore, enrollStore, publisher, metrics, logger)

	cfg := handlers.HandlerConfig{
		Logger:   logger,
		Verifier: auth.NewVerifier(os.Getenv("AUTH_JWT_SECRET")),
		Resolver: resolver,
		Checkout: checkout.NewService(resolver, orderStore, logger),
		Engine:   engine,
		Orders:   orderStore,
		Metrics:  metrics,
		Stripe: gateways.NewStripeAdapter(gateways.StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    os.Getenv("CHECKOUT_SUCCESS_URL"),
			CancelURL:     os.Getenv("CHECKOUT_CANCEL_URL"),
			ProductName:   os.Getenv("PRODUCT_NAME"),
		}),
		Razorpay: gateways.NewRazorpayAdapter(gateways.RazorpayConfig{
			KeyID:         os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		}),
		Paypal: gateways.NewPaypalAdapter(gateways.PaypalConfig{
			ClientID:  os.Getenv("PAYPAL_CLIENT_ID"),
			Secret:    os.Getenv("PAYPAL_SECRET"),
			ReturnURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
			CancelURL: os.Getenv("CHECKOUT_CANCEL_URL"),
			BaseURL:   os.Getenv("PAYPAL_BASE_URL"),
		}),
		AdminToken:          os.Getenv("ADMIN_TOKEN"),
		AllowRegionOverride: os.Getenv("ALLOW_REGION_OVERRIDE") == "true",
		DefaultRegion:       os.Getenv("DEFAULT_REGION"),
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
