package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/courseloop/enrollflow/internal/auth"
	"github.com/courseloop/enrollflow/internal/checkout"
	"github.com/courseloop/enrollflow/internal/enrollments"
	"github.com/courseloop/enrollflow/internal/gateways"
	"github.com/courseloop/enrollflow/internal/orders"
	"github.com/courseloop/enrollflow/internal/pricing"
	"github.com/courseloop/enrollflow/internal/reconcile"
	"go.uber.org/zap"
)

const (
	testOrdersTable      = "order_enrollments"
	testEnrollmentsTable = "enrollments"
	testCoursesTable     = "courses"
	testCouponsTable     = "coupons"
	testCourseID         = "go-cohort"
	testAuthSecret       = "test-auth-secret"
	testAdminToken       = "admin-test-token"
)

// mockDynamo backs all four tables in memory. Items are keyed by whichever
// key attributes the table uses.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) ensureTable(tbl string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[tbl]
}

func itemKey(attrs map[string]types.AttributeValue) (string, error) {
	if gw, ok := attrs["gateway"].(*types.AttributeValueMemberS); ok {
		id := attrs["order_id"].(*types.AttributeValueMemberS)
		return gw.Value + "#" + id.Value, nil
	}
	for _, pk := range []string{"user_id", "course_id", "code"} {
		if v, ok := attrs[pk].(*types.AttributeValueMemberS); ok {
			return v.Value, nil
		}
	}
	return "", errors.New("no recognizable key attributes")
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.ensureTable(*params.TableName)
	k, err := itemKey(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, exists := tbl[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	tbl[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.ensureTable(*params.TableName)
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := tbl[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.ensureTable(*params.TableName)
	k, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := tbl[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :expected" {
		expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
		curr, ok := item["status"].(*types.AttributeValueMemberS)
		if !ok || curr.Value != expected {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":pa"]; ok {
		item["paid_at"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":pid"]; ok {
		item["payment_id"] = v
	}
	tbl[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.ensureTable(*params.TableName)
	email := params.ExpressionAttributeValues[":e"].(*types.AttributeValueMemberS).Value
	var out []map[string]types.AttributeValue
	for _, item := range tbl {
		e, ok := item["user_email"].(*types.AttributeValueMemberS)
		if !ok || e.Value != email {
			continue
		}
		if params.FilterExpression != nil {
			paid := params.ExpressionAttributeValues[":paid"].(*types.AttributeValueMemberS).Value
			if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != paid {
				continue
			}
		}
		out = append(out, item)
	}
	return &dyn.QueryOutput{Items: out}, nil
}

// orderRaw exposes the stored item for assertions on raw attributes.
func (m *mockDynamo) orderRaw(gateway, orderID string) map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureTable(testOrdersTable)[gateway+"#"+orderID]
}

func (m *mockDynamo) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ensureTable(testOrdersTable))
}

type fakePublisher struct {
	mu    sync.Mutex
	sends []interface{}
}

func (f *fakePublisher) SendNotification(ctx context.Context, payload interface{}, attributes map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type testEnv struct {
	router      *gin.Engine
	db          *mockDynamo
	publisher   *fakePublisher
	orders      *orders.Store
	enrollments *enrollments.Store
	gatewayStub *httptest.Server
}

// gatewayResponses drives the shared provider stub: one canned body per path
// suffix, good enough for create-order calls in handler tests.
type gatewayResponses map[string]string

func newTestEnv(t *testing.T, razorpayWebhookSecret string, stubs gatewayResponses) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newMockDynamo()
	seedCourse(t, db)

	stub := httptest.NewServer(stubHandler(stubs))
	t.Cleanup(stub.Close)

	orderStore := orders.NewStore(db, testOrdersTable)
	enrollStore := enrollments.NewStore(db, testEnrollmentsTable)
	resolver := pricing.NewResolver(pricing.NewStore(db, testCoursesTable, testCouponsTable, testCourseID))
	publisher := &fakePublisher{}
	logger := zap.NewNop()

	engine := reconcile.NewEngine(orderStore, enrollStore, publisher, nil, logger)

	cfg := HandlerConfig{
		Logger:   logger,
		Verifier: auth.NewVerifier(testAuthSecret),
		Resolver: resolver,
		Checkout: checkout.NewService(resolver, orderStore, logger),
		Engine:   engine,
		Orders:   orderStore,
		Stripe: gateways.NewStripeAdapter(gateways.StripeConfig{
			SecretKey: "sk_test", BaseURL: stub.URL,
		}),
		Razorpay: gateways.NewRazorpayAdapter(gateways.RazorpayConfig{
			KeyID: "rzp_test_key", KeySecret: "secret",
			WebhookSecret: razorpayWebhookSecret, BaseURL: stub.URL,
		}),
		Paypal: gateways.NewPaypalAdapter(gateways.PaypalConfig{
			ClientID: "pp_client", Secret: "pp_secret", BaseURL: stub.URL,
		}),
		AdminToken:          testAdminToken,
		AllowRegionOverride: false,
		DefaultRegion:       pricing.RegionUS,
	}

	r := gin.New()
	RegisterRoutes(r, cfg)

	return &testEnv{
		router:      r,
		db:          db,
		publisher:   publisher,
		orders:      orderStore,
		enrollments: enrollStore,
		gatewayStub: stub,
	}
}

func seedCourse(t *testing.T, db *mockDynamo) {
	t.Helper()
	db.ensureTable(testCoursesTable)[testCourseID] = map[string]types.AttributeValue{
		"course_id": &types.AttributeValueMemberS{Value: testCourseID},
		"cohort_id": &types.AttributeValueMemberS{Value: "2026-spring"},
		"active":    &types.AttributeValueMemberBOOL{Value: true},
		"prices": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"INR": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"regular":    &types.AttributeValueMemberN{Value: "6499"},
				"early_bird": &types.AttributeValueMemberN{Value: "4999"},
			}},
			"USD": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"regular":    &types.AttributeValueMemberN{Value: "99"},
				"early_bird": &types.AttributeValueMemberN{Value: "79"},
			}},
		}},
		"early_bird": &types.AttributeValueMemberBOOL{Value: false},
	}
}

func stubHandler(stubs gatewayResponses) *gin.Engine {
	g := gin.New()
	g.NoRoute(func(c *gin.Context) {
		for suffix, body := range stubs {
			if c.Request.URL.Path == suffix {
				c.Data(200, "application/json", []byte(body))
				return
			}
		}
		c.Data(404, "application/json", []byte(`{"error":"no stub"}`))
	})
	return g
}

func bearerToken(t *testing.T, userID, email string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
	})
	signed, err := tok.SignedString([]byte(testAuthSecret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return "Bearer " + signed
}
