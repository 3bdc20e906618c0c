package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/courseloop/enrollflow/internal/aws"
)

// ErrAlreadyExists indicates an insert collided with an existing (gateway, order_id).
var ErrAlreadyExists = errors.New("order already exists")

// ErrStatusMismatch indicates a conditional status transition lost: the order
// was no longer in the expected state when the update ran.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

const emailIndex = "email-index"

// Store encapsulates operations on the order_enrollments table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create inserts a new pending order. The (gateway, order_id) pair must be
// fresh; a collision returns ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, order Order) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// Get fetches an order by (gateway, order_id). Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, gateway, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(gateway, orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// MarkPaid atomically transitions pending -> paid and stamps paid_at.
// The conditional update restricted to status = pending is what closes the
// webhook/manual-fix race: the loser gets ErrStatusMismatch, never a double
// transition. paymentID is recorded when non-empty.
func (s *Store) MarkPaid(ctx context.Context, gateway, orderID, paymentID string) error {
	now := s.nowFunc()
	updateExpr := "SET #s = :new, paid_at = :pa, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: StatusPaid},
		":pa":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":expected": &types.AttributeValueMemberS{Value: StatusPending},
	}
	if paymentID != "" {
		updateExpr += ", payment_id = :pid"
		values[":pid"] = &types.AttributeValueMemberS{Value: paymentID}
	}

	return s.conditionalUpdate(ctx, gateway, orderID, updateExpr, values)
}

// MarkFailed atomically transitions pending -> failed.
func (s *Store) MarkFailed(ctx context.Context, gateway, orderID string) error {
	now := s.nowFunc()
	updateExpr := "SET #s = :new, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: StatusFailed},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":expected": &types.AttributeValueMemberS{Value: StatusPending},
	}
	return s.conditionalUpdate(ctx, gateway, orderID, updateExpr, values)
}

func (s *Store) conditionalUpdate(ctx context.Context, gateway, orderID, updateExpr string, values map[string]types.AttributeValue) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(gateway, orderID),
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

// PaidByEmail returns paid orders recorded against an email, via the
// email-index GSI. Used by the claim-orders flow.
func (s *Store) PaidByEmail(ctx context.Context, email string) ([]Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(emailIndex),
		KeyConditionExpression: awsString("user_email = :e"),
		FilterExpression:       awsString("#s = :paid"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e":    &types.AttributeValueMemberS{Value: email},
			":paid": &types.AttributeValueMemberS{Value: StatusPaid},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query by email: %w", err)
	}
	result := make([]Order, 0, len(out.Items))
	for _, item := range out.Items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		result = append(result, o)
	}
	return result, nil
}

func orderKey(gateway, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"gateway":  &types.AttributeValueMemberS{Value: gateway},
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }
