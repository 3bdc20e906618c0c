package enrollments

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/courseloop/enrollflow/internal/aws"
)

// Store encapsulates operations on the enrollments table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new enrollments Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Upsert writes the enrollment keyed by user_id, overwriting any existing
// record for that user. An empty CohortID is defaulted.
func (s *Store) Upsert(ctx context.Context, e Enrollment) error {
	if e.CohortID == "" {
		e.CohortID = DefaultCohortID
	}
	e.UpdatedAt = s.nowFunc()

	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal enrollment: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put enrollment: %w", err)
	}
	return nil
}

// Get fetches an enrollment by user id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, userID string) (*Enrollment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var e Enrollment
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, fmt.Errorf("unmarshal enrollment: %w", err)
	}
	return &e, nil
}
