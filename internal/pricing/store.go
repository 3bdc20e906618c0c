package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/courseloop/enrollflow/internal/aws"
)

// Store reads course pricing and coupon reference data from DynamoDB.
type Store struct {
	client          aws.DynamoDBAPI
	coursesTable    string
	couponsTable    string
	defaultCourseID string
}

// NewStore creates a pricing Store. defaultCourseID is used when a request
// carries no course selector.
func NewStore(client aws.DynamoDBAPI, coursesTable, couponsTable, defaultCourseID string) *Store {
	return &Store{
		client:          client,
		coursesTable:    coursesTable,
		couponsTable:    couponsTable,
		defaultCourseID: defaultCourseID,
	}
}

// GetCourse fetches a course pricing row. Empty courseID selects the default
// course. Returns (nil, nil) if not found.
func (s *Store) GetCourse(ctx context.Context, courseID string) (*CoursePricing, error) {
	if courseID == "" {
		courseID = s.defaultCourseID
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.coursesTable,
		Key: map[string]types.AttributeValue{
			"course_id": &types.AttributeValueMemberS{Value: courseID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c CoursePricing
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal course: %w", err)
	}
	return &c, nil
}

// GetCoupon fetches a coupon by code, case-insensitively.
// Returns (nil, nil) if not found.
func (s *Store) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.couponsTable,
		Key: map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: strings.ToLower(code)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Coupon
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal coupon: %w", err)
	}
	return &c, nil
}
