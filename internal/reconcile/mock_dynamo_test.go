package reconcile

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo backs both the orders and enrollments tables in memory.
// Items are keyed gateway#order_id (orders) or user_id (enrollments).
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
	if uid, ok := attrs["user_id"].(*types.AttributeValueMemberS); ok {
		return uid.Value, nil
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
