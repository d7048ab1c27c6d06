package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"room-designer/internal/domain"
)

const (
	pkPrefix         = "THREAD#"
	skSession        = "SESSION#"
	ttlAttribute     = "ttl"
	DefaultRetention = 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps one item per thread. The table's TTL attribute is "ttl";
// because DynamoDB deletes expired items lazily, reads also filter on it.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	retention time.Duration
	now       func() time.Time
}

// NewDynamoStore creates a DynamoDB backed checkpoint store.
func NewDynamoStore(api dynamodbAPI, tableName string, retention time.Duration) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &DynamoStore{api: api, tableName: tableName, retention: retention, now: time.Now}, nil
}

// threadPK returns the partition key for a thread.
func threadPK(threadToken string) string {
	return pkPrefix + threadToken
}

func (s *DynamoStore) key(threadToken string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: threadPK(threadToken)},
		"SK": &types.AttributeValueMemberS{Value: skSession},
	}
}

// Get returns the live record for a thread. Missing and expired items are
// both reported as found=false.
func (s *DynamoStore) Get(ctx context.Context, threadToken string) (domain.SessionState, bool, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(threadToken),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: Get get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.SessionState{}, false, nil
	}

	expires, err := int64Attr(out.Item, ttlAttribute)
	if err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: Get decode ttl: %w", err)
	}
	if expires <= s.now().Unix() {
		return domain.SessionState{}, false, nil
	}

	var state domain.SessionState
	if err := attributevalue.UnmarshalMap(out.Item, &state); err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: Get unmarshal: %w", err)
	}
	return state, true, nil
}

// Put replaces the record for state.ThreadToken and restarts its retention
// window.
func (s *DynamoStore) Put(ctx context.Context, state domain.SessionState) error {
	if strings.TrimSpace(state.ThreadToken) == "" {
		return errors.New("repository: Put: thread token is required")
	}
	item, err := attributevalue.MarshalMap(state)
	if err != nil {
		return fmt.Errorf("repository: Put marshal: %w", err)
	}
	for k, v := range s.key(state.ThreadToken) {
		item[k] = v
	}
	item[ttlAttribute] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.expiry(state), 10)}

	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("repository: Put: %w", err)
	}
	return nil
}

// expiry returns the Unix time the record stops being readable.
func (s *DynamoStore) expiry(state domain.SessionState) int64 {
	written := state.UpdatedAt
	if written.IsZero() {
		written = s.now()
	}
	return written.Add(s.retention).Unix()
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
