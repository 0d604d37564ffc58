package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefixEvent = "EVENT#"
	skEvent       = "META#"
	defaultTTL    = 72 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Ledger.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Ledger records webhook event ids in a DynamoDB table so redelivered events
// are handled once.
type Ledger struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a Ledger. A non-positive ttl falls back to three days.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Ledger, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Ledger{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

func eventPK(eventID string) string {
	return pkPrefixEvent + eventID
}

// MarkProcessed records eventID and reports whether it was new. A second call
// with the same id returns false without error.
func (l *Ledger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errors.New("repository: MarkProcessed: event id is required")
	}

	now := l.now().UTC()
	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                eventItem(eventID, now, now.Add(l.ttl).Unix()),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("repository: MarkProcessed: %w", err)
	}
	return true, nil
}

func eventItem(eventID string, processedAt time.Time, ttl int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: eventPK(eventID)},
		"SK":          &types.AttributeValueMemberS{Value: skEvent},
		"eventId":     &types.AttributeValueMemberS{Value: eventID},
		"processedAt": &types.AttributeValueMemberS{Value: processedAt.Format(time.RFC3339Nano)},
		"ttl":         &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
	}
}
