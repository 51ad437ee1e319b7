package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a crashed pass can keep the lock. Passes
// are expected to finish well inside the hourly cadence.
const DefaultLockTTL = 30 * time.Minute

const lockKey = "sync"

// Lock is the advisory one-sync-in-flight lock, implemented as a DynamoDB
// conditional put with a TTL. When no client is configured it degrades to an
// in-process lock.
type Lock struct {
	client    *dynamodb.Client
	tableName string
	ttl       time.Duration
	holder    string

	// In-memory fallback
	mu         sync.Mutex
	memHeld    bool
	memExpires time.Time
}

// NewLock creates a Lock. client may be nil for the in-memory fallback.
func NewLock(client *dynamodb.Client, tableName string) *Lock {
	return &Lock{
		client:    client,
		tableName: tableName,
		ttl:       DefaultLockTTL,
		holder:    uuid.NewString(),
	}
}

// TryAcquire attempts to take the lock without blocking. It succeeds only
// when no lock exists or the existing lock has expired; a held lock refuses
// every caller, including the holding instance, since concurrent triggers
// share one Lock.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	now := time.Now()

	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.memHeld && now.Before(l.memExpires) {
			return false, nil
		}
		l.memHeld = true
		l.memExpires = now.Add(l.ttl)
		return true, nil
	}

	expiresAt := now.Add(l.ttl).Unix()
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"lock_id":    &types.AttributeValueMemberS{Value: lockKey},
			"holder":     &types.AttributeValueMemberS{Value: l.holder},
			"expires_at": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt)},
		},
		ConditionExpression: aws.String(
			"attribute_not_exists(lock_id) OR expires_at < :now",
		),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	return true, nil
}

// Release frees the lock if this instance holds it.
func (l *Lock) Release(ctx context.Context) error {
	if l.client == nil {
		l.mu.Lock()
		l.memHeld = false
		l.mu.Unlock()
		return nil
	}

	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"lock_id": &types.AttributeValueMemberS{Value: lockKey},
		},
		ConditionExpression: aws.String("holder = :holder"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":holder": &types.AttributeValueMemberS{Value: l.holder},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil
		}
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}
