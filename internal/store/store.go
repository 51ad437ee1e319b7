// Package store persists the plugin-style configuration records: the API
// credentials, the single OAuth token, and the one-shot admin notice.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/getup/bannersync/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	credentialsKey = "credentials"
	tokenKey       = "token"
	noticeKey      = "notice"
	noncePrefix    = "nonce#"
)

// record is the single-table row shape. Exactly one payload field is set
// depending on RecordID, which keeps the single-token invariant: there is
// only ever one row under the "token" key.
type record struct {
	RecordID     string             `dynamodbav:"record_id"`
	Credentials  *model.Credentials `dynamodbav:"credentials,omitempty"`
	Token        *model.TokenRecord `dynamodbav:"token,omitempty"`
	Notice       string             `dynamodbav:"notice,omitempty"`
	NoncePurpose string             `dynamodbav:"nonce_purpose,omitempty"`
	ExpiresAt    int64              `dynamodbav:"expires_at,omitempty"`
	UpdatedAt    string             `dynamodbav:"updated_at"`
}

// Store reads and writes configuration records in DynamoDB. When no client
// is configured it falls back to in-memory storage, which is what the tests
// and local development use.
type Store struct {
	client    *dynamodb.Client
	tableName string

	// In-memory fallback
	mu      sync.RWMutex
	records map[string]record
}

// New creates a Store. client may be nil for the in-memory fallback.
func New(client *dynamodb.Client, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		records:   make(map[string]record),
	}
}

func (s *Store) put(ctx context.Context, rec record) error {
	rec.UpdatedAt = time.Now().Format(time.RFC3339)

	if s.client == nil {
		s.mu.Lock()
		s.records[rec.RecordID] = rec
		s.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %q: %w", rec.RecordID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save record %q: %w", rec.RecordID, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (record, error) {
	if s.client == nil {
		s.mu.RLock()
		rec, ok := s.records[key]
		s.mu.RUnlock()
		if !ok {
			return record{}, ErrNotFound
		}
		return rec, nil
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"record_id": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return record{}, fmt.Errorf("failed to get record %q: %w", key, err)
	}
	if out.Item == nil {
		return record{}, ErrNotFound
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return record{}, fmt.Errorf("failed to unmarshal record %q: %w", key, err)
	}
	return rec, nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	if s.client == nil {
		s.mu.Lock()
		delete(s.records, key)
		s.mu.Unlock()
		return nil
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"record_id": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %q: %w", key, err)
	}
	return nil
}

// SaveCredentials stores the administrator-entered API credentials.
func (s *Store) SaveCredentials(ctx context.Context, creds model.Credentials) error {
	return s.put(ctx, record{RecordID: credentialsKey, Credentials: &creds})
}

// Credentials returns the stored API credentials, or ErrNotFound.
func (s *Store) Credentials(ctx context.Context) (model.Credentials, error) {
	rec, err := s.get(ctx, credentialsKey)
	if err != nil {
		return model.Credentials{}, err
	}
	if rec.Credentials == nil {
		return model.Credentials{}, ErrNotFound
	}
	return *rec.Credentials, nil
}

// SaveToken overwrites the single token record.
func (s *Store) SaveToken(ctx context.Context, token model.TokenRecord) error {
	return s.put(ctx, record{RecordID: tokenKey, Token: &token})
}

// Token returns the stored token record, or ErrNotFound.
func (s *Store) Token(ctx context.Context) (model.TokenRecord, error) {
	rec, err := s.get(ctx, tokenKey)
	if err != nil {
		return model.TokenRecord{}, err
	}
	if rec.Token == nil {
		return model.TokenRecord{}, ErrNotFound
	}
	return *rec.Token, nil
}

// DeleteToken removes the token record. Deleting an absent record is not an
// error.
func (s *Store) DeleteToken(ctx context.Context) error {
	return s.delete(ctx, tokenKey)
}

// SaveNonce stores a single-use nonce value with its purpose and expiry.
// Nonces live in the shared record table so any serving instance can consume
// a nonce another instance issued.
func (s *Store) SaveNonce(ctx context.Context, value, purpose string, expiresAt time.Time) error {
	return s.put(ctx, record{
		RecordID:     noncePrefix + value,
		NoncePurpose: purpose,
		ExpiresAt:    expiresAt.Unix(),
	})
}

// TakeNonce removes the nonce record and returns its purpose and expiry, or
// ErrNotFound. The delete is what spends the nonce: it happens atomically,
// so two concurrent takers cannot both succeed.
func (s *Store) TakeNonce(ctx context.Context, value string) (string, time.Time, error) {
	key := noncePrefix + value

	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, ok := s.records[key]
		if !ok {
			return "", time.Time{}, ErrNotFound
		}
		delete(s.records, key)
		return rec.NoncePurpose, time.Unix(rec.ExpiresAt, 0), nil
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"record_id": &types.AttributeValueMemberS{Value: key},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to take nonce: %w", err)
	}
	if len(out.Attributes) == 0 {
		return "", time.Time{}, ErrNotFound
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to unmarshal nonce record: %w", err)
	}
	return rec.NoncePurpose, time.Unix(rec.ExpiresAt, 0), nil
}

// SetNotice stores the message shown to the administrator on the next
// settings render.
func (s *Store) SetNotice(ctx context.Context, message string) error {
	return s.put(ctx, record{RecordID: noticeKey, Notice: message})
}

// TakeNotice returns the pending admin notice and clears it. An empty string
// means no notice is pending.
func (s *Store) TakeNotice(ctx context.Context) (string, error) {
	rec, err := s.get(ctx, noticeKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := s.delete(ctx, noticeKey); err != nil {
		return "", err
	}
	return rec.Notice, nil
}
