// Package taxonomy resolves product-category term IDs to their full
// slash-joined slug paths. The sync and banner code only see the
// PathResolver capability, not the backing catalog.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/getup/bannersync/internal/model"
)

// ErrTermNotFound is returned when a term ID has no stored term.
var ErrTermNotFound = errors.New("term not found")

// PathResolver resolves a category ID to its full slug path. An unknown ID
// resolves to "": absence, not an error.
type PathResolver interface {
	FullPath(ctx context.Context, categoryID int) (string, error)
}

// Store holds taxonomy terms in DynamoDB with an in-memory fallback when no
// client is configured.
type Store struct {
	client    *dynamodb.Client
	tableName string

	// In-memory fallback
	mu    sync.RWMutex
	terms map[int]model.Term
}

// NewStore creates a Store. client may be nil for the in-memory fallback.
func NewStore(client *dynamodb.Client, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		terms:     make(map[int]model.Term),
	}
}

// SaveTerm stores or replaces a term.
func (s *Store) SaveTerm(ctx context.Context, term model.Term) error {
	if s.client == nil {
		s.mu.Lock()
		s.terms[term.ID] = term
		s.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(term)
	if err != nil {
		return fmt.Errorf("failed to marshal term %d: %w", term.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save term %d: %w", term.ID, err)
	}
	return nil
}

// Term returns the stored term, or ErrTermNotFound.
func (s *Store) Term(ctx context.Context, id int) (model.Term, error) {
	if s.client == nil {
		s.mu.RLock()
		term, ok := s.terms[id]
		s.mu.RUnlock()
		if !ok {
			return model.Term{}, ErrTermNotFound
		}
		return term, nil
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberN{Value: strconv.Itoa(id)},
		},
	})
	if err != nil {
		return model.Term{}, fmt.Errorf("failed to get term %d: %w", id, err)
	}
	if out.Item == nil {
		return model.Term{}, ErrTermNotFound
	}

	var term model.Term
	if err := attributevalue.UnmarshalMap(out.Item, &term); err != nil {
		return model.Term{}, fmt.Errorf("failed to unmarshal term %d: %w", id, err)
	}
	return term, nil
}

// FullPath resolves a term and prepends each ancestor's slug joined by "/",
// terminating at a term with no parent. An unknown term at any level
// resolves to "".
func (s *Store) FullPath(ctx context.Context, categoryID int) (string, error) {
	path := ""
	id := categoryID
	// Depth cap guards against parent cycles in the stored terms.
	for depth := 0; depth < 32; depth++ {
		term, err := s.Term(ctx, id)
		if errors.Is(err, ErrTermNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}

		if path == "" {
			path = term.Slug
		} else {
			path = term.Slug + "/" + path
		}

		if term.ParentID == 0 {
			return path, nil
		}
		id = term.ParentID
	}
	return "", fmt.Errorf("term %d: parent chain too deep", categoryID)
}
