package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/getup/bannersync/internal/store"
)

// PurposeOAuthGrant scopes nonces issued for the grant action.
const PurposeOAuthGrant = "oauth_grant"

// PurposeOAuthState scopes the state value round-tripped through the
// provider's consent screen.
const PurposeOAuthState = "oauth_state"

// DefaultNonceTTL matches the lifetime of the settings page the nonce is
// embedded in.
const DefaultNonceTTL = 15 * time.Minute

// NonceStore issues single-use, purpose-scoped anti-replay nonces backed by
// the shared record store. The grant and its callback can land on different
// serving instances, so nonces must outlive the process that issued them.
type NonceStore struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewNonceStore creates a NonceStore with the given nonce lifetime.
func NewNonceStore(st *store.Store, ttl time.Duration) *NonceStore {
	return &NonceStore{
		store: st,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue persists and returns a fresh nonce bound to the given purpose.
func (n *NonceStore) Issue(ctx context.Context, purpose string) (string, error) {
	value := uuid.NewString()
	expiresAt := n.now().Add(n.ttl)
	if err := n.store.SaveNonce(ctx, value, purpose, expiresAt); err != nil {
		return "", fmt.Errorf("failed to issue nonce: %w", err)
	}
	return value, nil
}

// Consume validates and spends a nonce. It reports false for unknown,
// expired, already-used, or wrong-purpose values. The take itself spends the
// nonce, so a mismatched attempt still burns it.
func (n *NonceStore) Consume(ctx context.Context, value, purpose string) bool {
	if value == "" {
		return false
	}

	storedPurpose, expiresAt, err := n.store.TakeNonce(ctx, value)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("failed to take nonce: %v", err)
		}
		return false
	}
	if storedPurpose != purpose {
		return false
	}
	return n.now().Before(expiresAt)
}
