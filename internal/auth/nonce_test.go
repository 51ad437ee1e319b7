package auth

import (
	"context"
	"testing"
	"time"

	"github.com/getup/bannersync/internal/store"
)

func testNonceStore(t *testing.T) *NonceStore {
	t.Helper()
	return NewNonceStore(store.New(nil, "t"), time.Minute)
}

func TestNonceStore_SingleUse(t *testing.T) {
	n := testNonceStore(t)
	ctx := context.Background()

	value, err := n.Issue(ctx, PurposeOAuthGrant)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !n.Consume(ctx, value, PurposeOAuthGrant) {
		t.Fatal("Expected fresh nonce to be valid")
	}
	if n.Consume(ctx, value, PurposeOAuthGrant) {
		t.Error("Expected nonce to be single-use")
	}
}

func TestNonceStore_PurposeMismatch(t *testing.T) {
	n := testNonceStore(t)
	ctx := context.Background()

	value, err := n.Issue(ctx, PurposeOAuthGrant)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if n.Consume(ctx, value, PurposeOAuthState) {
		t.Error("Expected nonce bound to another purpose to be rejected")
	}
	// A mismatched attempt still spends the nonce.
	if n.Consume(ctx, value, PurposeOAuthGrant) {
		t.Error("Expected nonce to be spent by the mismatched attempt")
	}
}

func TestNonceStore_Expiry(t *testing.T) {
	n := testNonceStore(t)
	ctx := context.Background()

	value, err := n.Issue(ctx, PurposeOAuthGrant)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	n.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if n.Consume(ctx, value, PurposeOAuthGrant) {
		t.Error("Expected expired nonce to be rejected")
	}
}

func TestNonceStore_Unknown(t *testing.T) {
	n := testNonceStore(t)
	if n.Consume(context.Background(), "never-issued", PurposeOAuthGrant) {
		t.Error("Expected unknown nonce to be rejected")
	}
}

func TestNonceStore_EmptyValue(t *testing.T) {
	n := testNonceStore(t)
	if n.Consume(context.Background(), "", PurposeOAuthGrant) {
		t.Error("Expected empty value to be rejected")
	}
}

func TestNonceStore_SurvivesAcrossInstances(t *testing.T) {
	// The grant redirect and its callback can land on different serving
	// instances; a state nonce issued by one must consume on another as long
	// as they share the record store.
	st := store.New(nil, "t")
	ctx := context.Background()

	issuer := NewNonceStore(st, time.Minute)
	value, err := issuer.Issue(ctx, PurposeOAuthState)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	consumer := NewNonceStore(st, time.Minute)
	if !consumer.Consume(ctx, value, PurposeOAuthState) {
		t.Error("Expected a nonce issued by one instance to consume on another")
	}
	if issuer.Consume(ctx, value, PurposeOAuthState) {
		t.Error("Expected the nonce to be spent for every instance")
	}
}
