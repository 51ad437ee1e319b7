package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getup/bannersync/internal/model"
)

func testStore() *Store {
	return New(nil, "test-records-table") // nil client, in-memory fallback
}

func TestStore_SaveAndGetCredentials(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	creds := model.Credentials{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RootFolderID: "folder-789",
	}
	if err := s.SaveCredentials(ctx, creds); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	saved, err := s.Credentials(ctx)
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if saved != creds {
		t.Errorf("Expected %+v, got %+v", creds, saved)
	}
}

func TestStore_Credentials_NotFound(t *testing.T) {
	s := testStore()

	_, err := s.Credentials(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_TokenOverwrite(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	first := model.TokenRecord{AccessToken: "first", Created: 100, ExpiresIn: 3600}
	second := model.TokenRecord{AccessToken: "second", Created: 200, ExpiresIn: 7200}

	if err := s.SaveToken(ctx, first); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}
	if err := s.SaveToken(ctx, second); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	saved, err := s.Token(ctx)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if saved != second {
		t.Errorf("Expected wholesale overwrite with %+v, got %+v", second, saved)
	}
}

func TestStore_DeleteToken(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	s.SaveToken(ctx, model.TokenRecord{AccessToken: "tok", Created: 1, ExpiresIn: 10})
	if err := s.DeleteToken(ctx); err != nil {
		t.Fatalf("DeleteToken failed: %v", err)
	}

	if _, err := s.Token(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent token is not an error.
	if err := s.DeleteToken(ctx); err != nil {
		t.Errorf("DeleteToken on empty store failed: %v", err)
	}
}

func TestStore_TakeNonceSpendsRecord(t *testing.T) {
	s := testStore()
	ctx := context.Background()
	expires := time.Now().Add(time.Minute)

	if err := s.SaveNonce(ctx, "nonce-1", "oauth_state", expires); err != nil {
		t.Fatalf("SaveNonce failed: %v", err)
	}

	purpose, expiresAt, err := s.TakeNonce(ctx, "nonce-1")
	if err != nil {
		t.Fatalf("TakeNonce failed: %v", err)
	}
	if purpose != "oauth_state" {
		t.Errorf("Expected purpose 'oauth_state', got %q", purpose)
	}
	if expiresAt.Unix() != expires.Unix() {
		t.Errorf("Expected expiry %d, got %d", expires.Unix(), expiresAt.Unix())
	}

	if _, _, err := s.TakeNonce(ctx, "nonce-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second take, got %v", err)
	}
}

func TestStore_NoticeIsOneShot(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	if err := s.SetNotice(ctx, "Token revoked."); err != nil {
		t.Fatalf("SetNotice failed: %v", err)
	}

	notice, err := s.TakeNotice(ctx)
	if err != nil {
		t.Fatalf("TakeNotice failed: %v", err)
	}
	if notice != "Token revoked." {
		t.Errorf("Expected notice 'Token revoked.', got %q", notice)
	}

	again, err := s.TakeNotice(ctx)
	if err != nil {
		t.Fatalf("TakeNotice failed: %v", err)
	}
	if again != "" {
		t.Errorf("Expected notice to be cleared, got %q", again)
	}
}
