package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/getup/bannersync/internal/auth"
	"github.com/getup/bannersync/internal/crypto"
	"github.com/getup/bannersync/internal/store"
	"github.com/getup/bannersync/internal/syncer"
)

func newSyncHandler(t *testing.T) (*SyncHandler, *syncer.Lock) {
	t.Helper()
	st := store.New(nil, "test-table")
	flow := auth.NewFlow(st, crypto.NewMockEncryptor(), "http://api.test/callback")
	lifecycle := auth.NewLifecycle(st, auth.GoogleEndpoints(), 5*time.Second)
	lock := syncer.NewLock(nil, "test-lock-table")
	runner := syncer.NewRunner(flow, lifecycle, st, lock, t.TempDir(), syncer.DefaultRemotePath)
	return NewSyncHandler(runner, testJWTSecret), lock
}

func TestSyncTrigger_RequiresAdmin(t *testing.T) {
	h, _ := newSyncHandler(t)

	resp, err := h.Trigger(context.Background(), bannersRequest(nil, ""))
	if err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestSyncTrigger_Unauthorized(t *testing.T) {
	h, _ := newSyncHandler(t)

	resp, err := h.Trigger(context.Background(), adminRequest(t, nil))
	if err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}
	// No stored token, so the pass refuses to touch local files.
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestSyncTrigger_SkippedWhileInFlight(t *testing.T) {
	h, lock := newSyncHandler(t)
	ctx := context.Background()

	acquired, err := lock.TryAcquire(ctx)
	if err != nil || !acquired {
		t.Fatalf("Failed to pre-acquire lock: acquired=%v err=%v", acquired, err)
	}

	resp, err := h.Trigger(ctx, adminRequest(t, nil))
	if err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var env struct {
		Success bool        `json:"success"`
		Data    syncSummary `json:"data"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &env); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !env.Data.Skipped {
		t.Errorf("Expected skipped pass, got %+v", env.Data)
	}
	if env.Data.Downloaded == nil || env.Data.Deleted == nil {
		t.Error("Summary slices should be present even for a skipped pass")
	}
}
