package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/getup/bannersync/internal/auth"
	"github.com/getup/bannersync/internal/drive"
	"github.com/getup/bannersync/internal/store"
)

// DefaultRemotePath is the Drive subfolder mirrored by the scheduled pass.
const DefaultRemotePath = "Banners/EnCours"

// Runner wires one full sync pass: lock, authorization gate, Drive client
// construction, reconcile. Both the scheduled trigger and the manual admin
// trigger go through it.
type Runner struct {
	flow       *auth.Flow
	lifecycle  *auth.Lifecycle
	store      *store.Store
	lock       *Lock
	localDir   string
	remotePath string
}

// NewRunner creates a Runner mirroring remotePath into localDir.
func NewRunner(flow *auth.Flow, lifecycle *auth.Lifecycle, st *store.Store, lock *Lock, localDir, remotePath string) *Runner {
	return &Runner{
		flow:       flow,
		lifecycle:  lifecycle,
		store:      st,
		lock:       lock,
		localDir:   localDir,
		remotePath: remotePath,
	}
}

// Run executes one reconcile pass. A pass already in flight makes this a
// no-op (Result.Skipped). There is no cancellation once the pass starts
// beyond the context passed in; file operations run to completion.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	acquired, err := r.lock.TryAcquire(ctx)
	if err != nil {
		return Result{}, err
	}
	if !acquired {
		log.Printf("sync: pass already in flight, skipping")
		return Result{Skipped: true}, nil
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("sync: failed to release lock: %v", err)
		}
	}()

	if !r.lifecycle.IsAuthorized(ctx) {
		return Result{Unauthorized: true}, nil
	}

	creds, err := r.store.Credentials(ctx)
	if errors.Is(err, store.ErrNotFound) || (err == nil && creds.RootFolderID == "") {
		return Result{}, fmt.Errorf("root folder ID is not configured")
	}
	if err != nil {
		return Result{}, err
	}

	httpClient, err := r.flow.Client(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build authenticated client: %w", err)
	}
	driveClient, err := drive.NewClient(ctx, httpClient)
	if err != nil {
		return Result{}, err
	}

	engine := New(driveClient, driveClient, r.localDir)
	res, err := engine.Reconcile(ctx, r.remotePath, creds.RootFolderID)
	if err != nil {
		return res, err
	}

	log.Printf("sync: pass complete: %d downloaded, %d deleted, %d failed",
		len(res.Downloaded), len(res.Deleted), len(res.Failures))
	return res, nil
}
