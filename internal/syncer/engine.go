// Package syncer reconciles the local banner directory against the remote
// Drive folder: locals absent remotely are deleted, remote images absent
// locally are downloaded.
package syncer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/getup/bannersync/internal/banner"
	"github.com/getup/bannersync/internal/drive"
)

// FileFailure records one file operation that failed during a pass.
type FileFailure struct {
	Name string
	Err  error
}

// Result summarizes one reconcile pass. Per-file failures do not abort the
// pass; they are collected here so the trigger can report them.
type Result struct {
	// Skipped is set when another pass already held the lock.
	Skipped bool
	// Unauthorized is set when no usable grant exists.
	Unauthorized bool
	// SubfolderMissing is set when the remote path did not resolve. The next
	// scheduled run retries.
	SubfolderMissing bool

	Deleted    []string
	Downloaded []string
	Failures   []FileFailure
}

// Engine performs the reconcile pass. The sync directory is exclusively
// owned by the engine; nothing else creates or deletes files there.
type Engine struct {
	lister     drive.Lister
	downloader drive.Downloader
	resolver   *drive.Resolver
	localDir   string
}

// New creates an Engine mirroring into localDir.
func New(lister drive.Lister, downloader drive.Downloader, localDir string) *Engine {
	return &Engine{
		lister:     lister,
		downloader: downloader,
		resolver:   drive.NewResolver(lister),
		localDir:   localDir,
	}
}

// Reconcile resolves remotePath under rootID and converges the local
// directory on the remote listing. The diff compares names only; a
// same-named-but-different remote file is invisible to it. Deletions run
// before downloads so names absent from the remote set are never
// redownloaded within the pass.
func (e *Engine) Reconcile(ctx context.Context, remotePath, rootID string) (Result, error) {
	var res Result

	folderID, err := e.resolver.Resolve(ctx, remotePath, rootID)
	if err != nil {
		return res, fmt.Errorf("failed to resolve %q: %w", remotePath, err)
	}
	if folderID == "" {
		res.SubfolderMissing = true
		return res, nil
	}

	entries, err := e.lister.ListChildren(ctx, folderID)
	if err != nil {
		return res, fmt.Errorf("failed to list remote folder: %w", err)
	}

	if err := os.MkdirAll(e.localDir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create sync directory: %w", err)
	}

	remoteNames := make(map[string]bool, len(entries))
	for _, entry := range entries {
		remoteNames[entry.Name] = true
	}

	// Delete locals absent from the remote listing.
	locals, err := os.ReadDir(e.localDir)
	if err != nil {
		return res, fmt.Errorf("failed to read sync directory: %w", err)
	}
	for _, f := range locals {
		if f.IsDir() || !banner.IsImageFile(f.Name()) {
			continue
		}
		if remoteNames[f.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(e.localDir, f.Name())); err != nil {
			log.Printf("sync: failed to delete %s: %v", f.Name(), err)
			res.Failures = append(res.Failures, FileFailure{Name: f.Name(), Err: err})
			continue
		}
		res.Deleted = append(res.Deleted, f.Name())
	}

	// Download every remote image, overwriting any existing copy.
	for _, entry := range entries {
		if !entry.IsImage() {
			continue
		}
		content, err := e.downloader.Download(ctx, entry.ID)
		if err != nil {
			log.Printf("sync: failed to download %s: %v", entry.Name, err)
			res.Failures = append(res.Failures, FileFailure{Name: entry.Name, Err: err})
			continue
		}
		if err := os.WriteFile(filepath.Join(e.localDir, entry.Name), content, 0o644); err != nil {
			log.Printf("sync: failed to write %s: %v", entry.Name, err)
			res.Failures = append(res.Failures, FileFailure{Name: entry.Name, Err: err})
			continue
		}
		res.Downloaded = append(res.Downloaded, entry.Name)
	}

	return res, nil
}
