package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/getup/bannersync/internal/syncer"
)

// SyncHandler exposes the manual sync trigger to administrators.
type SyncHandler struct {
	runner    *syncer.Runner
	jwtSecret string
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(runner *syncer.Runner, jwtSecret string) *SyncHandler {
	return &SyncHandler{runner: runner, jwtSecret: jwtSecret}
}

// syncSummary is the trigger response payload.
type syncSummary struct {
	Skipped          bool     `json:"skipped,omitempty"`
	Unauthorized     bool     `json:"unauthorized,omitempty"`
	SubfolderMissing bool     `json:"subfolder_missing,omitempty"`
	Downloaded       []string `json:"downloaded"`
	Deleted          []string `json:"deleted"`
	Failed           []string `json:"failed,omitempty"`
}

// Trigger runs one reconcile pass and reports its summary. A pass that
// completed with per-file failures still reports success; the failures are
// listed in the summary.
func (h *SyncHandler) Trigger(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireAdmin(req, h.jwtSecret); err != nil {
		return jsonFailure(http.StatusUnauthorized, "Unauthorized"), nil
	}

	res, err := h.runner.Run(ctx)
	if err != nil {
		log.Printf("manual sync failed: %v", err)
		return jsonFailure(http.StatusInternalServerError, "Sync failed."), nil
	}
	if res.Unauthorized {
		return jsonFailure(http.StatusConflict, "Google Drive is not authorized."), nil
	}
	if res.SubfolderMissing {
		return jsonFailure(http.StatusNotFound, "Subfolder not found."), nil
	}

	summary := syncSummary{
		Skipped:    res.Skipped,
		Downloaded: res.Downloaded,
		Deleted:    res.Deleted,
	}
	if summary.Downloaded == nil {
		summary.Downloaded = []string{}
	}
	if summary.Deleted == nil {
		summary.Deleted = []string{}
	}
	for _, f := range res.Failures {
		summary.Failed = append(summary.Failed, f.Name)
	}
	return jsonSuccess(summary), nil
}
