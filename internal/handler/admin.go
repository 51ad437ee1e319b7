// Package handler contains the admin-ajax style request handlers: the
// administrative OAuth actions, the public banner listing, and the manual
// sync trigger.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/getup/bannersync/internal/auth"
	"github.com/getup/bannersync/internal/store"
)

// AdminHandler drives the authorization actions behind the settings page.
type AdminHandler struct {
	flow      *auth.Flow
	lifecycle *auth.Lifecycle
	store     *store.Store
	nonces    *auth.NonceStore
	jwtSecret string
	// settingsURL is where every completed admin flow redirects back to.
	settingsURL string
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(flow *auth.Flow, lifecycle *auth.Lifecycle, st *store.Store, nonces *auth.NonceStore, jwtSecret, settingsURL string) *AdminHandler {
	return &AdminHandler{
		flow:        flow,
		lifecycle:   lifecycle,
		store:       st,
		nonces:      nonces,
		jwtSecret:   jwtSecret,
		settingsURL: settingsURL,
	}
}

// Grant starts the consent flow: capability and nonce are checked first,
// then the administrator is redirected to the provider's consent screen.
// Consent is forced when no refresh token is stored yet, so the provider
// issues one.
func (h *AdminHandler) Grant(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireAdmin(req, h.jwtSecret); err != nil {
		return jsonFailure(http.StatusUnauthorized, "Unauthorized"), nil
	}
	if !h.nonces.Consume(ctx, req.QueryStringParameters["nonce"], auth.PurposeOAuthGrant) {
		return jsonFailure(http.StatusForbidden, "Invalid or expired nonce"), nil
	}

	state, err := h.nonces.Issue(ctx, auth.PurposeOAuthState)
	if err != nil {
		log.Printf("grant: %v", err)
		return jsonFailure(http.StatusInternalServerError, "Failed to start authorization."), nil
	}
	forceConsent := !h.flow.HasRefreshToken(ctx)

	url, err := h.flow.AuthCodeURL(ctx, state, forceConsent)
	if errors.Is(err, auth.ErrMissingCredentials) {
		return jsonFailure(http.StatusBadRequest, "Client ID or Client Secret is missing."), nil
	}
	if err != nil {
		log.Printf("grant: failed to build consent URL: %v", err)
		return jsonFailure(http.StatusInternalServerError, "Failed to build authorization URL."), nil
	}
	return redirect(url), nil
}

// Callback completes the grant. Every outcome (success, provider error,
// transport fault, missing code) becomes a notice on the settings page;
// nothing is left unacknowledged and the response is always a redirect back
// to the settings view.
func (h *AdminHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireAdmin(req, h.jwtSecret); err != nil {
		return jsonFailure(http.StatusUnauthorized, "Unauthorized"), nil
	}

	code := req.QueryStringParameters["code"]
	if code == "" {
		h.notice(ctx, "No authorization code received.")
		return redirect(h.settingsURL), nil
	}

	if state := req.QueryStringParameters["state"]; !h.nonces.Consume(ctx, state, auth.PurposeOAuthState) {
		h.notice(ctx, "Invalid state parameter.")
		return redirect(h.settingsURL), nil
	}

	if err := h.flow.Exchange(ctx, code); err != nil {
		log.Printf("callback: %v", err)
		if errors.Is(err, auth.ErrMissingCredentials) {
			h.notice(ctx, "Client ID or Client Secret is missing.")
		} else {
			// Provider-reported errors and transport faults read the same to
			// the administrator.
			h.notice(ctx, fmt.Sprintf("Error during token exchange: %v", err))
		}
		return redirect(h.settingsURL), nil
	}

	h.notice(ctx, "Google Drive authorization completed.")
	return redirect(h.settingsURL), nil
}

// Revoke handles the revoke_token form submission.
func (h *AdminHandler) Revoke(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireAdmin(req, h.jwtSecret); err != nil {
		return jsonFailure(http.StatusUnauthorized, "Unauthorized"), nil
	}

	outcome, err := h.lifecycle.Revoke(ctx)
	if err != nil {
		log.Printf("revoke: %v", err)
	}
	switch outcome {
	case auth.RevokeNothing:
		h.notice(ctx, "No token to revoke.")
	case auth.RevokeFailed:
		h.notice(ctx, "Token revocation failed.")
	default:
		h.notice(ctx, "Token revoked.")
	}
	return redirect(h.settingsURL), nil
}

// settingsView is the payload rendered by the settings page.
type settingsView struct {
	Authorized bool   `json:"authorized"`
	Notice     string `json:"notice,omitempty"`
	GrantNonce string `json:"grant_nonce"`
}

// Settings returns the authorization status, the pending one-shot notice,
// and a fresh nonce for the grant button.
func (h *AdminHandler) Settings(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireAdmin(req, h.jwtSecret); err != nil {
		return jsonFailure(http.StatusUnauthorized, "Unauthorized"), nil
	}

	notice, err := h.store.TakeNotice(ctx)
	if err != nil {
		log.Printf("settings: failed to read notice: %v", err)
	}
	nonce, err := h.nonces.Issue(ctx, auth.PurposeOAuthGrant)
	if err != nil {
		log.Printf("settings: %v", err)
		return jsonFailure(http.StatusInternalServerError, "Failed to load settings."), nil
	}
	return jsonSuccess(settingsView{
		Authorized: h.lifecycle.IsAuthorized(ctx),
		Notice:     notice,
		GrantNonce: nonce,
	}), nil
}

// SaveSettings stores the administrator-entered API credentials. Values are
// trimmed; fields omitted from the request keep their stored value, matching
// how the original settings form behaved.
func (h *AdminHandler) SaveSettings(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireAdmin(req, h.jwtSecret); err != nil {
		return jsonFailure(http.StatusUnauthorized, "Unauthorized"), nil
	}

	var input struct {
		ClientID     *string `json:"client_id"`
		ClientSecret *string `json:"client_secret"`
		RootFolderID *string `json:"root_folder_id"`
	}
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return jsonFailure(http.StatusBadRequest, "Invalid request body"), nil
	}

	creds, err := h.store.Credentials(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("save settings: %v", err)
		return jsonFailure(http.StatusInternalServerError, "Failed to load settings."), nil
	}
	if input.ClientID != nil {
		creds.ClientID = strings.TrimSpace(*input.ClientID)
	}
	if input.ClientSecret != nil {
		creds.ClientSecret = strings.TrimSpace(*input.ClientSecret)
	}
	if input.RootFolderID != nil {
		creds.RootFolderID = strings.TrimSpace(*input.RootFolderID)
	}

	if err := h.store.SaveCredentials(ctx, creds); err != nil {
		log.Printf("save settings: %v", err)
		return jsonFailure(http.StatusInternalServerError, "Failed to save settings."), nil
	}
	return jsonSuccess(map[string]string{"root_folder_id": creds.RootFolderID}), nil
}

func (h *AdminHandler) notice(ctx context.Context, message string) {
	if err := h.store.SetNotice(ctx, message); err != nil {
		log.Printf("failed to store admin notice: %v", err)
	}
}
