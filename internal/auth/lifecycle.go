// Package auth owns the OAuth2 grant for the connected Drive account: the
// consent/exchange flow, the stored token's lifecycle, and the anti-replay
// nonces guarding the grant action.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/getup/bannersync/internal/model"
	"github.com/getup/bannersync/internal/store"
)

// Endpoints are the token introspection and revocation URLs. They are
// configurable so tests can point them at a local server.
type Endpoints struct {
	TokenInfoURL string
	RevokeURL    string
}

// GoogleEndpoints returns the production Google OAuth2 endpoints.
func GoogleEndpoints() Endpoints {
	return Endpoints{
		TokenInfoURL: "https://oauth2.googleapis.com/tokeninfo",
		RevokeURL:    "https://oauth2.googleapis.com/revoke",
	}
}

// RevokeOutcome classifies the result of a revoke request for the admin
// notice. None of these are transport errors; those collapse into
// RevokeFailed.
type RevokeOutcome int

const (
	// RevokeDone means the token was revoked remotely and deleted locally.
	RevokeDone RevokeOutcome = iota
	// RevokeNothing means there was no stored token to revoke.
	RevokeNothing
	// RevokeFailed means the provider call failed, or accepted the request
	// without actually invalidating the token.
	RevokeFailed
)

// Lifecycle implements the token validity and revocation checks. Local
// expiry math is necessary but not sufficient: the provider is the
// authoritative source, since a token can be revoked out-of-band.
type Lifecycle struct {
	store     *store.Store
	rest      *resty.Client
	endpoints Endpoints
	now       func() time.Time
}

// NewLifecycle creates a Lifecycle. timeout bounds every provider call;
// timeouts are treated as transport faults, never retried.
func NewLifecycle(st *store.Store, endpoints Endpoints, timeout time.Duration) *Lifecycle {
	return &Lifecycle{
		store:     st,
		rest:      resty.New().SetTimeout(timeout),
		endpoints: endpoints,
		now:       time.Now,
	}
}

// IsExpired reports whether the record is locally expired. A record without
// an access token fails closed to expired.
func (l *Lifecycle) IsExpired(rec model.TokenRecord) bool {
	return rec.ExpiredAt(l.now())
}

// tokenInfo is the introspection response body. Google returns expires_in as
// a JSON string on this endpoint, so json.Number accepts both forms.
type tokenInfo struct {
	ExpiresIn json.Number `json:"expires_in"`
}

// ValidateRemote asks the provider whether the access token is still live.
// Only a JSON body with expires_in > 0 counts as valid; transport faults and
// malformed bodies report invalid, not unknown.
func (l *Lifecycle) ValidateRemote(ctx context.Context, accessToken string) bool {
	resp, err := l.rest.R().
		SetContext(ctx).
		SetQueryParam("access_token", accessToken).
		Get(l.endpoints.TokenInfoURL)
	if err != nil {
		log.Printf("token introspection failed: %v", err)
		return false
	}

	var info tokenInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return false
	}
	expiresIn, err := info.ExpiresIn.Int64()
	if err != nil {
		return false
	}
	return expiresIn > 0
}

// IsAuthorized reports whether a usable grant exists: a token record is
// stored, it is not locally expired, and the provider confirms it. The
// remote call is skipped when the local check already fails.
func (l *Lifecycle) IsAuthorized(ctx context.Context) bool {
	rec, err := l.store.Token(ctx)
	if err != nil {
		return false
	}
	if l.IsExpired(rec) {
		return false
	}
	return l.ValidateRemote(ctx, rec.AccessToken)
}

// Revoke invalidates the stored token at the provider and deletes it
// locally. The record is only deleted once a post-revoke introspection
// confirms the token is dead; a provider that accepts the request but keeps
// the token alive reports RevokeFailed.
func (l *Lifecycle) Revoke(ctx context.Context) (RevokeOutcome, error) {
	rec, err := l.store.Token(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return RevokeNothing, nil
	}
	if err != nil {
		return RevokeFailed, err
	}

	resp, err := l.rest.R().
		SetContext(ctx).
		SetQueryParam("token", rec.AccessToken).
		Get(l.endpoints.RevokeURL)
	if err != nil {
		log.Printf("token revocation failed: %v", err)
		return RevokeFailed, nil
	}
	if resp.IsError() {
		log.Printf("token revocation rejected: status %d", resp.StatusCode())
		return RevokeFailed, nil
	}

	if l.ValidateRemote(ctx, rec.AccessToken) {
		// Provider said OK but the token still introspects as live.
		return RevokeFailed, nil
	}

	if err := l.store.DeleteToken(ctx); err != nil {
		return RevokeFailed, err
	}
	return RevokeDone, nil
}
