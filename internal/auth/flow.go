package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/getup/bannersync/internal/crypto"
	"github.com/getup/bannersync/internal/model"
	"github.com/getup/bannersync/internal/store"
)

// DriveReadonlyScope is the only scope the grant ever asks for.
const DriveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"

// ErrMissingCredentials is returned when the administrator has not entered a
// client ID and secret yet. Detected before any remote call.
var ErrMissingCredentials = errors.New("client ID or client secret is missing")

// Flow drives the three-step authorization-code exchange and persists the
// result. The oauth2.Config is rebuilt per call from the stored credentials,
// since the administrator can change them at any time.
type Flow struct {
	store       *store.Store
	encryptor   crypto.Encryptor
	redirectURL string
	endpoint    oauth2.Endpoint
	now         func() time.Time
}

// NewFlow creates a Flow using the Google authorization endpoint.
func NewFlow(st *store.Store, enc crypto.Encryptor, redirectURL string) *Flow {
	return &Flow{
		store:       st,
		encryptor:   enc,
		redirectURL: redirectURL,
		endpoint:    google.Endpoint,
		now:         time.Now,
	}
}

func (f *Flow) config(ctx context.Context) (*oauth2.Config, error) {
	creds, err := f.store.Credentials(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMissingCredentials
	}
	if err != nil {
		return nil, err
	}
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  f.redirectURL,
		Scopes:       []string{DriveReadonlyScope},
		Endpoint:     f.endpoint,
	}, nil
}

// AuthCodeURL builds the consent URL the administrator is redirected to.
// forceConsent re-prompts the user so the provider issues a fresh refresh
// token; needed when no refresh token is stored yet.
func (f *Flow) AuthCodeURL(ctx context.Context, state string, forceConsent bool) (string, error) {
	cfg, err := f.config(ctx)
	if err != nil {
		return "", err
	}
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if forceConsent {
		opts = append(opts, oauth2.ApprovalForce)
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// HasRefreshToken reports whether the stored token carries a refresh token.
func (f *Flow) HasRefreshToken(ctx context.Context) bool {
	rec, err := f.store.Token(ctx)
	return err == nil && rec.EncryptedRefreshToken != ""
}

// Exchange trades the authorization code for a token and persists it,
// overwriting any previous record. The refresh token is encrypted before it
// is stored; when the provider returns none (repeat consent), the previous
// encrypted refresh token is carried over.
func (f *Flow) Exchange(ctx context.Context, code string) error {
	cfg, err := f.config(ctx)
	if err != nil {
		return err
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	now := f.now()
	rec := model.TokenRecord{
		AccessToken: token.AccessToken,
		Created:     now.Unix(),
		ExpiresIn:   int64(token.Expiry.Sub(now).Seconds()),
	}
	if rec.ExpiresIn < 0 {
		rec.ExpiresIn = 0
	}

	if token.RefreshToken != "" {
		encrypted, err := f.encryptor.Encrypt(ctx, token.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		rec.EncryptedRefreshToken = encrypted
	} else if prev, err := f.store.Token(ctx); err == nil {
		rec.EncryptedRefreshToken = prev.EncryptedRefreshToken
	}

	if err := f.store.SaveToken(ctx, rec); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Client returns an authenticated http.Client for Drive calls, refreshing
// through the stored refresh token when the access token has lapsed.
func (f *Flow) Client(ctx context.Context) (*http.Client, error) {
	cfg, err := f.config(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := f.store.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("no stored token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken: rec.AccessToken,
		Expiry:      time.Unix(rec.ExpirationTime(), 0),
	}
	if rec.EncryptedRefreshToken != "" {
		refresh, err := f.encryptor.Decrypt(ctx, rec.EncryptedRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		token.RefreshToken = refresh
	}

	return oauth2.NewClient(ctx, cfg.TokenSource(ctx, token)), nil
}
