package model

import "time"

// Credentials are the Google API settings entered by the site administrator.
type Credentials struct {
	ClientID     string `json:"client_id" dynamodbav:"client_id"`
	ClientSecret string `json:"client_secret" dynamodbav:"client_secret"`
	RootFolderID string `json:"root_folder_id" dynamodbav:"root_folder_id"`
}

// Complete reports whether the credentials can be used for an OAuth flow.
// RootFolderID is only needed for sync, not for the grant itself.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// TokenRecord is the single persisted OAuth2 token. It is overwritten
// wholesale on every re-authorization and removed by an explicit revoke.
// The refresh token is stored encrypted (see internal/crypto).
type TokenRecord struct {
	AccessToken           string `json:"access_token" dynamodbav:"access_token"`
	EncryptedRefreshToken string `json:"encrypted_refresh_token,omitempty" dynamodbav:"encrypted_refresh_token"`
	Created               int64  `json:"created" dynamodbav:"created"`
	ExpiresIn             int64  `json:"expires_in" dynamodbav:"expires_in"`
}

// ExpirationTime returns the unix timestamp at which the token is locally
// considered expired.
func (t TokenRecord) ExpirationTime() int64 {
	return t.Created + t.ExpiresIn
}

// ExpiredAt reports whether the token is locally expired at the given time.
// A record without an access token is always expired.
func (t TokenRecord) ExpiredAt(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	return now.Unix() >= t.ExpirationTime()
}

// Term is one product-category taxonomy term. ParentID is zero for roots.
type Term struct {
	ID       int    `json:"id" dynamodbav:"id"`
	Slug     string `json:"slug" dynamodbav:"slug"`
	ParentID int    `json:"parent_id,omitempty" dynamodbav:"parent_id"`
}

// Banner is one entry returned to the storefront carousel.
type Banner struct {
	URL          string `json:"url"`
	CategoryPath string `json:"category_path"`
}
