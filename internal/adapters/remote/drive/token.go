package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope is the read-only Drive scope the sync needs.
const Scope = "https://www.googleapis.com/auth/drive.readonly"

// ErrNoToken is returned when the token file holds no usable credential.
var ErrNoToken = errors.New("drive: no usable token")

// tokenFile accepts both the authorized-user layout written by Google's
// Python client and the plain oauth2.Token layout.
type tokenFile struct {
	Token        string    `json:"token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Expiry       time.Time `json:"expiry"`
}

// TokenSourceFromFile builds a refreshing token source from a token JSON file.
func TokenSourceFromFile(ctx context.Context, path string) (oauth2.TokenSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("drive: read token: %w", err)
	}
	return TokenSourceFromJSON(ctx, b)
}

// TokenSourceFromJSON builds a token source from token JSON bytes.
func TokenSourceFromJSON(ctx context.Context, b []byte) (oauth2.TokenSource, error) {
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("drive: parse token: %w", err)
	}
	access := tf.AccessToken
	if access == "" {
		access = tf.Token
	}
	if access == "" && tf.RefreshToken == "" {
		return nil, ErrNoToken
	}

	tok := &oauth2.Token{AccessToken: access, RefreshToken: tf.RefreshToken, Expiry: tf.Expiry}
	if tf.RefreshToken == "" || tf.ClientID == "" {
		return oauth2.StaticTokenSource(tok), nil
	}

	endpoint := google.Endpoint
	if tf.TokenURI != "" {
		endpoint.TokenURL = tf.TokenURI
	}
	cfg := &oauth2.Config{
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{Scope},
	}
	return cfg.TokenSource(ctx, tok), nil
}
