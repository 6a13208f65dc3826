package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdocs "google.golang.org/api/docs/v1"
)

// Credentials is an exchanged service-account identity.
type Credentials struct {
	Email       string
	TokenSource oauth2.TokenSource
}

// LoadCredentials parses a service-account JSON key and exchanges it for an
// access token scoped to Google Docs. The token is fetched eagerly so that a
// bad key fails here rather than on the first document call.
func LoadCredentials(ctx context.Context, data []byte) (*Credentials, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &CredentialError{Err: errors.New("service account key is empty")}
	}

	conf, err := google.JWTConfigFromJSON(data, gdocs.DocumentsScope)
	if err != nil {
		return nil, &CredentialError{Err: err}
	}

	ts := conf.TokenSource(ctx)
	tok, err := ts.Token()
	if err != nil {
		return nil, &CredentialError{Err: fmt.Errorf("token exchange for %s: %w", conf.Email, err)}
	}

	return &Credentials{
		Email:       conf.Email,
		TokenSource: oauth2.ReuseTokenSource(tok, ts),
	}, nil
}

// LoadCredentialsFile reads a service-account key file and exchanges it like
// LoadCredentials.
func LoadCredentialsFile(ctx context.Context, path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CredentialError{Err: fmt.Errorf("read key file: %w", err)}
	}
	return LoadCredentials(ctx, data)
}
