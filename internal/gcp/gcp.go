// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gcp

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/tfcheck/tfcheck/internal/log"
)

// options holds optional overrides for Cloud Storage client construction.
type options struct {
	credentials string
	accessToken string
	endpoint    string
}

// Option customizes how the Cloud Storage client is built.
// Default behavior (no options) is Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS, gcloud auth, metadata server).
type Option func(*options)

// WithCredentials points at a service account credentials source: either a
// file path or the literal JSON document.
func WithCredentials(credentials string) Option {
	return func(o *options) { o.credentials = credentials }
}

// WithAccessToken authenticates with a pre-minted OAuth2 access token.
func WithAccessToken(token string) Option {
	return func(o *options) { o.accessToken = token }
}

// WithEndpoint overrides the storage API endpoint (emulators, test servers).
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// NewStorage builds a read-only Cloud Storage client. Explicit credentials
// win over an access token; with neither, the ADC chain applies.
func NewStorage(ctx context.Context, opts ...Option) (*storage.Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log.Debugf("opts applied: credentials=%t, accessToken=%t, endpoint=%s",
		o.credentials != "", o.accessToken != "", o.endpoint)

	var clientOpts []option.ClientOption

	switch {
	case o.credentials != "":
		contents, err := readCredentials(o.credentials)
		if err != nil {
			return nil, err
		}
		creds, err := googleoauth.CredentialsFromJSON(ctx, contents, storage.ScopeReadOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithCredentials(creds))
	case o.accessToken != "":
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.accessToken})
		clientOpts = append(clientOpts, option.WithTokenSource(tokenSource))
	}

	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		log.Debugf("storage client err: err=%v", err)
		return nil, err
	}
	log.Debugf("storage client created")

	return client, nil
}

// readCredentials loads the credentials JSON, treating the value as a file
// path when one exists and as the document itself otherwise.
func readCredentials(credentials string) ([]byte, error) {
	if _, err := os.Stat(credentials); err == nil {
		contents, err := os.ReadFile(credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return contents, nil
	}

	return []byte(credentials), nil
}
