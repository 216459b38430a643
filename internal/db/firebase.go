package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

type FirebaseOpts struct {
	CredentialsFile string // service account JSON
	DatabaseURL     string // empty => "databaseURL" from the service account file
}

// NewFirebaseApp initialises the Admin SDK from a service account file. A
// missing file is an error, not a fallback to ambient credentials.
func NewFirebaseApp(ctx context.Context, opts FirebaseOpts) (*firebase.App, error) {
	raw, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("service account JSON not found at %s: %w", opts.CredentialsFile, err)
	}

	url := opts.DatabaseURL
	if url == "" {
		var sa struct {
			DatabaseURL string `json:"databaseURL"`
		}
		if err := json.Unmarshal(raw, &sa); err != nil {
			return nil, fmt.Errorf("parse service account %s: %w", opts.CredentialsFile, err)
		}
		url = sa.DatabaseURL
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: url}, option.WithCredentialsJSON(raw))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}
