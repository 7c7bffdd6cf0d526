package storage

import (
	"context"
	"fmt"
)

// Config holds storage configuration
type Config struct {
	Type            string // "mock" or "firebase"
	MockDir         string // Directory for mock storage
	BaseURL         string // Server base URL for generating mock URLs
	ProjectID       string
	Bucket          string
	CredentialsFile string
}

// New returns the backend selected by cfg.Type.
func New(ctx context.Context, cfg Config) (StorageInterface, error) {
	switch cfg.Type {
	case "", "mock":
		return NewMockStorageService(cfg.BaseURL, cfg.MockDir)
	case "firebase":
		return NewFirebaseStorageService(ctx, cfg.ProjectID, cfg.Bucket, cfg.CredentialsFile)
	}
	return nil, fmt.Errorf("storage type %q not supported", cfg.Type)
}
