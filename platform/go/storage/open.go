package storage

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Config selects and configures the asset backend.
type Config struct {
	Backend  string
	Bucket   string
	LocalDir string
}

// Open returns the configured Store and a close function releasing its client.
func Open(ctx context.Context, cfg Config) (Store, func() error, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		if strings.TrimSpace(cfg.LocalDir) == "" {
			return nil, nil, fmt.Errorf("storage local dir required when STORAGE_BACKEND=local")
		}
		return NewLocalStore(cfg.LocalDir), func() error { return nil }, nil
	case BackendGCS:
		if cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("storage bucket required when STORAGE_BACKEND=gcs")
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		return NewGCSStore(client, cfg.Bucket), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid STORAGE_BACKEND %q (use gcs or local)", cfg.Backend)
	}
}
