package storage

import (
	"context"
	"fmt"
)

// Config holds storage configuration
type Config struct {
	Type     string // "local" or "s3"
	LocalDir string // Directory for local storage
	S3       S3Config
}

// New builds the blob store selected by cfg.Type.
func New(ctx context.Context, cfg Config) (BlobStore, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}
