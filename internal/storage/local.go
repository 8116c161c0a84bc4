package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"rental-escrow-backend/internal/logger"

	"github.com/google/uuid"
)

// LocalStorage implements BlobStore on the local filesystem. It is the
// default for development and single-node deployments; files are served back
// by the HTTP side server.
type LocalStorage struct {
	rootDir string
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(rootDir string) (*LocalStorage, error) {
	if rootDir == "" {
		rootDir = "./uploads"
	}
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{rootDir: rootDir}, nil
}

// Store writes content under directory with a random name that keeps the
// original extension.
func (s *LocalStorage) Store(ctx context.Context, directory, filename string, content []byte) (string, error) {
	key := newKey(directory, filename)
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	logger.Debug("Stored blob", "key", key, "size", len(content))
	return key, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Open reads a stored file for the download route.
func (s *LocalStorage) Open(key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// resolve maps a key to a path below rootDir and refuses traversal.
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.rootDir, filepath.FromSlash(clean)), nil
}

func newKey(directory, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(directory, uuid.New().String()+ext)
}
