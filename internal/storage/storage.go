// Package storage provides the concrete blob storage backends.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tomreid/pictura"
)

// NewBlobStorage creates a blob storage instance based on the provider
// configuration.
func NewBlobStorage(ctx context.Context, logger *slog.Logger, cfg pictura.StorageConfig) (pictura.BlobStorage, error) {
	switch cfg.Provider {
	case "s3":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.S3Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		s3Client := s3.NewFromConfig(awsCfg)

		logger.Info("initialized S3 storage",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)

		return NewS3Storage(s3Client, cfg.S3Bucket, cfg.S3BaseURL), nil

	default: // "local"
		store, err := NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}

		logger.Info("initialized local storage",
			slog.String("path", cfg.LocalPath),
			slog.String("url", cfg.LocalURL),
		)

		return store, nil
	}
}

// Compile-time check that LocalStorage implements pictura.BlobStorage.
var _ pictura.BlobStorage = (*LocalStorage)(nil)

// LocalStorage implements BlobStorage on the local filesystem. Keys map to
// paths under the base directory; writes go through a temp file and rename
// so a key is never visible with partial bytes.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new local storage instance.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  baseURL,
	}, nil
}

// path maps a storage key to a filesystem path.
func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// Store writes bytes under a key.
func (s *LocalStorage) Store(ctx context.Context, key string, data []byte, contentType string) error {
	dest := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to create blob directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".blob-*")
	if err != nil {
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to create blob file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to write blob", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to write blob", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to store blob", err)
	}
	return nil
}

// Fetch reads the bytes stored under a key.
func (s *LocalStorage) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pictura.NotFound("Blob %q not found", key)
		}
		return nil, pictura.WrapError(pictura.ESTORAGEREAD, "Failed to read blob", err)
	}
	return data, nil
}

// Exists reports whether a key is present.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, pictura.WrapError(pictura.ESTORAGEREAD, "Failed to stat blob", err)
	}
	return true, nil
}

// Delete removes a key. Missing keys are ignored.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to delete blob", err)
	}
	return nil
}

// URL returns the public URL for a key.
func (s *LocalStorage) URL(key string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}
