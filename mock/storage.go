package mock

import (
	"context"

	"github.com/tomreid/pictura"
)

// Compile-time interface check
var _ pictura.BlobStorage = (*BlobStorage)(nil)

// BlobStorage is a mock implementation of pictura.BlobStorage.
type BlobStorage struct {
	StoreFn  func(ctx context.Context, key string, data []byte, contentType string) error
	FetchFn  func(ctx context.Context, key string) ([]byte, error)
	ExistsFn func(ctx context.Context, key string) (bool, error)
	DeleteFn func(ctx context.Context, key string) error
	URLFn    func(key string) string
}

func (s *BlobStorage) Store(ctx context.Context, key string, data []byte, contentType string) error {
	if s.StoreFn != nil {
		return s.StoreFn(ctx, key, data, contentType)
	}
	return nil
}

func (s *BlobStorage) Fetch(ctx context.Context, key string) ([]byte, error) {
	if s.FetchFn != nil {
		return s.FetchFn(ctx, key)
	}
	return nil, pictura.NotFound("Blob %q not found", key)
}

func (s *BlobStorage) Exists(ctx context.Context, key string) (bool, error) {
	if s.ExistsFn != nil {
		return s.ExistsFn(ctx, key)
	}
	return false, nil
}

func (s *BlobStorage) Delete(ctx context.Context, key string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, key)
	}
	return nil
}

func (s *BlobStorage) URL(key string) string {
	if s.URLFn != nil {
		return s.URLFn(key)
	}
	return "https://mock-storage.example.com/" + key
}
