package pictura

import (
	"context"

	"github.com/google/uuid"
)

// BlobStorage defines operations for storing source and derivative bytes.
// Implementations must be safe for concurrent use with distinct keys; the
// processor serializes same-key writes.
type BlobStorage interface {
	// Store writes bytes under a key.
	// Returns ESTORAGEWRITE on failure.
	Store(ctx context.Context, key string, data []byte, contentType string) error

	// Fetch reads the bytes stored under a key.
	// Returns ENOTFOUND if the key does not exist, ESTORAGEREAD on I/O failure.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether a key is present. A missing key is not an
	// error; only I/O failures are.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for a key. Pure, no I/O.
	URL(key string) string
}

// StorageConfig holds configuration for blob storage.
type StorageConfig struct {
	// Provider is the storage provider ("local" or "s3").
	Provider string

	// Local storage configuration
	LocalPath string
	LocalURL  string

	// S3 storage configuration
	S3Bucket  string
	S3Region  string
	S3BaseURL string
}

// Storage key convention: `{attachmentID}/original` for the source bytes,
// `{attachmentID}/{style}` for derivatives. Keys are opaque to backends.

// SourceKey returns the storage key for an attachment's original bytes.
func SourceKey(attachmentID uuid.UUID) string {
	return attachmentID.String() + "/original"
}

// VariantKey returns the storage key for one of an attachment's derivatives.
func VariantKey(attachmentID uuid.UUID, styleName string) string {
	return attachmentID.String() + "/" + styleName
}

// ValidateMediaType checks a declared MIME type against the configured
// allow-list. Exact, case-sensitive match on canonical MIME strings. Pure,
// no I/O; called before any bytes are persisted or decoded.
func ValidateMediaType(contentType string, allowed []string) error {
	for _, t := range allowed {
		if t == contentType {
			return nil
		}
	}
	return UnsupportedMedia("Media type %q is not allowed", contentType)
}
