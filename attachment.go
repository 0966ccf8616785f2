package pictura

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Attachment represents one logical uploaded image and its known derivatives.
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	SourceKey   string    `json:"sourceKey"`
	ContentType string    `json:"contentType"`

	// Original pixel dimensions, populated after the first successful decode.
	OriginalWidth  *int `json:"originalWidth,omitempty"`
	OriginalHeight *int `json:"originalHeight,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	// Joined fields (populated by some queries)
	Variants []*Variant `json:"variants,omitempty"`
}

// Variant is one generated derivative of an attachment, keyed by style name.
// A variant is never mutated after creation; regeneration is delete + recreate.
type Variant struct {
	AttachmentID uuid.UUID `json:"attachmentId"`
	StyleName    string    `json:"styleName"`
	StorageKey   string    `json:"storageKey"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// AttachmentService defines operations for attachment and variant metadata.
type AttachmentService interface {
	// FindAttachmentByID retrieves an attachment with its variants.
	// Returns ENOTFOUND if the attachment does not exist.
	FindAttachmentByID(ctx context.Context, id uuid.UUID) (*Attachment, error)

	// FindAttachments retrieves attachments matching the filter criteria.
	// Returns the matching attachments and total count.
	FindAttachments(ctx context.Context, filter AttachmentFilter) ([]*Attachment, int, error)

	// CreateAttachment creates a new attachment record.
	// Note: Actual byte storage is handled by BlobStorage.
	CreateAttachment(ctx context.Context, att *Attachment) error

	// SetOriginalSize records the source image's pixel dimensions.
	// It only writes when the dimensions are not yet set.
	SetOriginalSize(ctx context.Context, id uuid.UUID, width, height int) error

	// DeleteAttachment deletes an attachment and all its variant records.
	// Note: Actual byte deletion is handled by BlobStorage.
	// Returns ENOTFOUND if the attachment does not exist.
	DeleteAttachment(ctx context.Context, id uuid.UUID) error

	// FindVariant retrieves a variant by attachment and style name.
	// Returns ENOTFOUND if no such variant has been generated.
	FindVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) (*Variant, error)

	// CreateVariant records a generated derivative. At most one variant may
	// exist per (attachment, style) pair; a second create for the same pair
	// returns ECONFLICT.
	CreateVariant(ctx context.Context, v *Variant) error

	// DeleteVariant removes a single variant record, for regeneration.
	// Deleting an absent variant is not an error.
	DeleteVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) error
}

// AttachmentFilter defines criteria for filtering attachments.
type AttachmentFilter struct {
	ID          *uuid.UUID
	ContentType *string

	// Pagination
	Offset int
	Limit  int
}
