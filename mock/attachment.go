package mock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomreid/pictura"
)

// Compile-time interface check
var _ pictura.AttachmentService = (*AttachmentService)(nil)

// AttachmentService is a mock implementation of pictura.AttachmentService.
type AttachmentService struct {
	FindAttachmentByIDFn func(ctx context.Context, id uuid.UUID) (*pictura.Attachment, error)
	FindAttachmentsFn    func(ctx context.Context, filter pictura.AttachmentFilter) ([]*pictura.Attachment, int, error)
	CreateAttachmentFn   func(ctx context.Context, att *pictura.Attachment) error
	SetOriginalSizeFn    func(ctx context.Context, id uuid.UUID, width, height int) error
	DeleteAttachmentFn   func(ctx context.Context, id uuid.UUID) error
	FindVariantFn        func(ctx context.Context, attachmentID uuid.UUID, styleName string) (*pictura.Variant, error)
	CreateVariantFn      func(ctx context.Context, v *pictura.Variant) error
	DeleteVariantFn      func(ctx context.Context, attachmentID uuid.UUID, styleName string) error
}

func (s *AttachmentService) FindAttachmentByID(ctx context.Context, id uuid.UUID) (*pictura.Attachment, error) {
	if s.FindAttachmentByIDFn != nil {
		return s.FindAttachmentByIDFn(ctx, id)
	}
	return nil, pictura.NotFound("Attachment not found")
}

func (s *AttachmentService) FindAttachments(ctx context.Context, filter pictura.AttachmentFilter) ([]*pictura.Attachment, int, error) {
	if s.FindAttachmentsFn != nil {
		return s.FindAttachmentsFn(ctx, filter)
	}
	return []*pictura.Attachment{}, 0, nil
}

func (s *AttachmentService) CreateAttachment(ctx context.Context, att *pictura.Attachment) error {
	if s.CreateAttachmentFn != nil {
		return s.CreateAttachmentFn(ctx, att)
	}
	if att.ID == uuid.Nil {
		att.ID = uuid.New()
	}
	att.CreatedAt = time.Now()
	return nil
}

func (s *AttachmentService) SetOriginalSize(ctx context.Context, id uuid.UUID, width, height int) error {
	if s.SetOriginalSizeFn != nil {
		return s.SetOriginalSizeFn(ctx, id, width, height)
	}
	return nil
}

func (s *AttachmentService) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	if s.DeleteAttachmentFn != nil {
		return s.DeleteAttachmentFn(ctx, id)
	}
	return nil
}

func (s *AttachmentService) FindVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) (*pictura.Variant, error) {
	if s.FindVariantFn != nil {
		return s.FindVariantFn(ctx, attachmentID, styleName)
	}
	return nil, pictura.NotFound("Variant not found")
}

func (s *AttachmentService) CreateVariant(ctx context.Context, v *pictura.Variant) error {
	if s.CreateVariantFn != nil {
		return s.CreateVariantFn(ctx, v)
	}
	v.GeneratedAt = time.Now()
	return nil
}

func (s *AttachmentService) DeleteVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) error {
	if s.DeleteVariantFn != nil {
		return s.DeleteVariantFn(ctx, attachmentID, styleName)
	}
	return nil
}
