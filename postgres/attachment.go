package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tomreid/pictura"
)

// Compile-time check that AttachmentService implements pictura.AttachmentService.
var _ pictura.AttachmentService = (*AttachmentService)(nil)

// AttachmentService implements pictura.AttachmentService using PostgreSQL.
type AttachmentService struct {
	db *DB
}

func (s *AttachmentService) FindAttachmentByID(ctx context.Context, id uuid.UUID) (*pictura.Attachment, error) {
	const query = `
		SELECT id, source_key, content_type, original_width, original_height, created_at
		FROM attachments
		WHERE id = $1
	`

	att, err := scanAttachment(s.db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pictura.NotFound("Attachment not found")
		}
		return nil, pictura.Internal("Failed to fetch attachment", err)
	}

	variants, err := s.findVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	att.Variants = variants

	return att, nil
}

func (s *AttachmentService) FindAttachments(ctx context.Context, filter pictura.AttachmentFilter) ([]*pictura.Attachment, int, error) {
	query := `
		SELECT id, source_key, content_type, original_width, original_height, created_at,
		       COUNT(*) OVER() AS total
		FROM attachments
		WHERE 1=1
	`
	args := []any{}
	argPos := 1

	if filter.ID != nil {
		query += fmt.Sprintf(" AND id = $%d", argPos)
		args = append(args, *filter.ID)
		argPos++
	}
	if filter.ContentType != nil {
		query += fmt.Sprintf(" AND content_type = $%d", argPos)
		args = append(args, *filter.ContentType)
		argPos++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
		argPos++
	}

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, pictura.Internal("Failed to list attachments", err)
	}
	defer rows.Close()

	var (
		atts  []*pictura.Attachment
		total int
	)
	for rows.Next() {
		var (
			att    pictura.Attachment
			width  pgtype.Int4
			height pgtype.Int4
		)
		if err := rows.Scan(&att.ID, &att.SourceKey, &att.ContentType, &width, &height, &att.CreatedAt, &total); err != nil {
			return nil, 0, pictura.Internal("Failed to scan attachment", err)
		}
		setSize(&att, width, height)
		atts = append(atts, &att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, pictura.Internal("Failed to list attachments", err)
	}

	return atts, total, nil
}

func (s *AttachmentService) CreateAttachment(ctx context.Context, att *pictura.Attachment) error {
	if att.ID == uuid.Nil {
		att.ID = uuid.New()
	}

	const query = `
		INSERT INTO attachments (id, source_key, content_type)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := s.db.pool.QueryRow(ctx, query, att.ID, att.SourceKey, att.ContentType).Scan(&att.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return pictura.Conflict("Attachment already exists")
		}
		return pictura.Internal("Failed to create attachment", err)
	}
	return nil
}

func (s *AttachmentService) SetOriginalSize(ctx context.Context, id uuid.UUID, width, height int) error {
	const query = `
		UPDATE attachments
		SET original_width = $2, original_height = $3
		WHERE id = $1 AND original_width IS NULL
	`

	if _, err := s.db.pool.Exec(ctx, query, id, width, height); err != nil {
		return pictura.Internal("Failed to record original dimensions", err)
	}
	return nil
}

func (s *AttachmentService) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	// Variant rows go with the attachment via ON DELETE CASCADE.
	const query = `DELETE FROM attachments WHERE id = $1`

	tag, err := s.db.pool.Exec(ctx, query, id)
	if err != nil {
		return pictura.Internal("Failed to delete attachment", err)
	}
	if tag.RowsAffected() == 0 {
		return pictura.NotFound("Attachment not found")
	}
	return nil
}

func (s *AttachmentService) FindVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) (*pictura.Variant, error) {
	const query = `
		SELECT attachment_id, style_name, storage_key, width, height, generated_at
		FROM variants
		WHERE attachment_id = $1 AND style_name = $2
	`

	var v pictura.Variant
	err := s.db.pool.QueryRow(ctx, query, attachmentID, styleName).Scan(
		&v.AttachmentID, &v.StyleName, &v.StorageKey, &v.Width, &v.Height, &v.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pictura.NotFound("Variant not found")
		}
		return nil, pictura.Internal("Failed to fetch variant", err)
	}
	return &v, nil
}

func (s *AttachmentService) CreateVariant(ctx context.Context, v *pictura.Variant) error {
	const query = `
		INSERT INTO variants (attachment_id, style_name, storage_key, width, height)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING generated_at
	`

	err := s.db.pool.QueryRow(ctx, query,
		v.AttachmentID, v.StyleName, v.StorageKey, v.Width, v.Height,
	).Scan(&v.GeneratedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return pictura.Conflict("Variant already exists for style %q", v.StyleName)
		}
		if isForeignKeyViolation(err) {
			return pictura.NotFound("Attachment not found")
		}
		return pictura.Internal("Failed to create variant", err)
	}
	return nil
}

func (s *AttachmentService) DeleteVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) error {
	const query = `DELETE FROM variants WHERE attachment_id = $1 AND style_name = $2`

	if _, err := s.db.pool.Exec(ctx, query, attachmentID, styleName); err != nil {
		return pictura.Internal("Failed to delete variant", err)
	}
	return nil
}

// findVariants loads all generated variants for one attachment.
func (s *AttachmentService) findVariants(ctx context.Context, attachmentID uuid.UUID) ([]*pictura.Variant, error) {
	const query = `
		SELECT attachment_id, style_name, storage_key, width, height, generated_at
		FROM variants
		WHERE attachment_id = $1
		ORDER BY style_name
	`

	rows, err := s.db.pool.Query(ctx, query, attachmentID)
	if err != nil {
		return nil, pictura.Internal("Failed to fetch variants", err)
	}
	defer rows.Close()

	var variants []*pictura.Variant
	for rows.Next() {
		var v pictura.Variant
		if err := rows.Scan(&v.AttachmentID, &v.StyleName, &v.StorageKey, &v.Width, &v.Height, &v.GeneratedAt); err != nil {
			return nil, pictura.Internal("Failed to scan variant", err)
		}
		variants = append(variants, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, pictura.Internal("Failed to fetch variants", err)
	}

	return variants, nil
}

// scanAttachment scans one attachment row without the total column.
func scanAttachment(row pgx.Row) (*pictura.Attachment, error) {
	var (
		att    pictura.Attachment
		width  pgtype.Int4
		height pgtype.Int4
	)
	if err := row.Scan(&att.ID, &att.SourceKey, &att.ContentType, &width, &height, &att.CreatedAt); err != nil {
		return nil, err
	}
	setSize(&att, width, height)
	return &att, nil
}

// setSize copies nullable dimension columns onto the attachment.
func setSize(att *pictura.Attachment, width, height pgtype.Int4) {
	if width.Valid {
		w := int(width.Int32)
		att.OriginalWidth = &w
	}
	if height.Valid {
		h := int(height.Int32)
		att.OriginalHeight = &h
	}
}
