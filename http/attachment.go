package http

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tomreid/pictura"
	"github.com/tomreid/pictura/internal/queue"
	"github.com/tomreid/pictura/internal/validation"
)

func (s *Server) handleUploadAttachment(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	file, err := c.FormFile("file")
	if err != nil {
		return pictura.Invalid("file is required")
	}

	if err := validation.ValidateFileUpload(file, s.MaxUploadSize, s.processor.AllowedMediaTypes()); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return pictura.Internal("Failed to read uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.MaxUploadSize+1))
	if err != nil {
		return pictura.Internal("Failed to read uploaded file", err)
	}
	if int64(len(data)) > s.MaxUploadSize {
		return pictura.Invalid("file exceeds maximum size of %d bytes", s.MaxUploadSize)
	}

	contentType := file.Header.Get("Content-Type")

	att, err := s.processor.Ingest(ctx, data, contentType)
	if err != nil {
		return err
	}

	// Generate all registered styles in the background so the first variant
	// request does not pay the transform cost.
	if s.queue != nil {
		if _, err := s.queue.Enqueue(ctx, "default", queue.GenerateVariantsJobType, att.ID, nil, nil); err != nil {
			s.log(c).Error("failed to enqueue variant generation",
				slog.String("attachment_id", att.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	return RespondCreated(c, att)
}

func (s *Server) handleGetAttachment(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	attachmentID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	att, err := s.attachmentService.FindAttachmentByID(ctx, attachmentID)
	if err != nil {
		return err
	}

	return RespondOK(c, att)
}

func (s *Server) handleListAttachments(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	filter := pictura.AttachmentFilter{Limit: 50}

	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			return pictura.Invalid("limit must be between 1 and 500")
		}
		filter.Limit = limit
	}
	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return pictura.Invalid("offset must be a non-negative integer")
		}
		filter.Offset = offset
	}
	if v := c.QueryParam("content_type"); v != "" {
		filter.ContentType = &v
	}

	attachments, total, err := s.attachmentService.FindAttachments(ctx, filter)
	if err != nil {
		return err
	}

	return RespondList(c, attachments, total, filter.Offset, filter.Limit)
}

func (s *Server) handleDeleteAttachment(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	attachmentID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.processor.Destroy(ctx, attachmentID); err != nil {
		return err
	}

	s.log(c).Info("attachment deleted", slog.String("attachment_id", attachmentID.String()))

	return RespondNoContent(c)
}
