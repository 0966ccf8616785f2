package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleGetVariant(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	attachmentID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	// Empty when the default-style route matched.
	styleName := c.Param("style")

	result, err := s.processor.Process(ctx, attachmentID, styleName)
	if err != nil {
		return err
	}

	if c.QueryParam("redirect") == "true" {
		return c.Redirect(http.StatusFound, result.URL)
	}

	return RespondOK(c, result)
}

func (s *Server) handleRegenerateVariant(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	attachmentID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	styleName, err := requireParam(c, "style")
	if err != nil {
		return err
	}

	result, err := s.processor.Regenerate(ctx, attachmentID, styleName)
	if err != nil {
		return err
	}

	s.log(c).Info("variant regenerated",
		slog.String("attachment_id", attachmentID.String()),
		slog.String("style", styleName),
	)

	return RespondOK(c, result)
}
