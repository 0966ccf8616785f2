package http

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes sets up all routes for the server.
// All routes are defined in this single file for easy navigation.
func (s *Server) registerRoutes() {
	// Health check routes (public)
	s.echo.GET("/health", s.handleHealthCheck)
	s.echo.GET("/health/live", s.handleLivenessCheck)
	s.echo.GET("/health/ready", s.handleReadinessCheck)

	// Prometheus metrics
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	// Attachments
	api.POST("/attachments", s.handleUploadAttachment)
	api.GET("/attachments", s.handleListAttachments)
	api.GET("/attachments/:id", s.handleGetAttachment)
	api.DELETE("/attachments/:id", s.handleDeleteAttachment)

	// Variants. The bare route serves the default style.
	api.GET("/attachments/:id/variant", s.handleGetVariant)
	api.GET("/attachments/:id/variants/:style", s.handleGetVariant)
	api.POST("/attachments/:id/variants/:style/regenerate", s.handleRegenerateVariant)

	// Styles
	api.GET("/styles", s.handleListStyles)
	api.PUT("/styles", s.handleReplaceStyles)
}
