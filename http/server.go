package http

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tomreid/pictura"
	"github.com/tomreid/pictura/internal/queue"
	"github.com/tomreid/pictura/internal/validation"
	"github.com/tomreid/pictura/internal/variant"
)

// Server represents the HTTP server with all its dependencies.
type Server struct {
	echo   *echo.Echo
	ln     net.Listener
	logger *slog.Logger

	// Configuration
	Addr          string
	Domain        string
	MaxUploadSize int64

	// Domain services
	attachmentService pictura.AttachmentService
	processor         *variant.Processor
	styles            *pictura.StyleRegistry

	// External services
	queue queue.Queue
}

// Config holds the configuration for creating a new Server.
type Config struct {
	Addr          string
	Domain        string
	Logger        *slog.Logger
	MaxUploadSize int64

	AttachmentService pictura.AttachmentService
	Processor         *variant.Processor
	Styles            *pictura.StyleRegistry

	Queue queue.Queue
}

// NewServer creates a new HTTP server with the given configuration.
func NewServer(cfg Config) *Server {
	s := &Server{
		Addr:              cfg.Addr,
		Domain:            cfg.Domain,
		logger:            cfg.Logger,
		MaxUploadSize:     cfg.MaxUploadSize,
		attachmentService: cfg.AttachmentService,
		processor:         cfg.Processor,
		styles:            cfg.Styles,
		queue:             cfg.Queue,
	}

	if s.MaxUploadSize == 0 {
		s.MaxUploadSize = 10 * 1024 * 1024
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = validation.NewValidator()

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// Echo returns the underlying Echo instance.
// Use sparingly - prefer registering routes through Server methods.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Open starts the HTTP server.
func (s *Server) Open() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		if err := s.echo.Server.Serve(s.ln); err != nil {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("server started", slog.String("addr", s.Addr))
	return nil
}

// Close gracefully shuts down the HTTP server.
func (s *Server) Close(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// URL returns the URL of the server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// requestTimeout bounds handler work that touches the database or storage.
const requestTimeout = 30 * time.Second
