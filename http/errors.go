package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tomreid/pictura"
)

// errorStatusCode maps domain error codes to HTTP status codes.
func errorStatusCode(code string) int {
	switch code {
	case pictura.ENOTFOUND:
		return http.StatusNotFound
	case pictura.EINVALID, pictura.EUNKNOWNSTYLE:
		return http.StatusBadRequest
	case pictura.ECONFLICT:
		return http.StatusConflict
	case pictura.EUNSUPPORTEDMEDIA:
		return http.StatusUnsupportedMediaType
	case pictura.ECORRUPTIMAGE, pictura.EUNSUPPORTEDFORMAT:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HandleError converts domain errors to appropriate HTTP responses.
// It logs internal errors and returns user-safe messages.
func HandleError(c echo.Context, logger *slog.Logger, err error) error {
	code := pictura.ErrorCode(err)
	message := pictura.ErrorMessage(err)
	fields := pictura.ErrorFields(err)
	status := errorStatusCode(code)

	// Log internal errors with full details
	if code == pictura.EINTERNAL {
		logger.Error("internal error",
			slog.String("error", err.Error()),
			slog.String("path", c.Path()),
			slog.String("method", c.Request().Method),
		)
		// Don't expose internal error details to clients
		message = "An internal error occurred."
	}

	return c.JSON(status, ErrorResponse{
		Error:   code,
		Message: message,
		Fields:  fields,
	})
}

// ErrorHandlerMiddleware provides centralized error handling.
// It converts domain errors to appropriate HTTP responses.
func ErrorHandlerMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			if he, ok := err.(*echo.HTTPError); ok {
				if he.Code >= 500 {
					logger.Error("http error",
						slog.Int("status", he.Code),
						slog.Any("message", he.Message),
						slog.String("path", c.Path()),
					)
				}
				return err
			}

			if pictura.ErrorCode(err) != pictura.EINTERNAL || isPicturaError(err) {
				return HandleError(c, logger, err)
			}

			// Wrap unexpected errors as internal errors
			wrapped := pictura.Internal("An unexpected error occurred", err)
			return HandleError(c, logger, wrapped)
		}
	}
}

// isPicturaError checks if the error is a pictura.Error type.
func isPicturaError(err error) bool {
	_, ok := err.(*pictura.Error)
	return ok
}
