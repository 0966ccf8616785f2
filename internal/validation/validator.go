package validation

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tomreid/pictura"
)

// Validator implements echo.Validator on top of go-playground/validator.
// Request structs declare their rules via `validate` struct tags and handlers
// invoke them with c.Validate(&req).
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// Validate checks a struct against its validation tags. Failures are
// returned as a single invalid-input error carrying per-field messages.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := FormatValidationErrors(validationErrors)
	var messages []string
	for field, message := range fields {
		messages = append(messages, fmt.Sprintf("%s %s", field, message))
	}
	return pictura.ErrorWithFields(pictura.EINVALID, strings.Join(messages, "; "), fields)
}

// FormatValidationErrors converts validator field errors into user-friendly
// messages keyed by lowercased field name.
func FormatValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["_error"] = err.Error()
		return fields
	}

	for _, fieldErr := range validationErrors {
		fieldName := strings.ToLower(fieldErr.Field())

		switch fieldErr.Tag() {
		case "required":
			fields[fieldName] = "is required"
		case "min":
			if fieldErr.Type().Kind() == reflect.String {
				fields[fieldName] = fmt.Sprintf("must be at least %s characters", fieldErr.Param())
			} else {
				fields[fieldName] = fmt.Sprintf("must be at least %s", fieldErr.Param())
			}
		case "max":
			if fieldErr.Type().Kind() == reflect.String {
				fields[fieldName] = fmt.Sprintf("must be no more than %s characters", fieldErr.Param())
			} else {
				fields[fieldName] = fmt.Sprintf("must be no more than %s", fieldErr.Param())
			}
		case "uuid":
			fields[fieldName] = "must be a valid UUID"
		case "gte":
			fields[fieldName] = fmt.Sprintf("must be greater than or equal to %s", fieldErr.Param())
		case "lte":
			fields[fieldName] = fmt.Sprintf("must be less than or equal to %s", fieldErr.Param())
		case "gt":
			fields[fieldName] = fmt.Sprintf("must be greater than %s", fieldErr.Param())
		case "oneof":
			fields[fieldName] = fmt.Sprintf("must be one of: %s", fieldErr.Param())
		default:
			fields[fieldName] = fmt.Sprintf("failed validation: %s", fieldErr.Tag())
		}
	}

	return fields
}

// ValidateFileUpload checks an uploaded file's size and sniffed content type
// before the body is read in full. The declared Content-Type header is not
// trusted; the first 512 bytes are inspected instead.
func ValidateFileUpload(header *multipart.FileHeader, maxSize int64, allowedTypes []string) error {
	if header.Size > maxSize {
		return pictura.Errorf(pictura.EINVALID, "file size %d exceeds maximum of %d bytes", header.Size, maxSize)
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])
	if err := pictura.ValidateMediaType(contentType, allowedTypes); err != nil {
		return err
	}

	return nil
}
