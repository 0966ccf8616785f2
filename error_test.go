package pictura

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ENOTFOUND, ErrorCode(NotFound("Attachment not found")))
	assert.Equal(t, EUNKNOWNSTYLE, ErrorCode(UnknownStyle("mega")))
	assert.Equal(t, EINTERNAL, ErrorCode(errors.New("boom")))
	assert.Equal(t, "", ErrorCode(nil))

	// Wrapped domain errors keep their code.
	wrapped := fmt.Errorf("processing: %w", Invalid("bad input"))
	assert.Equal(t, EINVALID, ErrorCode(wrapped))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Attachment not found", ErrorMessage(NotFound("Attachment not found")))
	assert.Equal(t, "An internal error occurred.", ErrorMessage(errors.New("connection refused")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Errorf(ESTORAGEWRITE, "write failed")))
	assert.True(t, IsRetryable(Errorf(ESTORAGEREAD, "read failed")))
	assert.False(t, IsRetryable(Invalid("bad input")))
	assert.False(t, IsRetryable(UnknownStyle("mega")))
	assert.False(t, IsRetryable(nil))
}

func TestErrorFields(t *testing.T) {
	err := ErrorWithFields(EINVALID, "validation failed", map[string]string{"width": "is required"})
	assert.Equal(t, map[string]string{"width": "is required"}, ErrorFields(err))
	assert.Nil(t, ErrorFields(errors.New("boom")))
}
