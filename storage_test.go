package pictura

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStorageKeys(t *testing.T) {
	id := uuid.MustParse("3e0f9373-9c5e-4f3a-8f1e-6a4f0c2d9b11")

	assert.Equal(t, id.String()+"/original", SourceKey(id))
	assert.Equal(t, id.String()+"/mini", VariantKey(id, "mini"))
}

func TestStyleNameOriginalIsReserved(t *testing.T) {
	// A style named "original" would share a storage key with the source blob.
	err := StyleSpec{Name: "original", Width: 100, Height: 100, Mode: ModeBoundingBox}.Validate()
	assert.True(t, IsErrorCode(err, EINVALID))
}

func TestValidateMediaType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/png", "image/gif"}

	assert.NoError(t, ValidateMediaType("image/jpeg", allowed))
	assert.NoError(t, ValidateMediaType("image/gif", allowed))

	err := ValidateMediaType("image/webp", allowed)
	assert.True(t, IsErrorCode(err, EUNSUPPORTEDMEDIA))

	// Matching is exact, not case-insensitive or prefix based.
	err = ValidateMediaType("IMAGE/JPEG", allowed)
	assert.True(t, IsErrorCode(err, EUNSUPPORTEDMEDIA))

	err = ValidateMediaType("image/jpeg; charset=utf-8", allowed)
	assert.True(t, IsErrorCode(err, EUNSUPPORTEDMEDIA))

	err = ValidateMediaType("", allowed)
	assert.True(t, IsErrorCode(err, EUNSUPPORTEDMEDIA))
}
