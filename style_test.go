package pictura

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishTestStyles(t *testing.T) *StyleRegistry {
	t.Helper()

	registry := NewStyleRegistry()
	require.NoError(t, registry.Register(StyleSpec{Name: "mini", Width: 48, Height: 48, Mode: ModeBoundingBox}))
	require.NoError(t, registry.Register(StyleSpec{Name: "product", Width: 680, Height: 680, Mode: ModeBoundingBox}))
	require.NoError(t, registry.SetDefault("product"))
	require.NoError(t, registry.Publish())
	return registry
}

func TestStyleSpec_Validate(t *testing.T) {
	assert.NoError(t, StyleSpec{Name: "ok", Width: 10, Height: 10, Mode: ModeCrop}.Validate())

	err := StyleSpec{Width: 10, Height: 10, Mode: ModeExact}.Validate()
	assert.True(t, IsErrorCode(err, EINVALID))

	err = StyleSpec{Name: "bad", Width: 0, Height: 10, Mode: ModeExact}.Validate()
	assert.True(t, IsErrorCode(err, EINVALID))

	err = StyleSpec{Name: "bad", Width: 10, Height: 10, Mode: "stretch"}.Validate()
	assert.True(t, IsErrorCode(err, EINVALID))
}

func TestStyleRegistry_Resolve(t *testing.T) {
	registry := publishTestStyles(t)

	spec, err := registry.Resolve("mini")
	require.NoError(t, err)
	assert.Equal(t, 48, spec.Width)

	// Empty name resolves to the default style.
	spec, err = registry.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "product", spec.Name)

	// Unknown names are an error, never a fallback to the default.
	_, err = registry.Resolve("gigantic")
	assert.True(t, IsErrorCode(err, EUNKNOWNSTYLE))
}

func TestStyleRegistry_UnpublishedResolveFails(t *testing.T) {
	registry := NewStyleRegistry()
	require.NoError(t, registry.Register(StyleSpec{Name: "mini", Width: 48, Height: 48, Mode: ModeBoundingBox}))

	_, err := registry.Resolve("mini")
	assert.Error(t, err)
}

func TestStyleRegistry_PublishValidation(t *testing.T) {
	registry := NewStyleRegistry()

	// Empty registry cannot be published.
	assert.Error(t, registry.Publish())

	require.NoError(t, registry.Register(StyleSpec{Name: "mini", Width: 48, Height: 48, Mode: ModeBoundingBox}))

	// No default selected.
	assert.Error(t, registry.Publish())

	assert.True(t, IsErrorCode(registry.SetDefault("missing"), EUNKNOWNSTYLE))
	require.NoError(t, registry.SetDefault("mini"))
	assert.NoError(t, registry.Publish())
}

func TestStyleRegistry_StagedChangesInvisibleUntilPublish(t *testing.T) {
	registry := publishTestStyles(t)

	require.NoError(t, registry.Register(StyleSpec{Name: "banner", Width: 1200, Height: 300, Mode: ModeCrop}))

	_, err := registry.Resolve("banner")
	assert.True(t, IsErrorCode(err, EUNKNOWNSTYLE))

	require.NoError(t, registry.Publish())

	spec, err := registry.Resolve("banner")
	require.NoError(t, err)
	assert.Equal(t, ModeCrop, spec.Mode)
}

func TestStyleRegistry_Replace(t *testing.T) {
	registry := publishTestStyles(t)

	err := registry.Replace([]StyleSpec{
		{Name: "hero", Width: 1920, Height: 1080, Mode: ModeCrop},
	}, "hero")
	require.NoError(t, err)

	// Old styles are gone after a full replacement.
	_, err = registry.Resolve("mini")
	assert.True(t, IsErrorCode(err, EUNKNOWNSTYLE))

	assert.Equal(t, "hero", registry.Default())
	assert.Len(t, registry.Styles(), 1)
}

func TestStyleRegistry_ReplaceRejectsBadDefault(t *testing.T) {
	registry := publishTestStyles(t)

	err := registry.Replace([]StyleSpec{
		{Name: "hero", Width: 1920, Height: 1080, Mode: ModeCrop},
	}, "missing")
	assert.Error(t, err)

	// The live snapshot is untouched by a failed replacement.
	spec, err := registry.Resolve("mini")
	require.NoError(t, err)
	assert.Equal(t, 48, spec.Width)
}

func TestStyleRegistry_ConcurrentResolveDuringReplace(t *testing.T) {
	registry := publishTestStyles(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				spec, err := registry.Resolve("")
				if assert.NoError(t, err) {
					// Either snapshot is fine, a mix is not.
					assert.Equal(t, spec.Name, registry.Default())
				}
			}
		}()
	}

	for j := 0; j < 50; j++ {
		require.NoError(t, registry.Replace([]StyleSpec{
			{Name: "product", Width: 680, Height: 680, Mode: ModeBoundingBox},
		}, "product"))
	}
	wg.Wait()
}
