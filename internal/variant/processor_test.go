package variant

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomreid/pictura"
	"github.com/tomreid/pictura/internal/codec"
	"github.com/tomreid/pictura/mock"
)

// fakeAttachmentService is a stateful in-memory AttachmentService.
type fakeAttachmentService struct {
	mu          sync.Mutex
	attachments map[uuid.UUID]*pictura.Attachment
	variants    map[string]*pictura.Variant

	createAttachmentErr error
	createVariantErr    error
}

func newFakeAttachmentService() *fakeAttachmentService {
	return &fakeAttachmentService{
		attachments: make(map[uuid.UUID]*pictura.Attachment),
		variants:    make(map[string]*pictura.Variant),
	}
}

func (s *fakeAttachmentService) variantKey(attachmentID uuid.UUID, styleName string) string {
	return attachmentID.String() + "/" + styleName
}

func (s *fakeAttachmentService) FindAttachmentByID(ctx context.Context, id uuid.UUID) (*pictura.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	att, ok := s.attachments[id]
	if !ok {
		return nil, pictura.NotFound("Attachment not found")
	}

	copied := *att
	copied.Variants = nil
	for _, v := range s.variants {
		if v.AttachmentID == id {
			vc := *v
			copied.Variants = append(copied.Variants, &vc)
		}
	}
	return &copied, nil
}

func (s *fakeAttachmentService) FindAttachments(ctx context.Context, filter pictura.AttachmentFilter) ([]*pictura.Attachment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*pictura.Attachment
	for _, att := range s.attachments {
		copied := *att
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (s *fakeAttachmentService) CreateAttachment(ctx context.Context, att *pictura.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createAttachmentErr != nil {
		return s.createAttachmentErr
	}
	if _, exists := s.attachments[att.ID]; exists {
		return pictura.Conflict("Attachment already exists")
	}
	att.CreatedAt = time.Now()
	copied := *att
	s.attachments[att.ID] = &copied
	return nil
}

func (s *fakeAttachmentService) SetOriginalSize(ctx context.Context, id uuid.UUID, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	att, ok := s.attachments[id]
	if !ok {
		return pictura.NotFound("Attachment not found")
	}
	if att.OriginalWidth == nil {
		att.OriginalWidth = &width
		att.OriginalHeight = &height
	}
	return nil
}

func (s *fakeAttachmentService) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attachments[id]; !ok {
		return pictura.NotFound("Attachment not found")
	}
	delete(s.attachments, id)
	for key, v := range s.variants {
		if v.AttachmentID == id {
			delete(s.variants, key)
		}
	}
	return nil
}

func (s *fakeAttachmentService) FindVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) (*pictura.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.variants[s.variantKey(attachmentID, styleName)]
	if !ok {
		return nil, pictura.NotFound("Variant not found")
	}
	copied := *v
	return &copied, nil
}

func (s *fakeAttachmentService) CreateVariant(ctx context.Context, v *pictura.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createVariantErr != nil {
		return s.createVariantErr
	}
	key := s.variantKey(v.AttachmentID, v.StyleName)
	if _, exists := s.variants[key]; exists {
		return pictura.Conflict("Variant already exists")
	}
	if _, ok := s.attachments[v.AttachmentID]; !ok {
		return pictura.NotFound("Attachment not found")
	}
	v.GeneratedAt = time.Now()
	copied := *v
	s.variants[key] = &copied
	return nil
}

func (s *fakeAttachmentService) DeleteVariant(ctx context.Context, attachmentID uuid.UUID, styleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.variants, s.variantKey(attachmentID, styleName))
	return nil
}

// memoryBlobStorage is an in-memory BlobStorage with failure injection.
type memoryBlobStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte

	fetches   atomic.Int32
	storeErrs int
}

func newMemoryBlobStorage() *memoryBlobStorage {
	return &memoryBlobStorage{blobs: make(map[string][]byte)}
}

func (s *memoryBlobStorage) Store(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storeErrs > 0 {
		s.storeErrs--
		return pictura.Errorf(pictura.ESTORAGEWRITE, "injected write failure")
	}
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryBlobStorage) Fetch(ctx context.Context, key string) ([]byte, error) {
	s.fetches.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, pictura.NotFound("Blob %q not found", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *memoryBlobStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.blobs[key]
	return ok, nil
}

func (s *memoryBlobStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}

func (s *memoryBlobStorage) URL(key string) string {
	return "mem://" + key
}

func (s *memoryBlobStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}

// countingCodec wraps the real codec and counts decodes, so tests can tell
// a fresh generation apart from a reused derivative.
type countingCodec struct {
	inner   pictura.Codec
	decodes atomic.Int32
}

func (c *countingCodec) Decode(data []byte) (*pictura.RawImage, error) {
	c.decodes.Add(1)
	return c.inner.Decode(data)
}

func (c *countingCodec) Normalize(img *pictura.RawImage) *pictura.RawImage {
	return c.inner.Normalize(img)
}

func (c *countingCodec) Resize(img *pictura.RawImage, spec pictura.StyleSpec) *pictura.RawImage {
	return c.inner.Resize(img, spec)
}

func (c *countingCodec) Encode(img *pictura.RawImage, format string) ([]byte, error) {
	return c.inner.Encode(img, format)
}

type processorFixture struct {
	processor   *Processor
	attachments *fakeAttachmentService
	blobs       *memoryBlobStorage
	codec       *countingCodec
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()

	registry := pictura.NewStyleRegistry()
	require.NoError(t, registry.Replace([]pictura.StyleSpec{
		{Name: "mini", Width: 48, Height: 48, Mode: pictura.ModeBoundingBox},
		{Name: "product", Width: 680, Height: 680, Mode: pictura.ModeBoundingBox},
	}, "product"))

	attachments := newFakeAttachmentService()
	blobs := newMemoryBlobStorage()
	counting := &countingCodec{inner: codec.New()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &processorFixture{
		processor:   NewProcessor(attachments, blobs, counting, registry, logger, DefaultConfig()),
		attachments: attachments,
		blobs:       blobs,
		codec:       counting,
	}
}

// testJPEG produces encoded JPEG bytes of the given size.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

func TestProcessor_Ingest(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 100, 100), "image/jpeg")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, att.ID)
	assert.Equal(t, "image/jpeg", att.ContentType)
	assert.True(t, f.blobs.has(att.SourceKey))

	stored, err := f.attachments.FindAttachmentByID(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, att.SourceKey, stored.SourceKey)

	// Dimensions are lazy; ingestion does not decode.
	assert.Nil(t, stored.OriginalWidth)
	assert.Equal(t, int32(0), f.codec.decodes.Load())
}

func TestProcessor_IngestRejectsUnsupportedMediaType(t *testing.T) {
	f := newProcessorFixture(t)

	_, err := f.processor.Ingest(context.Background(), testJPEG(t, 10, 10), "image/webp")
	assert.True(t, pictura.IsErrorCode(err, pictura.EUNSUPPORTEDMEDIA))

	// Nothing was persisted.
	assert.Empty(t, f.blobs.blobs)
	assert.Empty(t, f.attachments.attachments)
}

func TestProcessor_IngestRollsBackBlobOnRecordFailure(t *testing.T) {
	f := newProcessorFixture(t)
	f.attachments.createAttachmentErr = pictura.Internal("database down", nil)

	_, err := f.processor.Ingest(context.Background(), testJPEG(t, 10, 10), "image/jpeg")
	assert.Error(t, err)
	assert.Empty(t, f.blobs.blobs)
}

func TestProcessor_IngestRetriesTransientStoreFailures(t *testing.T) {
	f := newProcessorFixture(t)
	f.blobs.storeErrs = 2

	att, err := f.processor.Ingest(context.Background(), testJPEG(t, 10, 10), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, f.blobs.has(att.SourceKey))
}

func TestProcessor_Process(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 1600, 1200), "image/jpeg")
	require.NoError(t, err)

	result, err := f.processor.Process(ctx, att.ID, "mini")
	require.NoError(t, err)
	assert.Equal(t, att.ID, result.AttachmentID)
	assert.Equal(t, "mini", result.StyleName)
	assert.Equal(t, 48, result.Width)
	assert.Equal(t, 36, result.Height)
	assert.Equal(t, "mem://"+pictura.VariantKey(att.ID, "mini"), result.URL)
	assert.True(t, f.blobs.has(pictura.VariantKey(att.ID, "mini")))

	// First decode records the source dimensions.
	stored, err := f.attachments.FindAttachmentByID(ctx, att.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OriginalWidth)
	assert.Equal(t, 1600, *stored.OriginalWidth)
	assert.Equal(t, 1200, *stored.OriginalHeight)

	v, err := f.attachments.FindVariant(ctx, att.ID, "mini")
	require.NoError(t, err)
	assert.Equal(t, 48, v.Width)
	assert.Equal(t, 36, v.Height)
}

func TestProcessor_ProcessDefaultStyle(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 1600, 1200), "image/jpeg")
	require.NoError(t, err)

	result, err := f.processor.Process(ctx, att.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "product", result.StyleName)
	assert.Equal(t, 680, result.Width)
	assert.Equal(t, 510, result.Height)
}

func TestProcessor_ProcessIsIdempotent(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 800, 600), "image/jpeg")
	require.NoError(t, err)

	first, err := f.processor.Process(ctx, att.ID, "mini")
	require.NoError(t, err)
	decodesAfterFirst := f.codec.decodes.Load()

	second, err := f.processor.Process(ctx, att.ID, "mini")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, decodesAfterFirst, f.codec.decodes.Load())
}

func TestProcessor_ProcessUnknownStyle(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 100, 100), "image/jpeg")
	require.NoError(t, err)

	fetchesBefore := f.blobs.fetches.Load()
	_, err = f.processor.Process(ctx, att.ID, "gigantic")
	assert.True(t, pictura.IsErrorCode(err, pictura.EUNKNOWNSTYLE))

	// Failed before any storage I/O.
	assert.Equal(t, fetchesBefore, f.blobs.fetches.Load())
}

func TestProcessor_ProcessMissingAttachment(t *testing.T) {
	f := newProcessorFixture(t)

	_, err := f.processor.Process(context.Background(), uuid.New(), "mini")
	assert.True(t, pictura.IsErrorCode(err, pictura.ENOTFOUND))
}

func TestProcessor_ProcessCorruptSource(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	data := testJPEG(t, 100, 100)
	att, err := f.processor.Ingest(ctx, data[:len(data)/2], "image/jpeg")
	require.NoError(t, err)

	_, err = f.processor.Process(ctx, att.ID, "mini")
	assert.True(t, pictura.IsErrorCode(err, pictura.ECORRUPTIMAGE))

	// No variant bytes or record exist after a failed generation.
	assert.False(t, f.blobs.has(pictura.VariantKey(att.ID, "mini")))
	_, err = f.attachments.FindVariant(ctx, att.ID, "mini")
	assert.True(t, pictura.IsErrorCode(err, pictura.ENOTFOUND))
}

func TestProcessor_ConcurrentRequestsGenerateOnce(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 1600, 1200), "image/jpeg")
	require.NoError(t, err)
	decodesAfterIngest := f.codec.decodes.Load()

	const callers = 8
	results := make([]*Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.processor.Process(ctx, att.ID, "mini")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}

	// All callers shared a single generation.
	assert.Equal(t, decodesAfterIngest+1, f.codec.decodes.Load())
}

func TestProcessor_ProcessAll(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 1600, 1200), "image/jpeg")
	require.NoError(t, err)

	results, err := f.processor.ProcessAll(ctx, att.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byStyle := make(map[string]*Result, len(results))
	for _, r := range results {
		byStyle[r.StyleName] = r
	}
	assert.Equal(t, 48, byStyle["mini"].Width)
	assert.Equal(t, 680, byStyle["product"].Width)
}

func TestProcessor_ReusesVariantAcrossInstances(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 800, 600), "image/jpeg")
	require.NoError(t, err)
	_, err = f.processor.Process(ctx, att.ID, "mini")
	require.NoError(t, err)

	// A second processor shares the database and blob store but not the
	// in-memory result cache. It must reuse the recorded derivative.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	second := NewProcessor(f.attachments, f.blobs, f.codec, f.processor.Styles(), logger, DefaultConfig())

	decodesBefore := f.codec.decodes.Load()
	result, err := second.Process(ctx, att.ID, "mini")
	require.NoError(t, err)
	assert.Equal(t, 48, result.Width)
	assert.Equal(t, decodesBefore, f.codec.decodes.Load())
}

func TestProcessor_RegeneratesWhenBlobMissing(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 800, 600), "image/jpeg")
	require.NoError(t, err)
	_, err = f.processor.Process(ctx, att.ID, "mini")
	require.NoError(t, err)

	// Simulate lost variant bytes with an intact record.
	key := pictura.VariantKey(att.ID, "mini")
	require.NoError(t, f.blobs.Delete(ctx, key))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	second := NewProcessor(f.attachments, f.blobs, f.codec, f.processor.Styles(), logger, DefaultConfig())

	result, err := second.Process(ctx, att.ID, "mini")
	require.NoError(t, err)
	assert.Equal(t, 48, result.Width)
	assert.True(t, f.blobs.has(key))
}

func TestProcessor_Regenerate(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 800, 600), "image/jpeg")
	require.NoError(t, err)
	first, err := f.processor.Process(ctx, att.ID, "mini")
	require.NoError(t, err)

	decodesBefore := f.codec.decodes.Load()
	second, err := f.processor.Regenerate(ctx, att.ID, "mini")
	require.NoError(t, err)

	// Same location and dimensions, but freshly generated.
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, decodesBefore+1, f.codec.decodes.Load())
}

func TestProcessor_Destroy(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	att, err := f.processor.Ingest(ctx, testJPEG(t, 800, 600), "image/jpeg")
	require.NoError(t, err)
	_, err = f.processor.ProcessAll(ctx, att.ID)
	require.NoError(t, err)

	require.NoError(t, f.processor.Destroy(ctx, att.ID))

	assert.Empty(t, f.blobs.blobs)
	_, err = f.attachments.FindAttachmentByID(ctx, att.ID)
	assert.True(t, pictura.IsErrorCode(err, pictura.ENOTFOUND))

	// Destroying twice reports the missing attachment.
	err = f.processor.Destroy(ctx, att.ID)
	assert.True(t, pictura.IsErrorCode(err, pictura.ENOTFOUND))
}

func TestProcessor_ConcurrencyLimitIsHonored(t *testing.T) {
	registry := pictura.NewStyleRegistry()
	require.NoError(t, registry.Replace([]pictura.StyleSpec{
		{Name: "mini", Width: 48, Height: 48, Mode: pictura.ModeBoundingBox},
	}, "mini"))

	attachments := newFakeAttachmentService()
	blobs := newMemoryBlobStorage()

	var active, peak atomic.Int32
	tracking := &mock.Codec{
		DecodeFn: func(data []byte) (*pictura.RawImage, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return codec.New().Decode(data)
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	processor := NewProcessor(attachments, blobs, tracking, registry, logger, cfg)

	ctx := context.Background()
	data := testJPEG(t, 200, 200)

	const uploads = 6
	ids := make([]uuid.UUID, uploads)
	for i := 0; i < uploads; i++ {
		att, err := processor.Ingest(ctx, data, "image/jpeg")
		require.NoError(t, err)
		ids[i] = att.ID
	}

	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := processor.Process(ctx, id, "mini")
			assert.NoError(t, err)
		}(ids[i])
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}
