// Package variant implements the derivative generation pipeline.
package variant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomreid/pictura"
)

// Result is what the render path needs: where a derivative lives and its
// pixel dimensions.
type Result struct {
	AttachmentID uuid.UUID `json:"attachmentId"`
	StyleName    string    `json:"styleName"`
	URL          string    `json:"url"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
}

// Config holds processor tuning knobs.
type Config struct {
	// AllowedMediaTypes is the upload allow-list of canonical MIME strings.
	AllowedMediaTypes []string

	// MaxConcurrent bounds simultaneous decode/resize/encode work so large
	// sources cannot produce unbounded parallel memory use.
	MaxConcurrent int

	// ResultTTL is how long generated locations stay in the in-memory
	// cache before the next request re-checks the database.
	ResultTTL time.Duration
}

// DefaultConfig returns sensible processor defaults.
func DefaultConfig() Config {
	return Config{
		AllowedMediaTypes: []string{"image/jpeg", "image/png", "image/gif"},
		MaxConcurrent:     4,
		ResultTTL:         5 * time.Minute,
	}
}

// Processor orchestrates variant generation: style resolution, caching,
// decode/transform/encode, blob storage and metadata recording.
//
// Concurrent requests for the same (attachment, style) pair are collapsed
// into one generation via singleflight; requests for distinct pairs run
// fully in parallel, subject only to the CPU semaphore.
type Processor struct {
	attachments pictura.AttachmentService
	blobs       pictura.BlobStorage
	codec       pictura.Codec
	styles      *pictura.StyleRegistry
	logger      *slog.Logger
	config      Config

	group   singleflight.Group
	sem     chan struct{}
	results *gocache.Cache
}

// NewProcessor creates a variant processor.
func NewProcessor(
	attachments pictura.AttachmentService,
	blobs pictura.BlobStorage,
	codec pictura.Codec,
	styles *pictura.StyleRegistry,
	logger *slog.Logger,
	config Config,
) *Processor {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if config.ResultTTL <= 0 {
		config.ResultTTL = DefaultConfig().ResultTTL
	}

	return &Processor{
		attachments: attachments,
		blobs:       blobs,
		codec:       codec,
		styles:      styles,
		logger:      logger,
		config:      config,
		sem:         make(chan struct{}, config.MaxConcurrent),
		results:     gocache.New(config.ResultTTL, 2*config.ResultTTL),
	}
}

// Styles returns the processor's style registry.
func (p *Processor) Styles() *pictura.StyleRegistry {
	return p.styles
}

// AllowedMediaTypes returns the content types accepted for ingestion.
func (p *Processor) AllowedMediaTypes() []string {
	return p.config.AllowedMediaTypes
}

// Ingest validates an upload, persists the source bytes and creates the
// attachment record. Nothing is persisted for a rejected media type.
func (p *Processor) Ingest(ctx context.Context, data []byte, contentType string) (*pictura.Attachment, error) {
	if err := pictura.ValidateMediaType(contentType, p.config.AllowedMediaTypes); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, pictura.Invalid("Upload is empty")
	}

	att := &pictura.Attachment{
		ID:          uuid.New(),
		ContentType: contentType,
	}
	att.SourceKey = pictura.SourceKey(att.ID)

	if err := p.storeWithRetry(ctx, att.SourceKey, data, contentType); err != nil {
		return nil, err
	}

	if err := p.attachments.CreateAttachment(ctx, att); err != nil {
		// Clean up stored bytes so no orphan blob outlives a failed record.
		_ = p.blobs.Delete(ctx, att.SourceKey)
		return nil, err
	}

	p.logger.Info("attachment ingested",
		slog.String("attachment_id", att.ID.String()),
		slog.String("content_type", contentType),
		slog.Int("bytes", len(data)),
	)

	return att, nil
}

// Process produces (or reuses) the derivative for a style and returns its
// location and dimensions. An empty style name resolves to the default
// style; an unregistered name fails before any I/O.
func (p *Processor) Process(ctx context.Context, attachmentID uuid.UUID, styleName string) (*Result, error) {
	spec, err := p.styles.Resolve(styleName)
	if err != nil {
		return nil, err
	}

	key := pictura.VariantKey(attachmentID, spec.Name)

	if cached, ok := p.results.Get(key); ok {
		observeCacheHit()
		return cached.(*Result), nil
	}

	// Collapse concurrent generations of the same key into one. The work
	// runs on a detached context so it finishes for the remaining waiters
	// even if the caller that started it goes away.
	workCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (interface{}, error) {
		return p.generate(workCtx, attachmentID, spec, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

// ProcessAll generates every registered style for an attachment. Used by
// the eager generation job. Styles generate in parallel, bounded by the
// processor's CPU semaphore.
func (p *Processor) ProcessAll(ctx context.Context, attachmentID uuid.UUID) ([]*Result, error) {
	specs := p.styles.Styles()
	results := make([]*Result, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			res, err := p.Process(gctx, attachmentID, spec.Name)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Regenerate discards a derivative and produces it again. Used when the
// source bytes or a style definition changed. Variants are never mutated
// in place.
func (p *Processor) Regenerate(ctx context.Context, attachmentID uuid.UUID, styleName string) (*Result, error) {
	spec, err := p.styles.Resolve(styleName)
	if err != nil {
		return nil, err
	}

	key := pictura.VariantKey(attachmentID, spec.Name)
	p.results.Delete(key)
	p.group.Forget(key)

	if err := p.attachments.DeleteVariant(ctx, attachmentID, spec.Name); err != nil {
		return nil, err
	}
	if err := p.blobs.Delete(ctx, key); err != nil {
		return nil, err
	}

	return p.Process(ctx, attachmentID, spec.Name)
}

// Destroy removes an attachment, its variant records and all stored bytes.
func (p *Processor) Destroy(ctx context.Context, attachmentID uuid.UUID) error {
	att, err := p.attachments.FindAttachmentByID(ctx, attachmentID)
	if err != nil {
		return err
	}

	for _, v := range att.Variants {
		p.results.Delete(v.StorageKey)
		if err := p.blobs.Delete(ctx, v.StorageKey); err != nil {
			return err
		}
	}
	if err := p.blobs.Delete(ctx, att.SourceKey); err != nil {
		return err
	}

	if err := p.attachments.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}

	p.logger.Info("attachment destroyed",
		slog.String("attachment_id", attachmentID.String()),
		slog.Int("variants", len(att.Variants)),
	)

	return nil
}

// generate runs the full pipeline for one (attachment, style) pair. Callers
// hold the singleflight slot for the key for the whole duration.
func (p *Processor) generate(ctx context.Context, attachmentID uuid.UUID, spec pictura.StyleSpec, key string) (*Result, error) {
	start := time.Now()

	// Reuse an existing derivative when its record and bytes both exist.
	if existing, err := p.attachments.FindVariant(ctx, attachmentID, spec.Name); err == nil {
		ok, err := p.blobs.Exists(ctx, existing.StorageKey)
		if err != nil {
			return nil, err
		}
		if ok {
			observeCacheHit()
			res := p.resultFor(existing)
			p.results.SetDefault(key, res)
			return res, nil
		}
		// Bytes are gone; regenerate under a fresh record.
		if err := p.attachments.DeleteVariant(ctx, attachmentID, spec.Name); err != nil {
			return nil, err
		}
	} else if !pictura.IsErrorCode(err, pictura.ENOTFOUND) {
		return nil, err
	}

	att, err := p.attachments.FindAttachmentByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}

	source, err := p.blobs.Fetch(ctx, att.SourceKey)
	if err != nil {
		return nil, err
	}

	encoded, width, height, err := p.transform(ctx, att, source, spec)
	if err != nil {
		observeGeneration(spec.Name, "error", time.Since(start))
		return nil, err
	}

	contentType := fmt.Sprintf("image/%s", formatOf(att.ContentType))
	if err := p.storeWithRetry(ctx, key, encoded, contentType); err != nil {
		observeGeneration(spec.Name, "error", time.Since(start))
		return nil, err
	}

	v := &pictura.Variant{
		AttachmentID: attachmentID,
		StyleName:    spec.Name,
		StorageKey:   key,
		Width:        width,
		Height:       height,
	}
	if err := p.attachments.CreateVariant(ctx, v); err != nil {
		if pictura.IsErrorCode(err, pictura.ECONFLICT) {
			// Another process generated the same derivative; theirs won.
			existing, findErr := p.attachments.FindVariant(ctx, attachmentID, spec.Name)
			if findErr == nil {
				res := p.resultFor(existing)
				p.results.SetDefault(key, res)
				return res, nil
			}
		}
		// Roll back the stored bytes so no record ever points at bytes
		// that were never fully committed, and vice versa.
		_ = p.blobs.Delete(ctx, key)
		observeGeneration(spec.Name, "error", time.Since(start))
		return nil, err
	}

	observeGeneration(spec.Name, "ok", time.Since(start))
	p.logger.Info("variant generated",
		slog.String("attachment_id", attachmentID.String()),
		slog.String("style", spec.Name),
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Duration("duration", time.Since(start)),
	)

	res := p.resultFor(v)
	p.results.SetDefault(key, res)
	return res, nil
}

// transform runs the CPU-bound decode/normalize/resize/encode section under
// the concurrency semaphore.
func (p *Processor) transform(ctx context.Context, att *pictura.Attachment, source []byte, spec pictura.StyleSpec) ([]byte, int, int, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	}
	defer func() { <-p.sem }()

	img, err := p.codec.Decode(source)
	if err != nil {
		return nil, 0, 0, err
	}

	if att.OriginalWidth == nil || att.OriginalHeight == nil {
		if err := p.attachments.SetOriginalSize(ctx, att.ID, img.Width, img.Height); err != nil {
			return nil, 0, 0, err
		}
	}

	img = p.codec.Normalize(img)
	img = p.codec.Resize(img, spec)

	// Derivatives keep the source format.
	encoded, err := p.codec.Encode(img, img.Format)
	if err != nil {
		return nil, 0, 0, err
	}

	return encoded, img.Width, img.Height, nil
}

// storeWithRetry writes a blob, retrying transient storage failures with
// fibonacci backoff. Safe because writes are idempotent per key.
func (p *Processor) storeWithRetry(ctx context.Context, key string, data []byte, contentType string) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.blobs.Store(ctx, key, data, contentType); err != nil {
			if pictura.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func (p *Processor) resultFor(v *pictura.Variant) *Result {
	return &Result{
		AttachmentID: v.AttachmentID,
		StyleName:    v.StyleName,
		URL:          p.blobs.URL(v.StorageKey),
		Width:        v.Width,
		Height:       v.Height,
	}
}

// formatOf maps a stored content type to its encoding format name.
func formatOf(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	default:
		return "jpeg"
	}
}
