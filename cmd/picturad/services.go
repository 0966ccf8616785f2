package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomreid/pictura"
	"github.com/tomreid/pictura/internal/codec"
	"github.com/tomreid/pictura/internal/queue"
	"github.com/tomreid/pictura/internal/storage"
	"github.com/tomreid/pictura/internal/variant"
	"github.com/tomreid/pictura/postgres"
)

// Services holds all application services.
type Services struct {
	AttachmentService pictura.AttachmentService
	BlobStorage       pictura.BlobStorage
	Styles            *pictura.StyleRegistry
	Processor         *variant.Processor
	Queue             queue.Queue
	Workers           *queue.WorkerPool
}

// initServices initializes all application services.
func initServices(ctx context.Context, pool *pgxpool.Pool, cfg *Config, logger *slog.Logger) (*Services, error) {
	db := postgres.NewDB(pool)
	logger.Info("database services initialized")

	blobs, err := initBlobStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("blob storage initialized", slog.String("provider", cfg.StorageProvider))

	styles, err := initStyles(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("style registry published",
		slog.Int("styles", len(cfg.Styles)),
		slog.String("default", cfg.DefaultStyle),
	)

	processor := variant.NewProcessor(db.AttachmentService, blobs, codec.New(), styles, logger, variant.Config{
		AllowedMediaTypes: cfg.AllowedMediaTypes,
		MaxConcurrent:     cfg.MaxConcurrent,
		ResultTTL:         cfg.ResultTTL,
	})

	queueCfg := queue.Config{
		WorkerCount:     cfg.QueueWorkerCount,
		PollInterval:    cfg.QueuePollInterval,
		JobTimeout:      cfg.QueueJobTimeout,
		ShutdownTimeout: cfg.QueueShutdownTimeout,
	}
	q := queue.NewPostgresQueue(pool, logger, queueCfg)
	logger.Info("queue service initialized")

	workers := queue.NewWorkerPool(q, logger, queueCfg)
	workers.RegisterHandler(queue.GenerateVariantsJobType, generateVariantsHandler(processor))

	return &Services{
		AttachmentService: db.AttachmentService,
		BlobStorage:       blobs,
		Styles:            styles,
		Processor:         processor,
		Queue:             q,
		Workers:           workers,
	}, nil
}

// initBlobStorage creates the appropriate blob storage implementation.
func initBlobStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (pictura.BlobStorage, error) {
	logger.Debug("storage configuration",
		slog.String("provider", cfg.StorageProvider),
		slog.String("local_path", cfg.StorageLocalPath),
		slog.String("s3_bucket", cfg.StorageS3Bucket),
		slog.String("s3_region", cfg.StorageS3Region))

	storageCfg := pictura.StorageConfig{
		Provider:  cfg.StorageProvider,
		LocalPath: cfg.StorageLocalPath,
		LocalURL:  cfg.StorageLocalURL,
		S3Bucket:  cfg.StorageS3Bucket,
		S3Region:  cfg.StorageS3Region,
		S3BaseURL: cfg.StorageS3BaseURL,
	}

	return storage.NewBlobStorage(ctx, logger, storageCfg)
}

// initStyles builds and publishes the style registry from configuration.
func initStyles(cfg *Config) (*pictura.StyleRegistry, error) {
	registry := pictura.NewStyleRegistry()
	if err := registry.Replace(cfg.Styles, cfg.DefaultStyle); err != nil {
		return nil, fmt.Errorf("publishing styles: %w", err)
	}
	return registry, nil
}

// generateVariantsHandler produces every registered style for the job's
// attachment. Attachments deleted before the job runs are treated as done.
func generateVariantsHandler(processor *variant.Processor) queue.JobHandler {
	return func(ctx context.Context, job *queue.Job) (map[string]interface{}, error) {
		results, err := processor.ProcessAll(ctx, job.AttachmentID)
		if err != nil {
			if pictura.ErrorCode(err) == pictura.ENOTFOUND {
				return map[string]interface{}{"skipped": "attachment deleted"}, nil
			}
			return nil, err
		}

		generated := make([]string, 0, len(results))
		for _, r := range results {
			generated = append(generated, r.StyleName)
		}
		return map[string]interface{}{"styles": generated}, nil
	}
}
