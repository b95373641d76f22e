package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"photo-studio-backend/internal/config"
	"photo-studio-backend/internal/proxy"
	"photo-studio-backend/internal/storage"
	"photo-studio-backend/internal/supabase"
	"photo-studio-backend/internal/workflow"
)

// NewUploader builds the object storage backend selected by STORAGE_BACKEND.
// sb may be nil; a standalone storage client is created then.
func NewUploader(ctx context.Context, cfg *config.Config, sb *supabase.Client) (storage.Uploader, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Options{
			Bucket:      cfg.S3Bucket,
			Region:      cfg.S3Region,
			EndpointURL: cfg.S3EndpointURL,
			AccessKey:   cfg.S3AccessKey,
			SecretKey:   cfg.S3SecretKey,
			PublicURL:   cfg.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return uploader, nil
	case config.StorageBackendSupabase:
		if sb != nil {
			return supabase.NewStorageClient(sb, cfg.SupabaseStorageBucket), nil
		}
		return supabase.NewStandaloneStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// NewEngine wires the job proxy client and the poll policy from cfg.
func NewEngine(cfg *config.Config, uploader storage.Uploader, logger zerolog.Logger) *workflow.Engine {
	client := proxy.NewClient(proxy.Options{
		BaseURL: cfg.ProxyBaseURL,
		Timeout: cfg.RequestTimeout,
	})
	return workflow.NewEngine(uploader, client,
		workflow.WithPollPolicy(workflow.PollPolicy{
			MaxAttempts: cfg.PollMaxAttempts,
			Interval:    cfg.PollInterval,
		}),
		workflow.WithObjectPrefix(cfg.StoragePrefix),
		workflow.WithLogger(logger.With().Str("component", "workflow").Logger()),
	)
}
