package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"clip-embed/internal/cache"
	"clip-embed/internal/config"
	"clip-embed/internal/embeddings"
	"clip-embed/internal/fetch"
	"clip-embed/internal/imaging"
	"clip-embed/internal/logger"
	"clip-embed/internal/queue"
	"clip-embed/internal/retry"
)

const (
	connectAttempts = 3
	connectBackoff  = 200 * time.Millisecond
)

// Deps bundles the runtime dependencies of the embedding service.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Embedder embeddings.ImageEmbedder
	Cache    cache.Cache
	Queue    queue.Queue // nil when QUEUE_PROVIDER=none

	closers []io.Closer
}

// Build loads env, config, the encoder and the optional cache and queue.
func Build(ctx context.Context) (Deps, error) {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	deps := Deps{Config: cfg, Log: log}

	encoder, err := buildEncoder(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize encoder: %w", err)
	}
	deps.closers = append(deps.closers, encoder)

	c, err := buildCache(ctx, cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	deps.Cache = c
	deps.closers = append(deps.closers, c)

	q, err := buildQueue(ctx, cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	if q != nil {
		deps.Queue = q
		deps.closers = append(deps.closers, q)
	}

	deps.Embedder = embeddings.NewService(embeddings.ServiceOptions{
		Fetcher: fetch.NewHTTPFetcher(fetch.Options{
			Timeout:  cfg.FetchTimeout,
			MaxBytes: cfg.MaxImageBytes,
		}),
		Encoder:   encoder,
		Transform: imaging.NewCLIPTransform(cfg.ImageSize),
		Cache:     c,
		CacheTTL:  cfg.CacheTTLDuration(),
		ModelID:   cfg.ModelID(),
		Log:       log,
	})
	return deps, nil
}

// Close releases everything Build opened, in reverse order.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildEncoder(cfg config.Config, log *slog.Logger) (*embeddings.ONNXEncoder, error) {
	enc, err := embeddings.NewONNXEncoder(embeddings.ONNXOptions{
		ModelPath:      cfg.ModelPath,
		LibraryPath:    cfg.ONNXRuntimeLib,
		InputName:      cfg.ModelInputName,
		OutputName:     cfg.ModelOutputName,
		ImageSize:      cfg.ImageSize,
		Dimension:      cfg.EmbeddingDim,
		IntraOpThreads: cfg.IntraOpThreads,
	})
	if err != nil {
		return nil, err
	}
	log.Info("loaded image encoder", "model", cfg.ModelID(), "path", cfg.ModelPath, "dim", cfg.EmbeddingDim)
	return enc, nil
}

func buildCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "", "none":
		log.Info("embedding cache disabled")
		return cache.NewNoOpCache(), nil
	case "redis":
		var rc *cache.RedisCache
		err := retry.Do(ctx, connectAttempts, connectBackoff, func(ctx context.Context) error {
			var err error
			rc, err = cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword)
			return err
		})
		if err != nil {
			return nil, err
		}
		log.Info("using Redis cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTLDuration())
		return rc, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

func buildQueue(ctx context.Context, cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "", "none":
		return nil, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		var nc *nats.Conn
		err := retry.Do(ctx, connectAttempts, connectBackoff, func(context.Context) error {
			var err error
			nc, err = nats.Connect(cfg.QueueURL, nats.Name("clip-embed"))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue", "subject", cfg.QueueSubject)
		return queue.NewNATS(log, nc, cfg.QueueSubject), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}
