package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clip-embed/internal/cache"
	"clip-embed/internal/fetch"
	"clip-embed/internal/imaging"
	"clip-embed/internal/metrics"
)

// ServiceOptions wires the collaborators of the embedding pipeline.
type ServiceOptions struct {
	Fetcher   fetch.Fetcher
	Encoder   Encoder
	Transform imaging.Transform
	Cache     cache.Cache // nil disables caching
	CacheTTL  time.Duration
	ModelID   string
	Log       *slog.Logger
}

// Service is the image embedding pipeline: fetch, decode, preprocess, encode, normalize.
// It holds no per-request state.
type Service struct {
	fetcher   fetch.Fetcher
	encoder   Encoder
	transform imaging.Transform
	cache     cache.Cache
	cacheTTL  time.Duration
	modelID   string
	log       *slog.Logger
}

func NewService(opts ServiceOptions) *Service {
	c := opts.Cache
	if c == nil {
		c = cache.NewNoOpCache()
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		fetcher:   opts.Fetcher,
		encoder:   opts.Encoder,
		transform: opts.Transform,
		cache:     c,
		cacheTTL:  opts.CacheTTL,
		modelID:   opts.ModelID,
		log:       log,
	}
}

// Embed returns the unit-length embedding of the image at imageURL.
// Errors wrap one of ErrMissingField, ErrFetch, ErrDecode, ErrInference or ErrNormalization.
func (s *Service) Embed(ctx context.Context, imageURL string) (Vector, error) {
	vec, outcome, err := s.embed(ctx, imageURL)
	metrics.EmbeddingsTotal.WithLabelValues(outcome).Inc()
	return vec, err
}

func (s *Service) embed(ctx context.Context, imageURL string) (Vector, string, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, metrics.OutcomeInvalid, ErrMissingField
	}

	key := cache.Key(s.modelID, imageURL)
	if vec := s.cached(ctx, key); vec != nil {
		return vec, metrics.OutcomeCacheHit, nil
	}

	start := time.Now()
	data, err := s.fetcher.Fetch(ctx, imageURL)
	observe("fetch", start)
	if err != nil {
		return nil, metrics.OutcomeFetch, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	start = time.Now()
	img, err := imaging.Decode(data)
	observe("decode", start)
	if err != nil {
		return nil, metrics.OutcomeDecode, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	start = time.Now()
	pixels := s.transform.Apply(img)
	observe("preprocess", start)

	start = time.Now()
	raw, err := s.encoder.EncodeImage(ctx, pixels)
	observe("inference", start)
	if err != nil {
		return nil, metrics.OutcomeInfer, fmt.Errorf("%w: %w", ErrInference, err)
	}

	vec, err := Normalize(raw)
	if err != nil {
		return nil, metrics.OutcomeNorm, err
	}

	if err := s.cache.SetEmbedding(ctx, key, vec, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache embedding", "err", err, "image_url", imageURL)
	}
	return vec, metrics.OutcomeOK, nil
}

func (s *Service) cached(ctx context.Context, key string) Vector {
	vals, err := s.cache.GetEmbedding(ctx, key)
	if err != nil {
		s.log.Warn("cache read failed", "err", err)
		return nil
	}
	if vals == nil {
		return nil
	}
	if s.encoder != nil && len(vals) != s.encoder.Dimension() {
		s.log.Warn("ignoring cached embedding with wrong dimension", "got", len(vals), "want", s.encoder.Dimension())
		return nil
	}
	if !isUnit(vals) {
		s.log.Warn("ignoring cached embedding that is not unit length", "norm", Norm(vals))
		return nil
	}
	return Vector(vals)
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

