package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Embedding outcomes recorded in EmbeddingsTotal.
const (
	OutcomeOK       = "ok"
	OutcomeCacheHit = "cache_hit"
	OutcomeInvalid  = "invalid"
	OutcomeFetch    = "fetch_error"
	OutcomeDecode   = "decode_error"
	OutcomeNorm     = "normalization_error"
	OutcomeInfer    = "inference_error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipembed_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipembed_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	EmbeddingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipembed_embeddings_total",
			Help: "Image embedding attempts by outcome",
		},
		[]string{"outcome"},
	)

	// StageDuration covers fetch, decode, preprocess and inference.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipembed_stage_duration_seconds",
			Help:    "Duration of each embedding pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"stage"},
	)
)
