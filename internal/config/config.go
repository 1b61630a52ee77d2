package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the embedding service.
type Config struct {
	// Server
	Port           int           `env:"PORT" envDefault:"8000"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`

	// Model
	ModelName       string `env:"MODEL_NAME" envDefault:"ViT-B-32"`
	ModelPretrained string `env:"MODEL_PRETRAINED" envDefault:"openai"`
	ModelPath       string `env:"MODEL_PATH" envDefault:"models/vit-b-32-openai-visual.onnx"`
	ONNXRuntimeLib  string `env:"ONNXRUNTIME_LIB"`
	ModelInputName  string `env:"MODEL_INPUT_NAME" envDefault:"pixel_values"`
	ModelOutputName string `env:"MODEL_OUTPUT_NAME" envDefault:"image_embeds"`
	EmbeddingDim    int    `env:"EMBEDDING_DIM" envDefault:"512"`
	ImageSize       int    `env:"IMAGE_SIZE" envDefault:"224"`
	IntraOpThreads  int    `env:"INTRA_OP_THREADS" envDefault:"0"`

	// Image fetch. Zero disables the limit.
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"0s"`
	MaxImageBytes int64         `env:"MAX_IMAGE_BYTES" envDefault:"0"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" or "nats"
	QueueURL      string `env:"QUEUE_URL"`
	QueueSubject  string `env:"QUEUE_SUBJECT" envDefault:"embed.image"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// ModelID identifies the encoder weights, e.g. "ViT-B-32/openai".
func (c Config) ModelID() string {
	return c.ModelName + "/" + c.ModelPretrained
}
