package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores normalized embeddings keyed by model and image URL.
type Cache interface {
	// GetEmbedding retrieves a cached embedding by key.
	// Returns nil if not found.
	GetEmbedding(ctx context.Context, key string) ([]float32, error)

	// SetEmbedding stores an embedding with TTL
	SetEmbedding(ctx context.Context, key string, vec []float32, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Key derives a cache key from the model identifier and the image URL.
func Key(modelID, imageURL string) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(imageURL))
	return hex.EncodeToString(h.Sum(nil))
}
