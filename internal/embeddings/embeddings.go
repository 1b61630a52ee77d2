package embeddings

import "context"

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Encoder runs the vision tower on one preprocessed image.
// pixels is a CHW tensor for a batch of one; the result is the raw,
// unnormalized feature vector. Implementations must be safe for concurrent use.
type Encoder interface {
	EncodeImage(ctx context.Context, pixels []float32) (Vector, error)
	Dimension() int
}

// ImageEmbedder produces unit-length embeddings for images referenced by URL.
type ImageEmbedder interface {
	Embed(ctx context.Context, imageURL string) (Vector, error)
}
