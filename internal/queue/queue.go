package queue

import (
	"context"

	"github.com/google/uuid"
)

// Request asks for the embedding of one image.
type Request struct {
	ID       uuid.UUID `json:"id"`
	ImageURL string    `json:"image_url"`
}

// Reply carries either an embedding or an error status text, never both.
type Reply struct {
	ID        uuid.UUID `json:"id"`
	Embedding []float32 `json:"embedding,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Handler answers one request.
type Handler func(context.Context, Request) Reply

// Queue serves embedding requests arriving over a message bus.
type Queue interface {
	// Serve blocks, answering requests until ctx is done.
	Serve(ctx context.Context, handler Handler) error
	Close() error
}
