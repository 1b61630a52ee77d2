package embeddings

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEmbedder is a mock implementation of ImageEmbedder using testify/mock.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, imageURL string) (Vector, error) {
	args := m.Called(ctx, imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Vector), args.Error(1)
}

// MockEncoder is a mock implementation of Encoder using testify/mock.
type MockEncoder struct {
	mock.Mock
}

func (m *MockEncoder) EncodeImage(ctx context.Context, pixels []float32) (Vector, error) {
	args := m.Called(ctx, pixels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Vector), args.Error(1)
}

func (m *MockEncoder) Dimension() int {
	args := m.Called()
	return args.Int(0)
}
