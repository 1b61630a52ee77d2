package embeddings

import "errors"

var (
	// ErrMissingField is returned when the request has no image_url.
	ErrMissingField = errors.New("image_url is required")
	// ErrFetch wraps failures to retrieve the image bytes.
	ErrFetch = errors.New("image fetch failed")
	// ErrDecode wraps bytes that are not a supported image.
	ErrDecode = errors.New("image decode failed")
	// ErrInference wraps encoder runtime failures.
	ErrInference = errors.New("encoder inference failed")
	// ErrNormalization is returned for a zero-norm embedding.
	ErrNormalization = errors.New("embedding has zero norm")
)
