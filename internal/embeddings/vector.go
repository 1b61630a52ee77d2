package embeddings

import (
	"math"

	"gonum.org/v1/gonum/blas/gonum"
)

var blas = gonum.Implementation{}

// Norm returns the Euclidean length of v.
func Norm(v Vector) float64 {
	if len(v) == 0 {
		return 0
	}
	return float64(blas.Snrm2(len(v), v, 1))
}

// Normalize returns a copy of v scaled to unit length. It fails with
// ErrNormalization when the norm is zero or not finite, or when it is too
// small to invert in float32.
func Normalize(v Vector) (Vector, error) {
	n := Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, ErrNormalization
	}
	scale := float32(1 / n)
	if math.IsInf(float64(scale), 0) {
		return nil, ErrNormalization
	}
	out := make(Vector, len(v))
	copy(out, v)
	blas.Sscal(len(out), scale, out, 1)
	if !isUnit(out) {
		return nil, ErrNormalization
	}
	return out, nil
}

// unitTolerance bounds float32 rounding in a freshly normalized vector.
const unitTolerance = 1e-4

func isUnit(v Vector) bool {
	n := Norm(v)
	return !math.IsNaN(n) && math.Abs(n-1) < unitTolerance
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Empty, mismatched or zero vectors score 0.
func CosineSimilarity(a, b Vector) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	dot := float64(blas.Sdot(len(a), a, 1, b, 1))
	return float32(dot / (na * nb))
}
