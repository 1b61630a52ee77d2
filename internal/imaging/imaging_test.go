package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Run("jpeg", func(t *testing.T) {
		img, err := Decode(encodeJPEG(t, solid(300, 400, color.RGBA{200, 10, 10, 255})))
		require.NoError(t, err)
		assert.Equal(t, 300, img.Bounds().Dx())
		assert.Equal(t, 400, img.Bounds().Dy())
	})

	t.Run("png alpha is dropped", func(t *testing.T) {
		img, err := Decode(encodePNG(t, solid(4, 4, color.NRGBA{10, 20, 30, 128})))
		require.NoError(t, err)
		px := img.NRGBAAt(1, 1)
		assert.Equal(t, uint8(0xff), px.A)
		assert.InDelta(t, 10, int(px.R), 1)
		assert.InDelta(t, 20, int(px.G), 1)
		assert.InDelta(t, 30, int(px.B), 1)
	})

	t.Run("html is rejected", func(t *testing.T) {
		_, err := Decode([]byte("<!doctype html><html><body>not an image</body></html>"))
		assert.ErrorIs(t, err, image.ErrFormat)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Decode(nil)
		assert.True(t, errors.Is(err, ErrEmpty))
	})

	t.Run("truncated jpeg", func(t *testing.T) {
		data := encodeJPEG(t, solid(64, 64, color.White))
		_, err := Decode(data[:len(data)/2])
		assert.Error(t, err)
	})
}

func TestTransformShape(t *testing.T) {
	tr := NewCLIPTransform(224)
	sizes := [][2]int{{300, 400}, {224, 224}, {1, 1}, {1000, 7}, {33, 517}}
	for _, s := range sizes {
		out := tr.Apply(solid(s[0], s[1], color.Gray{128}))
		assert.Len(t, out, 3*224*224, "size %v", s)
		assert.Equal(t, tr.TensorLen(), len(out))
	}
}

func TestTransformNormalizesChannels(t *testing.T) {
	tr := NewCLIPTransform(8)
	out := tr.Apply(solid(10, 10, color.NRGBA{255, 0, 255, 255}))

	plane := 8 * 8
	want := [3]float64{
		float64((1 - ClipMean[0]) / ClipStd[0]),
		float64((0 - ClipMean[1]) / ClipStd[1]),
		float64((1 - ClipMean[2]) / ClipStd[2]),
	}
	for c := 0; c < 3; c++ {
		for i := 0; i < plane; i++ {
			if math.Abs(float64(out[c*plane+i])-want[c]) > 1e-3 {
				t.Fatalf("channel %d pixel %d: got %f, want %f", c, i, out[c*plane+i], want[c])
			}
		}
	}
}

func TestTransformCentersCrop(t *testing.T) {
	// Three vertical bands; only the middle one survives a center crop.
	img := image.NewNRGBA(image.Rect(0, 0, 300, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 300; x++ {
			c := color.NRGBA{0, 255, 0, 255}
			if x < 100 {
				c = color.NRGBA{255, 0, 0, 255}
			} else if x >= 200 {
				c = color.NRGBA{0, 0, 255, 255}
			}
			img.Set(x, y, c)
		}
	}

	tr := NewCLIPTransform(16)
	out := tr.Apply(img)
	plane := 16 * 16
	red := (0 - ClipMean[0]) / ClipStd[0]
	green := (1 - ClipMean[1]) / ClipStd[1]
	for i := 0; i < plane; i++ {
		assert.InDelta(t, red, out[i], 1e-3)
		assert.InDelta(t, green, out[plane+i], 1e-3)
	}
}

func TestCenterSquare(t *testing.T) {
	assert.Equal(t, image.Rect(0, 50, 300, 350), centerSquare(image.Rect(0, 0, 300, 400)))
	assert.Equal(t, image.Rect(15, 10, 25, 20), centerSquare(image.Rect(10, 10, 30, 20)))
}
