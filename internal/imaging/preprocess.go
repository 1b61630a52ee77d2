package imaging

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// CLIP pixel statistics used by the OpenAI checkpoints.
var (
	ClipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	ClipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// Transform resizes the shortest side to Size with a bicubic kernel, center
// crops to Size x Size and normalizes each channel with Mean and Std.
type Transform struct {
	Size int
	Mean [3]float32
	Std  [3]float32
}

// NewCLIPTransform returns the standard CLIP eval transform for the given resolution.
func NewCLIPTransform(size int) Transform {
	return Transform{Size: size, Mean: ClipMean, Std: ClipStd}
}

// TensorLen is the number of values Apply produces.
func (t Transform) TensorLen() int {
	return 3 * t.Size * t.Size
}

// Apply returns a float32 tensor in CHW order, ready to be used as a batch of one.
func (t Transform) Apply(img image.Image) []float32 {
	crop := centerSquare(img.Bounds())
	dst := image.NewNRGBA(image.Rect(0, 0, t.Size, t.Size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, xdraw.Src, nil)

	plane := t.Size * t.Size
	out := make([]float32, 3*plane)
	for y := 0; y < t.Size; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < t.Size; x++ {
			px := row[x*4 : x*4+3]
			i := y*t.Size + x
			for c := 0; c < 3; c++ {
				v := float32(px[c]) / 255
				out[c*plane+i] = (v - t.Mean[c]) / t.Std[c]
			}
		}
	}
	return out
}

// centerSquare is the source region that survives a shortest-side resize
// followed by a center crop.
func centerSquare(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	s := min(w, h)
	x0 := b.Min.X + (w-s)/2
	y0 := b.Min.Y + (h-s)/2
	return image.Rect(x0, y0, x0+s, y0+s)
}
