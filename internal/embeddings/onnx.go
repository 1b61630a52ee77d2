package embeddings

import (
	"context"
	"fmt"
	"slices"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions describes an exported CLIP vision tower.
type ONNXOptions struct {
	ModelPath      string
	LibraryPath    string // optional onnxruntime shared library override
	InputName      string
	OutputName     string
	ImageSize      int
	Dimension      int
	IntraOpThreads int
}

// ONNXEncoder runs a CLIP image encoder through ONNX Runtime. The session is
// created once and shared; each call binds its own input and output tensors,
// so concurrent calls need no locking.
type ONNXEncoder struct {
	session *ort.DynamicAdvancedSession
	size    int
	dim     int
}

// NewONNXEncoder initializes the runtime environment if needed and loads the model.
func NewONNXEncoder(opts ONNXOptions) (*ONNXEncoder, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("model path required")
	}
	if opts.ImageSize <= 0 || opts.Dimension <= 0 {
		return nil, fmt.Errorf("invalid encoder shape: image size %d, dimension %d", opts.ImageSize, opts.Dimension)
	}
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	if err := checkModelIO(opts); err != nil {
		return nil, err
	}

	sessOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer sessOpts.Destroy()
	if opts.IntraOpThreads > 0 {
		if err := sessOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName}, sessOpts)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", opts.ModelPath, err)
	}
	return &ONNXEncoder{session: session, size: opts.ImageSize, dim: opts.Dimension}, nil
}

// checkModelIO fails early when the graph does not expose the configured names
// or its output width disagrees with the configured dimension.
func checkModelIO(opts ONNXOptions) error {
	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return fmt.Errorf("inspect model %s: %w", opts.ModelPath, err)
	}
	if !slices.ContainsFunc(inputs, func(i ort.InputOutputInfo) bool { return i.Name == opts.InputName }) {
		return fmt.Errorf("model has no input %q", opts.InputName)
	}
	idx := slices.IndexFunc(outputs, func(o ort.InputOutputInfo) bool { return o.Name == opts.OutputName })
	if idx < 0 {
		return fmt.Errorf("model has no output %q", opts.OutputName)
	}
	dims := outputs[idx].Dimensions
	if n := len(dims); n > 0 && dims[n-1] > 0 && dims[n-1] != int64(opts.Dimension) {
		return fmt.Errorf("model output %q has width %d, configured %d", opts.OutputName, dims[n-1], opts.Dimension)
	}
	return nil
}

func (e *ONNXEncoder) Dimension() int { return e.dim }

func (e *ONNXEncoder) EncodeImage(ctx context.Context, pixels []float32) (Vector, error) {
	if e == nil || e.session == nil {
		return nil, fmt.Errorf("nil onnx encoder")
	}
	if want := 3 * e.size * e.size; len(pixels) != want {
		return nil, fmt.Errorf("pixel tensor has %d values, want %d", len(pixels), want)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(e.size), int64(e.size)), pixels)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.dim)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, err
	}

	out := make(Vector, e.dim)
	copy(out, output.GetData())
	return out, nil
}

// Close releases the session and the runtime environment.
func (e *ONNXEncoder) Close() error {
	if e == nil || e.session == nil {
		return nil
	}
	if err := e.session.Destroy(); err != nil {
		return err
	}
	e.session = nil
	return ort.DestroyEnvironment()
}
