package blueprint

import (
	"math"

	"github.com/ironsheep/blueprint-parser/internal/morphology"
	"github.com/ironsheep/blueprint-parser/internal/raster"
)

// Default request parameters.
const (
	DefaultThreshold        = -0.1
	DefaultErodeIterations  = 2
	DefaultDilateIterations = 2
)

// Request is one unit of pipeline input.
type Request struct {
	// Grid is the decoded image. It must have positive dimensions.
	Grid *raster.PixelGrid

	// Threshold biases the cutoff relative to the scene's average brightness.
	// Negative values mark fewer pixels as foreground, positive values more.
	Threshold float64

	// ErodeIterations is the number of erosion passes (>= 0).
	ErodeIterations int

	// DilateIterations is the number of dilation passes (>= 0).
	DilateIterations int

	// Kernel is the structuring element for both operations.
	// Nil selects morphology.Default().
	Kernel *morphology.StructuringElement
}

// NewRequest returns a request for grid with the default parameters.
func NewRequest(grid *raster.PixelGrid) Request {
	return Request{
		Grid:             grid,
		Threshold:        DefaultThreshold,
		ErodeIterations:  DefaultErodeIterations,
		DilateIterations: DefaultDilateIterations,
	}
}

// Validate checks every field and returns the first *InvalidParameterError.
func (r Request) Validate() error {
	if r.Grid == nil {
		return &InvalidParameterError{Field: "grid", Reason: "no image"}
	}
	if r.Grid.Width() <= 0 || r.Grid.Height() <= 0 {
		return &InvalidParameterError{Field: "grid", Reason: "image has zero area"}
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return &InvalidParameterError{Field: "threshold", Reason: "must be a finite number"}
	}
	if r.ErodeIterations < 0 {
		return &InvalidParameterError{Field: "erodeIterations", Reason: "must not be negative"}
	}
	if r.DilateIterations < 0 {
		return &InvalidParameterError{Field: "dilateIterations", Reason: "must not be negative"}
	}
	if r.Kernel != nil {
		if err := r.Kernel.Validate(); err != nil {
			return &InvalidParameterError{Field: "kernel", Reason: err.Error()}
		}
	}
	return nil
}

func (r Request) kernel() *morphology.StructuringElement {
	if r.Kernel == nil {
		return morphology.Default()
	}
	return r.Kernel
}

// Output is the successful product of one pipeline run.
type Output struct {
	// Mask is the cleaned binary mask, same dimensions as the input grid.
	Mask *raster.BinaryMask

	// AverageColor is the scene mean color the threshold was measured against.
	AverageColor raster.Color
}

// Result is either an Output or an error.
type Result struct {
	output Output
	err    error
}

// Success wraps a finished output.
func Success(out Output) Result {
	return Result{output: out}
}

// Failure wraps an error. A nil err is replaced with a generic processing
// failure so a failed Result always carries one.
func Failure(err error) Result {
	if err == nil {
		err = &ProcessingFailure{Cause: ErrProcessing}
	}
	return Result{err: err}
}

// OK reports whether the result holds an output.
func (r Result) OK() bool { return r.err == nil }

// Err returns the failure, or nil on success.
func (r Result) Err() error { return r.err }

// Output returns the output and the failure. Exactly one is meaningful.
func (r Result) Output() (Output, error) {
	if r.err != nil {
		return Output{}, r.err
	}
	return r.output, nil
}
