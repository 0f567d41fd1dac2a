package blueprint

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/blueprint-parser/internal/morphology"
	"github.com/ironsheep/blueprint-parser/internal/raster"
)

// Pipeline runs classification, erosion and dilation in sequence.
//
// A Pipeline holds nothing but its logger and is safe for concurrent use,
// although the queue only ever runs one request at a time.
type Pipeline struct {
	log zerolog.Logger
}

// NewPipeline returns a pipeline that reports per-stage counts at debug level.
func NewPipeline(logger zerolog.Logger) *Pipeline {
	return &Pipeline{log: logger.With().Str("component", "pipeline").Logger()}
}

// Parse runs req through the pipeline with a silent logger.
func Parse(req Request) (Output, error) {
	return NewPipeline(zerolog.Nop()).Parse(req)
}

// Parse validates req and runs the three stages.
//
// Returns an *InvalidParameterError when req is malformed. The returned mask
// never aliases any intermediate stage.
func (p *Pipeline) Parse(req Request) (Output, error) {
	if err := req.Validate(); err != nil {
		return Output{}, err
	}
	kernel := req.kernel()

	mask, avg := Classify(req.Grid, req.Threshold)
	if mask.Width() != req.Grid.Width() || mask.Height() != req.Grid.Height() {
		return Output{}, fmt.Errorf("classifier produced %dx%d mask for %dx%d image",
			mask.Width(), mask.Height(), req.Grid.Width(), req.Grid.Height())
	}
	if e := p.log.Debug(); e.Enabled() {
		e.Int("width", mask.Width()).
			Int("height", mask.Height()).
			Float64("average_brightness", avg.Brightness()).
			Int("foreground", mask.Count()).
			Msg("classified")
	}

	for i := 0; i < req.ErodeIterations; i++ {
		mask = morphology.Erode(mask, kernel)
		p.trace("eroded", i+1, mask)
	}
	for i := 0; i < req.DilateIterations; i++ {
		mask = morphology.Dilate(mask, kernel)
		p.trace("dilated", i+1, mask)
	}

	return Output{Mask: mask, AverageColor: avg}, nil
}

// trace logs the foreground count after a pass. Counting is skipped unless
// debug logging is on.
func (p *Pipeline) trace(stage string, pass int, mask *raster.BinaryMask) {
	if e := p.log.Debug(); e.Enabled() {
		e.Int("pass", pass).Int("foreground", mask.Count()).Msg(stage)
	}
}
