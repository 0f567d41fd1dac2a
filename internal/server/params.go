package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
	"github.com/ironsheep/blueprint-parser/internal/config"
	"github.com/ironsheep/blueprint-parser/internal/imaging"
	"github.com/ironsheep/blueprint-parser/internal/morphology"
)

// Parameter names accepted by the parse routes.
const (
	paramThreshold = "threshold"
	paramErode     = "erodeIterations"
	paramDilate    = "dilateIterations"
	paramFormat    = "format"
)

type params struct {
	threshold float64
	erode     int
	dilate    int
	kernel    *morphology.StructuringElement
	format    imaging.Format
	quality   int
}

// readParams collects the parse parameters from the query string and form,
// falling back to cfg for anything omitted. Range checks beyond syntax are
// left to blueprint.Request.Validate.
func readParams(r *http.Request, cfg *config.Config) (params, error) {
	kernel, err := cfg.Pipeline.Kernel()
	if err != nil {
		return params{}, &blueprint.InvalidParameterError{Field: "kernel", Reason: err.Error()}
	}
	p := params{
		threshold: cfg.Pipeline.Threshold,
		erode:     cfg.Pipeline.ErodeIterations,
		dilate:    cfg.Pipeline.DilateIterations,
		kernel:    kernel,
		quality:   cfg.Output.JPEGQuality,
	}

	if v := formValue(r, paramThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params{}, &blueprint.InvalidParameterError{Field: paramThreshold, Reason: "not a number"}
		}
		p.threshold = f
	}
	if v := formValue(r, paramErode); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params{}, &blueprint.InvalidParameterError{Field: paramErode, Reason: "not an integer"}
		}
		p.erode = n
	}
	if v := formValue(r, paramDilate); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params{}, &blueprint.InvalidParameterError{Field: paramDilate, Reason: "not an integer"}
		}
		p.dilate = n
	}

	format := cfg.Output.Format
	if v := formValue(r, paramFormat); v != "" {
		format = v
	}
	if p.format, err = imaging.ParseFormat(format); err != nil {
		return params{}, &blueprint.InvalidParameterError{Field: paramFormat, Reason: err.Error()}
	}
	return p, nil
}

// formValue is r.FormValue with surrounding whitespace removed. The form is
// parsed on first use; for multipart bodies readUpload has already done so.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
