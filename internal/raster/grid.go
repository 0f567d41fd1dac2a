package raster

import "fmt"

// Color is an RGBA sample with each channel normalized to [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Brightness returns the unweighted mean of the red, green and blue channels.
// Alpha does not take part.
func (c Color) Brightness() float64 {
	return (c.R + c.G + c.B) / 3
}

// String formats the color as "r,g,b,a", the layout used by stored color files.
func (c Color) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", c.R, c.G, c.B, c.A)
}

// PixelGrid is an immutable width x height grid of normalized colors.
type PixelGrid struct {
	width  int
	height int
	pix    []Color
}

// NewPixelGrid builds a grid from row-major samples.
//
// The samples slice is copied, so the caller may reuse it afterwards.
// Returns an error if either dimension is negative or the sample count does
// not equal width*height. A zero-area grid is representable; it is the
// pipeline's job to reject it.
func NewPixelGrid(width, height int, samples []Color) (*PixelGrid, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("grid %dx%d needs %d samples, got %d", width, height, width*height, len(samples))
	}
	pix := make([]Color, len(samples))
	copy(pix, samples)
	return &PixelGrid{width: width, height: height, pix: pix}, nil
}

// UniformGrid builds a grid where every sample is c.
func UniformGrid(width, height int, c Color) *PixelGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	pix := make([]Color, width*height)
	for i := range pix {
		pix[i] = c
	}
	return &PixelGrid{width: width, height: height, pix: pix}
}

// Width returns the number of columns.
func (g *PixelGrid) Width() int { return g.width }

// Height returns the number of rows.
func (g *PixelGrid) Height() int { return g.height }

// Len returns the number of samples.
func (g *PixelGrid) Len() int { return len(g.pix) }

// At returns the sample at (x, y). It panics if the coordinates are outside
// the grid, the same way slice indexing does.
func (g *PixelGrid) At(x, y int) Color {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		panic(fmt.Sprintf("raster: pixel (%d,%d) outside %dx%d grid", x, y, g.width, g.height))
	}
	return g.pix[y*g.width+x]
}

// Samples calls fn for every sample in row-major order.
func (g *PixelGrid) Samples(fn func(x, y int, c Color)) {
	for i, c := range g.pix {
		fn(i%g.width, i/g.width, c)
	}
}
