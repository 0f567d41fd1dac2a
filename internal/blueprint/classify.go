package blueprint

import "github.com/ironsheep/blueprint-parser/internal/raster"

// AverageColor returns the per-channel arithmetic mean of every sample.
// An empty grid yields the zero color.
func AverageColor(grid *raster.PixelGrid) raster.Color {
	n := grid.Len()
	if n == 0 {
		return raster.Color{}
	}

	var sum raster.Color
	grid.Samples(func(_, _ int, c raster.Color) {
		sum.R += c.R
		sum.G += c.G
		sum.B += c.B
		sum.A += c.A
	})

	count := float64(n)
	return raster.Color{
		R: sum.R / count,
		G: sum.G / count,
		B: sum.B / count,
		A: sum.A / count,
	}
}

// Classify binarizes grid against its own average brightness.
//
// A pixel becomes foreground when
//
//	brightness < averageBrightness + threshold
//
// with brightness = (r+g+b)/3. Threshold is a signed bias, not an absolute
// cutoff, so a uniform image with threshold 0 is entirely background.
//
// Classify also returns the average color it measured against.
func Classify(grid *raster.PixelGrid, threshold float64) (*raster.BinaryMask, raster.Color) {
	avg := AverageColor(grid)
	cutoff := avg.Brightness() + threshold

	mask := raster.NewBinaryMask(grid.Width(), grid.Height())
	grid.Samples(func(x, y int, c raster.Color) {
		if c.Brightness() < cutoff {
			mask.Set(x, y, true)
		}
	})
	return mask, avg
}
