package morphology

import "github.com/ironsheep/blueprint-parser/internal/raster"

// Erode performs one erosion pass.
//
// A cell of the result is foreground only when every set kernel cell that
// lands inside the mask covers a foreground cell. Kernel cells that land
// outside the mask are skipped.
func Erode(mask *raster.BinaryMask, kernel *StructuringElement) *raster.BinaryMask {
	return apply(mask, kernel, true)
}

// Dilate performs one dilation pass.
//
// A cell of the result is foreground when at least one set kernel cell that
// lands inside the mask covers a foreground cell.
func Dilate(mask *raster.BinaryMask, kernel *StructuringElement) *raster.BinaryMask {
	return apply(mask, kernel, false)
}

// ErodeN applies n erosion passes, each reading the previous pass's output.
// n <= 0 returns an independent copy of mask.
func ErodeN(mask *raster.BinaryMask, kernel *StructuringElement, n int) *raster.BinaryMask {
	return iterate(mask, kernel, n, Erode)
}

// DilateN applies n dilation passes, each reading the previous pass's output.
// n <= 0 returns an independent copy of mask.
func DilateN(mask *raster.BinaryMask, kernel *StructuringElement, n int) *raster.BinaryMask {
	return iterate(mask, kernel, n, Dilate)
}

func iterate(mask *raster.BinaryMask, kernel *StructuringElement, n int,
	pass func(*raster.BinaryMask, *StructuringElement) *raster.BinaryMask) *raster.BinaryMask {
	if n <= 0 {
		return mask.Clone()
	}
	out := mask
	for i := 0; i < n; i++ {
		out = pass(out, kernel)
	}
	return out
}

// apply runs a single pass. With erode set, any in-bounds background
// neighbour clears the cell; otherwise any in-bounds foreground neighbour
// sets it.
func apply(mask *raster.BinaryMask, kernel *StructuringElement, erode bool) *raster.BinaryMask {
	width, height := mask.Width(), mask.Height()
	out := raster.NewBinaryMask(width, height)
	offsetX, offsetY := kernel.Anchor()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Erosion starts from foreground and looks for a background
			// witness; dilation starts from background and looks for a
			// foreground witness.
			result := erode
		scan:
			for ky := 0; ky < kernel.Height(); ky++ {
				my := y + ky - offsetY
				if my < 0 || my >= height {
					continue
				}
				for kx := 0; kx < kernel.Width(); kx++ {
					if !kernel.At(kx, ky) {
						continue
					}
					mx := x + kx - offsetX
					if mx < 0 || mx >= width {
						continue
					}
					if mask.At(mx, my) != erode {
						result = !erode
						break scan
					}
				}
			}
			if result {
				out.Set(x, y, true)
			}
		}
	}
	return out
}
