package imaging

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/blueprint-parser/internal/raster"
)

// RGBAColor represents an RGBA color with 8-bit components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorSummary describes a normalized color in several representations.
//
// It is used to report the scene average color a mask was thresholded
// against:
//   - Hex: "#rrggbb", alpha excluded
//   - RGBA: 8-bit components with alpha
//   - HSL: perceptual view of the same color
//   - Brightness: the (r+g+b)/3 value the classifier compares against
type ColorSummary struct {
	Hex        string    `json:"hex"`
	RGBA       RGBAColor `json:"rgba"`
	HSL        HSLColor  `json:"hsl"`
	Brightness float64   `json:"brightness"`
}

// ColorHex formats the RGB channels of c as "#rrggbb". Channels outside
// [0,1] are clamped.
func ColorHex(c raster.Color) string {
	return toColorful(c).Hex()
}

// Summarize converts a normalized color into a ColorSummary.
func Summarize(c raster.Color) ColorSummary {
	cf := toColorful(c)
	h, s, l := cf.Hsl()
	return ColorSummary{
		Hex: cf.Hex(),
		RGBA: RGBAColor{
			R: to8(cf.R),
			G: to8(cf.G),
			B: to8(cf.B),
			A: to8(clamp01(c.A)),
		},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
		Brightness: c.Brightness(),
	}
}

func toColorful(c raster.Color) colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped()
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
