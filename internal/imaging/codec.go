package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/blueprint-parser/internal/raster"
)

var (
	// ErrDecode wraps every failure to turn uploaded bytes into a pixel grid.
	ErrDecode = errors.New("image decode failed")

	// ErrEncode wraps every failure to serialize a mask.
	ErrEncode = errors.New("image encode failed")
)

// Format is an output encoding for masks.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// DefaultJPEGQuality is used when a caller passes a quality outside 1..100.
const DefaultJPEGQuality = 90

// ParseFormat maps a user-supplied name to a Format. The empty string selects
// JPEG, the format the parser has always answered with.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Decode reads an encoded image and converts it to a pixel grid.
//
// Parameters:
//   - r: Encoded image bytes. PNG, JPEG, GIF, BMP and TIFF are accepted.
//   - maxDimension: If positive, images wider or taller than this are scaled
//     down to fit inside a maxDimension square, preserving aspect ratio.
//     Zero keeps the original size.
//
// JPEG EXIF orientation is applied so the grid matches what a viewer shows.
//
// # Errors
//
// All errors wrap ErrDecode.
func Decode(r io.Reader, maxDimension int) (*raster.PixelGrid, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return FromImage(img, maxDimension)
}

// FromImage converts an already decoded image to a pixel grid with
// non-premultiplied channels normalized to [0,1].
func FromImage(img image.Image, maxDimension int) (*raster.PixelGrid, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	// Clone always yields a zero-origin NRGBA copy
	nrgba := imaging.Clone(img)
	width, height := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()

	samples := make([]raster.Color, 0, width*height)
	for y := 0; y < height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		for x := 0; x < width; x++ {
			p := row[x*4 : x*4+4]
			samples = append(samples, raster.Color{
				R: float64(p[0]) / 255.0,
				G: float64(p[1]) / 255.0,
				B: float64(p[2]) / 255.0,
				A: float64(p[3]) / 255.0,
			})
		}
	}

	grid, err := raster.NewPixelGrid(width, height, samples)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return grid, nil
}

// MaskImage renders a mask as a grayscale image: foreground black,
// background white.
func MaskImage(mask *raster.BinaryMask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mask.Width(), mask.Height()))
	for y := 0; y < mask.Height(); y++ {
		for x := 0; x < mask.Width(); x++ {
			if mask.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// EncodeMask writes mask to w in the given format. Quality only applies to
// JPEG; values outside 1..100 fall back to DefaultJPEGQuality.
//
// # Errors
//
// All errors wrap ErrEncode.
func EncodeMask(w io.Writer, mask *raster.BinaryMask, format Format, quality int) error {
	if mask.Width() == 0 || mask.Height() == 0 {
		return fmt.Errorf("%w: mask has zero area", ErrEncode)
	}

	var enc imgio.Encoder
	switch format {
	case JPEG:
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		enc = imgio.JPEGEncoder(quality)
	case PNG:
		enc = imgio.PNGEncoder()
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrEncode, format)
	}

	if err := enc(w, MaskImage(mask)); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}
