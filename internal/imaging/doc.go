// Package imaging is the codec boundary of the blueprint parser.
//
// It converts uploaded image bytes into raster.PixelGrid values and renders
// raster.BinaryMask results back into JPEG or PNG bytes. It also formats the
// scene average color that accompanies every mask.
//
// # Coordinate System
//
// Grids and masks use the standard image convention: (0,0) is the top-left
// corner, X increases rightward and Y increases downward. Decoded JPEGs are
// rotated according to their EXIF orientation first.
//
// # Color Representation
//
// Pixel grids hold non-premultiplied channels normalized to [0,1]. Summaries
// are reported as:
//   - Hex: 6-character format "#rrggbb" (alpha excluded)
//   - RGBA: 8-bit components with alpha (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// # Mask Rendering
//
// Foreground cells are drawn black (0) and background cells white (255) on
// an 8-bit grayscale image.
//
// # Error Handling
//
// Decoding failures wrap ErrDecode and encoding failures wrap ErrEncode, so
// the transport layer can tell a bad upload from a server fault with
// errors.Is.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package imaging
