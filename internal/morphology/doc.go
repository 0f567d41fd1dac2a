// Package morphology implements binary erosion and dilation over
// raster.BinaryMask values.
//
// # Structuring Elements
//
// A StructuringElement is an odd-by-odd boolean grid anchored at its center
// cell (width/2, height/2). Only cells set to true take part in an operation.
// The default element is a 3x3 all-true square (8-connected neighbourhood).
//
// # Border Handling
//
// Kernel cells that fall outside the mask are ignored by both operations:
//   - Erosion: an out-of-bounds neighbour never forces a cell to background,
//     so a fully foreground mask stays fully foreground at its borders.
//   - Dilation: an out-of-bounds neighbour never contributes foreground.
//
// This differs from the textbook convention of padding with background, which
// shrinks erosion results along the image border.
//
// # Purity
//
// Every pass reads only its input and writes a freshly allocated mask, so
// results never depend on the scan order. All functions are safe for
// concurrent use.
package morphology
