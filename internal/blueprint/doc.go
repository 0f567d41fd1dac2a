// Package blueprint turns a decoded blueprint image into a cleaned binary
// mask.
//
// The pipeline has three fixed stages:
//
//  1. Classification: every pixel whose brightness is below the scene
//     average brightness plus a signed threshold becomes foreground.
//  2. Erosion: the mask is eroded ErodeIterations times to remove specks.
//  3. Dilation: the eroded mask is dilated DilateIterations times to restore
//     the surviving line-work.
//
// Erosions always run before dilations; the order is not configurable.
//
// # Results
//
// A Result holds either an Output or an error, never both. Build them with
// Success and Failure.
//
// # Errors
//
//   - ErrInvalidParameter: a Request failed validation. The concrete type is
//     *InvalidParameterError and names the offending field.
//   - ErrProcessing: an accepted Request failed while running. The concrete
//     type is *ProcessingFailure and unwraps to the underlying cause.
package blueprint
