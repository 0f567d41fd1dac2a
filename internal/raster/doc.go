// Package raster defines the in-memory pixel and mask grids shared by the
// blueprint pipeline.
//
// # Coordinate System
//
// Both grid types are stored row-major with (0,0) at the top-left corner:
//   - X: horizontal position (0 = leftmost column)
//   - Y: vertical position (0 = topmost row)
//
// # Ownership
//
// A PixelGrid is immutable once built. A BinaryMask is mutable only while the
// stage that allocated it is filling it in; every pipeline stage returns a
// fresh mask and never writes into its input.
package raster
