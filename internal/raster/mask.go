package raster

import (
	"fmt"
	"strings"
)

// BinaryMask is a width x height grid of booleans where true marks a
// foreground (ink) cell.
type BinaryMask struct {
	width  int
	height int
	bits   []bool
}

// NewBinaryMask allocates an all-background mask.
func NewBinaryMask(width, height int) *BinaryMask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &BinaryMask{width: width, height: height, bits: make([]bool, width*height)}
}

// ParseMask builds a mask from rows of '#' (foreground) and '.' (background).
// All rows must have the same length. It is mainly useful for fixtures.
func ParseMask(rows ...string) (*BinaryMask, error) {
	if len(rows) == 0 {
		return NewBinaryMask(0, 0), nil
	}
	width := len(rows[0])
	m := NewBinaryMask(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has length %d, want %d", y, len(row), width)
		}
		for x, ch := range row {
			switch ch {
			case '#':
				m.Set(x, y, true)
			case '.':
			default:
				return nil, fmt.Errorf("row %d: unexpected character %q", y, ch)
			}
		}
	}
	return m, nil
}

// Width returns the number of columns.
func (m *BinaryMask) Width() int { return m.width }

// Height returns the number of rows.
func (m *BinaryMask) Height() int { return m.height }

// In reports whether (x, y) lies inside the mask.
func (m *BinaryMask) In(x, y int) bool {
	return x >= 0 && x < m.width && y >= 0 && y < m.height
}

// At returns the cell at (x, y). Coordinates outside the mask panic.
func (m *BinaryMask) At(x, y int) bool {
	if !m.In(x, y) {
		panic(fmt.Sprintf("raster: cell (%d,%d) outside %dx%d mask", x, y, m.width, m.height))
	}
	return m.bits[y*m.width+x]
}

// Set writes the cell at (x, y). Coordinates outside the mask panic.
func (m *BinaryMask) Set(x, y int, v bool) {
	if !m.In(x, y) {
		panic(fmt.Sprintf("raster: cell (%d,%d) outside %dx%d mask", x, y, m.width, m.height))
	}
	m.bits[y*m.width+x] = v
}

// Count returns the number of foreground cells.
func (m *BinaryMask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (m *BinaryMask) Clone() *BinaryMask {
	bits := make([]bool, len(m.bits))
	copy(bits, m.bits)
	return &BinaryMask{width: m.width, height: m.height, bits: bits}
}

// Equal reports whether both masks have the same dimensions and cells.
func (m *BinaryMask) Equal(o *BinaryMask) bool {
	if m.width != o.width || m.height != o.height {
		return false
	}
	for i := range m.bits {
		if m.bits[i] != o.bits[i] {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every foreground cell of m is also foreground in o.
// Masks of different dimensions are never subsets of each other.
func (m *BinaryMask) SubsetOf(o *BinaryMask) bool {
	if m.width != o.width || m.height != o.height {
		return false
	}
	for i, b := range m.bits {
		if b && !o.bits[i] {
			return false
		}
	}
	return true
}

// String renders the mask with '#' for foreground and '.' for background,
// one line per row.
func (m *BinaryMask) String() string {
	var sb strings.Builder
	for y := 0; y < m.height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < m.width; x++ {
			if m.bits[y*m.width+x] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}
