package morphology

import (
	"errors"
	"fmt"
)

// ErrInvalidKernel is returned when a structuring element has even or
// non-positive dimensions, or ragged rows.
var ErrInvalidKernel = errors.New("invalid structuring element")

// StructuringElement is an immutable odd-sized boolean kernel.
type StructuringElement struct {
	width  int
	height int
	cells  []bool
}

// NewStructuringElement builds a kernel from rows of cells. Every row must
// have the same odd length and the number of rows must be odd.
func NewStructuringElement(rows [][]bool) (*StructuringElement, error) {
	height := len(rows)
	if height == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidKernel)
	}
	width := len(rows[0])
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}

	cells := make([]bool, 0, width*height)
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidKernel, y, len(row), width)
		}
		cells = append(cells, row...)
	}
	return &StructuringElement{width: width, height: height, cells: cells}, nil
}

// Square returns a size x size all-true kernel. Size must be odd and >= 1.
func Square(size int) (*StructuringElement, error) {
	return Rect(size, size)
}

// Rect returns a width x height all-true kernel. Both sides must be odd.
func Rect(width, height int) (*StructuringElement, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	cells := make([]bool, width*height)
	for i := range cells {
		cells[i] = true
	}
	return &StructuringElement{width: width, height: height, cells: cells}, nil
}

// Cross returns a size x size kernel with only the center row and column set
// (4-connected for size 3).
func Cross(size int) (*StructuringElement, error) {
	if err := checkDimensions(size, size); err != nil {
		return nil, err
	}
	c := size / 2
	cells := make([]bool, size*size)
	for i := 0; i < size; i++ {
		cells[c*size+i] = true
		cells[i*size+c] = true
	}
	return &StructuringElement{width: size, height: size, cells: cells}, nil
}

var defaultKernel, _ = Square(3)

// Default returns the shared 3x3 all-true kernel.
func Default() *StructuringElement {
	return defaultKernel
}

func checkDimensions(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: dimensions %dx%d must be at least 1x1", ErrInvalidKernel, width, height)
	}
	if width%2 == 0 || height%2 == 0 {
		return fmt.Errorf("%w: dimensions %dx%d must both be odd", ErrInvalidKernel, width, height)
	}
	return nil
}

// Width returns the number of kernel columns.
func (k *StructuringElement) Width() int { return k.width }

// Height returns the number of kernel rows.
func (k *StructuringElement) Height() int { return k.height }

// Anchor returns the center cell offsets.
func (k *StructuringElement) Anchor() (offsetX, offsetY int) {
	return k.width / 2, k.height / 2
}

// At reports whether kernel cell (kx, ky) is set.
func (k *StructuringElement) At(kx, ky int) bool {
	return k.cells[ky*k.width+kx]
}

// Validate reports whether a kernel value is well formed. A zero-value or
// nil kernel is invalid.
func (k *StructuringElement) Validate() error {
	if k == nil {
		return fmt.Errorf("%w: nil kernel", ErrInvalidKernel)
	}
	if err := checkDimensions(k.width, k.height); err != nil {
		return err
	}
	if len(k.cells) != k.width*k.height {
		return fmt.Errorf("%w: %d cells for %dx%d kernel", ErrInvalidKernel, len(k.cells), k.width, k.height)
	}
	return nil
}

// Full reports whether every kernel cell is set.
func (k *StructuringElement) Full() bool {
	for _, c := range k.cells {
		if !c {
			return false
		}
	}
	return true
}
