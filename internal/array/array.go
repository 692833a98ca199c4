// Package array defines the array values that flow between the backend
// resolver and the array modules it selects.
//
// Every array carries the Device its storage lives on. The resolver uses
// that tag, never the concrete Go type, to decide which module owns a value.
package array

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShape is returned when a shape and a data length disagree or a shape
	// contains a non-positive dimension.
	ErrShape = errors.New("invalid array shape")
	// ErrTooLarge is returned when a shape describes more elements than a
	// limit allows or than an int can count.
	ErrTooLarge = errors.New("array too large")
	// ErrNonFinite is returned when values overflow to Inf or NaN.
	ErrNonFinite = errors.New("array contains non-finite values")
)

// Array is an n-dimensional float64 array in row-major order.
type Array interface {
	// Device reports where the elements are stored.
	Device() Device
	// Shape returns a copy of the dimensions.
	Shape() []int
	// Size is the total number of elements.
	Size() int
}

// Nbytes returns the storage size of x in bytes.
func Nbytes(x Array) int64 {
	return int64(x.Size()) * 8
}

// SizeOf returns the number of elements described by shape. The shape must
// already have passed CheckShape or CheckSize.
func SizeOf(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Strides returns the row-major element strides for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// CheckShape validates shape against a data length.
func CheckShape(shape []int, n int) error {
	if len(shape) == 0 {
		return fmt.Errorf("%w: empty shape", ErrShape)
	}
	for _, d := range shape {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d in %v", ErrShape, d, shape)
		}
	}
	size, ok := product(shape)
	if !ok || size != n {
		return fmt.Errorf("%w: shape %v does not describe %d elements", ErrShape, shape, n)
	}
	return nil
}

// CheckSize returns ErrTooLarge when shape holds more than limit elements.
// A limit of zero or less only guards against int overflow.
func CheckSize(shape []int, limit int) error {
	size, ok := product(shape)
	if !ok {
		return fmt.Errorf("%w: shape %v overflows", ErrTooLarge, shape)
	}
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: shape %v has %d elements, limit is %d", ErrTooLarge, shape, size, limit)
	}
	return nil
}

// product multiplies the positive dimensions of shape, reporting false on
// overflow or a non-positive dimension.
func product(shape []int) (int, bool) {
	n := 1
	for _, d := range shape {
		if d <= 0 || d > math.MaxInt/n {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// SameShape reports whether a and b have identical dimensions.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}
