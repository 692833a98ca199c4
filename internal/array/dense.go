package array

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dense is a host-resident array backed by a contiguous []float64.
type Dense struct {
	shape []int
	data  []float64
}

// New wraps data with the given shape. The slice is not copied.
func New(shape []int, data []float64) (*Dense, error) {
	if err := CheckShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{shape: cloneShape(shape), data: data}, nil
}

// Zeros allocates a zero-filled host array.
func Zeros(shape ...int) (*Dense, error) {
	size, ok := product(shape)
	if !ok || len(shape) == 0 {
		return nil, fmt.Errorf("%w: cannot allocate shape %v", ErrShape, shape)
	}
	return New(shape, make([]float64, size))
}

func (d *Dense) Device() Device { return Host }

func (d *Dense) Shape() []int { return cloneShape(d.shape) }

func (d *Dense) Size() int { return len(d.data) }

// Data returns the backing slice. Writes through it are visible in d.
func (d *Dense) Data() []float64 { return d.data }

// At returns the element at the given multi-index.
func (d *Dense) At(idx ...int) float64 {
	return d.data[d.offset(idx)]
}

// Set stores v at the given multi-index.
func (d *Dense) Set(v float64, idx ...int) {
	d.data[d.offset(idx)] = v
}

func (d *Dense) offset(idx []int) int {
	if len(idx) != len(d.shape) {
		panic(fmt.Sprintf("array: index %v for shape %v", idx, d.shape))
	}
	off := 0
	for i, s := range Strides(d.shape) {
		if idx[i] < 0 || idx[i] >= d.shape[i] {
			panic(fmt.Sprintf("array: index %v out of range for shape %v", idx, d.shape))
		}
		off += idx[i] * s
	}
	return off
}

// Clone returns a deep copy of d.
func (d *Dense) Clone() *Dense {
	data := make([]float64, len(d.data))
	copy(data, d.data)
	return &Dense{shape: cloneShape(d.shape), data: data}
}

// Flip returns a copy of d reversed along every axis.
func (d *Dense) Flip() *Dense {
	out := d.Clone()
	floats.Reverse(out.data)
	return out
}

// IsFinite reports whether every element is neither Inf nor NaN.
func (d *Dense) IsFinite() bool {
	for _, v := range d.data {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// EqualApprox reports whether a and b have the same shape and all elements
// within tol of each other.
func EqualApprox(a, b *Dense, tol float64) bool {
	return SameShape(a.shape, b.shape) && floats.EqualApprox(a.data, b.data, tol)
}
