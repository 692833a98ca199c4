// Package signal implements the host-side convolution routines the backend
// resolver hands out for CPU arrays: direct, FFT based and overlap-add.
//
// All three accept n-dimensional inputs of equal rank and return identical
// results up to floating point rounding.
package signal

import (
	"fmt"

	"github.com/fxnlabs/arraykit/internal/array"
)

// Convolve computes the direct (sum of products) convolution of in1 and in2.
func Convolve(in1, in2 array.Array, mode Mode) (array.Array, error) {
	a, b, l, err := prepare(in1, in2, mode)
	if err != nil {
		return nil, err
	}

	full, err := array.Zeros(l.Full...)
	if err != nil {
		return nil, err
	}
	fullStrides := array.Strides(l.Full)
	offA := offsets(a.Shape(), fullStrides)
	offB := offsets(b.Shape(), fullStrides)

	out := full.Data()
	da, db := a.Data(), b.Data()
	for i, va := range da {
		if va == 0 {
			continue
		}
		base := offA[i]
		for j, vb := range db {
			out[base+offB[j]] += va * vb
		}
	}
	return crop(full, l), nil
}

// prepare validates the operands and returns them, swapped if valid mode
// requires it, together with the output layout.
func prepare(in1, in2 array.Array, mode Mode) (*array.Dense, *array.Dense, Layout, error) {
	a, ok := in1.(*array.Dense)
	if !ok {
		return nil, nil, Layout{}, fmt.Errorf("%w: in1 is on %s", ErrHostOnly, in1.Device())
	}
	b, ok := in2.(*array.Dense)
	if !ok {
		return nil, nil, Layout{}, fmt.Errorf("%w: in2 is on %s", ErrHostOnly, in2.Device())
	}
	l, err := NewLayout(a.Shape(), b.Shape(), mode)
	if err != nil {
		return nil, nil, Layout{}, err
	}
	if err := array.CheckSize(l.Full, 0); err != nil {
		return nil, nil, Layout{}, err
	}
	if l.Swap {
		a, b = b, a
	}
	return a, b, l, nil
}

// offsets maps every flat index of shape to its flat offset in an array with
// the given strides.
func offsets(shape, strides []int) []int {
	out := make([]int, 0, array.SizeOf(shape))
	forEachIndex(shape, func(idx []int) {
		off := 0
		for d, i := range idx {
			off += i * strides[d]
		}
		out = append(out, off)
	})
	return out
}

// forEachIndex calls fn with every multi-index of shape in row-major order.
// The slice passed to fn is reused between calls.
func forEachIndex(shape []int, fn func(idx []int)) {
	n := array.SizeOf(shape)
	idx := make([]int, len(shape))
	for k := 0; k < n; k++ {
		fn(idx)
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}

// crop extracts the block described by l from the full convolution.
func crop(full *array.Dense, l Layout) *array.Dense {
	if array.SameShape(l.Full, l.Shape) {
		return full
	}
	out, _ := array.Zeros(l.Shape...)
	src := full.Data()
	dst := out.Data()
	strides := array.Strides(l.Full)
	k := 0
	forEachIndex(l.Shape, func(idx []int) {
		off := 0
		for d, i := range idx {
			off += (i + l.Start[d]) * strides[d]
		}
		dst[k] = src[off]
		k++
	})
	return out
}
