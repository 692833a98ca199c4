// Package operator holds linear operators written once against the backend
// resolver, so the same operator runs on host or GPU arrays.
package operator

import (
	"fmt"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/fxnlabs/arraykit/internal/signal"
)

// Convolve is the linear operator x -> x * h for a fixed filter h. The
// forward returns the full convolution; the adjoint correlates with h and
// keeps the valid part, which recovers the model shape.
type Convolve struct {
	resolver *backend.Resolver
	method   backend.Method
	model    []int
	data     []int
	h        *array.Dense
	hAdj     *array.Dense
}

// NewConvolve builds the operator for models of shape model. The filter lives
// on the host and is copied to the operand's backend on use.
func NewConvolve(r *backend.Resolver, model []int, h *array.Dense, method backend.Method) (*Convolve, error) {
	hs := h.Shape()
	if len(hs) != len(model) {
		return nil, fmt.Errorf("%w: filter rank %d does not match model rank %d", backend.ErrInvalidArgument, len(hs), len(model))
	}
	if err := array.CheckShape(model, array.SizeOf(model)); err != nil {
		return nil, err
	}
	data := make([]int, len(model))
	for i := range model {
		data[i] = model[i] + hs[i] - 1
	}
	return &Convolve{
		resolver: r,
		method:   method,
		model:    append([]int(nil), model...),
		data:     data,
		h:        h,
		hAdj:     h.Flip(),
	}, nil
}

func (c *Convolve) ModelShape() []int { return append([]int(nil), c.model...) }

func (c *Convolve) DataShape() []int { return append([]int(nil), c.data...) }

// Matvec applies the operator to x.
func (c *Convolve) Matvec(x array.Array) (array.Array, error) {
	if !array.SameShape(x.Shape(), c.model) {
		return nil, fmt.Errorf("%w: model shape %v, expected %v", backend.ErrInvalidArgument, x.Shape(), c.model)
	}
	return c.apply(x, c.h, signal.Full)
}

// Rmatvec applies the adjoint to y.
func (c *Convolve) Rmatvec(y array.Array) (array.Array, error) {
	if !array.SameShape(y.Shape(), c.data) {
		return nil, fmt.Errorf("%w: data shape %v, expected %v", backend.ErrInvalidArgument, y.Shape(), c.data)
	}
	return c.apply(y, c.hAdj, signal.Valid)
}

func (c *Convolve) apply(x array.Array, h *array.Dense, mode signal.Mode) (array.Array, error) {
	filter, err := c.resolver.CoerceLike(x, h)
	if err != nil {
		return nil, err
	}
	convolve, err := c.resolver.Convolution(x, c.method)
	if err != nil {
		return nil, err
	}
	return convolve(x, filter, mode)
}
