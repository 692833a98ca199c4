// Package dottest checks that a linear operator's adjoint matches its
// forward: for random u and v, <A u, v> must equal <u, A^H v>.
package dottest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/backend"
)

// ErrMismatch is returned when the two inner products disagree beyond the
// tolerance.
var ErrMismatch = errors.New("dot test failed")

// Operator is a linear operator with an adjoint.
type Operator interface {
	ModelShape() []int
	DataShape() []int
	Matvec(x array.Array) (array.Array, error)
	Rmatvec(y array.Array) (array.Array, error)
}

// Result holds both inner products of a dot test.
type Result struct {
	Backend       string  `json:"backend"`
	Forward       float64 `json:"forward"`
	Adjoint       float64 `json:"adjoint"`
	RelativeError float64 `json:"relativeError"`
	Tolerance     float64 `json:"tolerance"`
	Passed        bool    `json:"passed"`
}

// Run draws the random vectors with the module registered as backendName and
// compares the inner products. A failed comparison returns the filled Result
// together with ErrMismatch.
func Run(r *backend.Resolver, op Operator, backendName string, tol float64, rng *rand.Rand) (Result, error) {
	res := Result{Backend: backendName, Tolerance: tol}

	mod, err := r.Module(backendName)
	if err != nil {
		return res, err
	}
	u, err := mod.RandN(rng, op.ModelShape()...)
	if err != nil {
		return res, fmt.Errorf("failed to draw model vector: %w", err)
	}
	v, err := mod.RandN(rng, op.DataShape()...)
	if err != nil {
		return res, fmt.Errorf("failed to draw data vector: %w", err)
	}

	y, err := op.Matvec(u)
	if err != nil {
		return res, fmt.Errorf("forward: %w", err)
	}
	x, err := op.Rmatvec(v)
	if err != nil {
		return res, fmt.Errorf("adjoint: %w", err)
	}

	if res.Forward, err = r.ArrayModule(y).Dot(y, v); err != nil {
		return res, err
	}
	if res.Adjoint, err = r.ArrayModule(x).Dot(u, x); err != nil {
		return res, err
	}

	res.RelativeError = math.Abs((res.Forward - res.Adjoint) / ((res.Forward + res.Adjoint + 1e-15) / 2))
	res.Passed = res.RelativeError < tol
	if !res.Passed {
		return res, fmt.Errorf("%w: <Au,v>=%g <u,A'v>=%g relative error %g", ErrMismatch, res.Forward, res.Adjoint, res.RelativeError)
	}
	return res, nil
}
