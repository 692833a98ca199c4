package dottest

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/fxnlabs/arraykit/internal/config"
	"github.com/fxnlabs/arraykit/internal/operator"
)

// Params describes a dot test of the 1-D convolution operator.
type Params struct {
	Backend   string  `json:"backend"`
	Method    string  `json:"method"`
	N         int     `json:"n"`
	Taps      int     `json:"taps"`
	Tolerance float64 `json:"tol"`
	Seed      int64   `json:"seed"`
	// MaxElements bounds N+Taps-1, the length of the data vector. Zero
	// means config.DefaultMaxElements.
	MaxElements int `json:"-"`
}

const (
	defaultN    = 128
	defaultTaps = 9
)

// Convolution builds a convolution operator with a random filter of p.Taps
// coefficients and dot-tests it on p.Backend. A zero seed draws one from the
// clock.
func Convolution(r *backend.Resolver, p Params) (Result, error) {
	if p.Backend == "" {
		p.Backend = backend.NameCPU
	}
	if p.N == 0 {
		p.N = defaultN
	}
	if p.Taps == 0 {
		p.Taps = defaultTaps
	}
	if p.MaxElements <= 0 {
		p.MaxElements = config.DefaultMaxElements
	}
	if p.N < 0 || p.Taps < 0 {
		return Result{Backend: p.Backend, Tolerance: p.Tolerance}, fmt.Errorf("%w: n and taps must be positive", backend.ErrInvalidArgument)
	}
	if p.N > p.MaxElements || p.Taps > p.MaxElements || p.N+p.Taps-1 > p.MaxElements {
		return Result{Backend: p.Backend, Tolerance: p.Tolerance}, fmt.Errorf("%w: %w: n=%d taps=%d, limit is %d elements",
			backend.ErrInvalidArgument, array.ErrTooLarge, p.N, p.Taps, p.MaxElements)
	}
	method, err := backend.ParseMethod(p.Method)
	if err != nil {
		return Result{Backend: p.Backend, Tolerance: p.Tolerance}, err
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	h, err := array.Zeros(p.Taps)
	if err != nil {
		return Result{}, err
	}
	for i := range h.Data() {
		h.Data()[i] = rng.NormFloat64()
	}
	op, err := operator.NewConvolve(r, []int{p.N}, h, method)
	if err != nil {
		return Result{}, err
	}
	return Run(r, op, p.Backend, p.Tolerance, rng)
}
