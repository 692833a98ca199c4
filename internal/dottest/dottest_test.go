package dottest

import (
	"math/rand"
	"testing"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/fxnlabs/arraykit/internal/operator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Convolve(t *testing.T) {
	r := backend.New(backend.NewCPUModule(), nil, nil)
	rng := rand.New(rand.NewSource(11))

	testCases := []struct {
		name   string
		model  []int
		filter []int
	}{
		{name: "1-D", model: []int{200}, filter: []int{21}},
		{name: "2-D", model: []int{30, 20}, filter: []int{5, 3}},
		{name: "long filter", model: []int{16}, filter: []int{40}},
	}

	for _, tc := range testCases {
		for _, method := range []backend.Method{backend.Direct, backend.FFT, backend.OverlapAdd} {
			t.Run(tc.name+"/"+method.String(), func(t *testing.T) {
				h, err := array.Zeros(tc.filter...)
				require.NoError(t, err)
				for i := range h.Data() {
					h.Data()[i] = rng.NormFloat64()
				}
				op, err := operator.NewConvolve(r, tc.model, h, method)
				require.NoError(t, err)

				res, err := Run(r, op, backend.NameCPU, 1e-8, rng)
				require.NoError(t, err)
				assert.True(t, res.Passed)
				assert.Equal(t, backend.NameCPU, res.Backend)
				assert.InEpsilon(t, res.Forward, res.Adjoint, 1e-8)
			})
		}
	}
}

// brokenOperator returns a forward with the wrong scale.
type brokenOperator struct {
	*operator.Convolve
}

func (b brokenOperator) Matvec(x array.Array) (array.Array, error) {
	y, err := b.Convolve.Matvec(x)
	if err != nil {
		return nil, err
	}
	d := y.(*array.Dense)
	for i := range d.Data() {
		d.Data()[i] *= 2
	}
	return d, nil
}

func TestRun_DetectsWrongAdjoint(t *testing.T) {
	r := backend.New(backend.NewCPUModule(), nil, nil)
	h, err := array.New([]int{3}, []float64{1, 2, 3})
	require.NoError(t, err)
	op, err := operator.NewConvolve(r, []int{50}, h, backend.Direct)
	require.NoError(t, err)

	res, err := Run(r, brokenOperator{op}, backend.NameCPU, 1e-6, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrMismatch)
	assert.False(t, res.Passed)
	assert.Greater(t, res.RelativeError, 0.1)
}

func TestRun_UnknownBackend(t *testing.T) {
	r := backend.New(backend.NewCPUModule(), nil, nil)
	h, err := array.New([]int{1}, []float64{1})
	require.NoError(t, err)
	op, err := operator.NewConvolve(r, []int{4}, h, backend.Direct)
	require.NoError(t, err)

	_, err = Run(r, op, "tpu", 1e-6, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, backend.ErrInvalidArgument)

	_, err = Run(r, op, backend.NameGPU, 1e-6, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, backend.ErrMissingDependency)
}

func TestConvolution(t *testing.T) {
	r := backend.New(backend.NewCPUModule(), nil, nil)

	testCases := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{name: "defaults", params: Params{Tolerance: 1e-8, Seed: 3}},
		{name: "fft", params: Params{Method: "fft", N: 50, Taps: 7, Tolerance: 1e-8, Seed: 4}},
		{name: "overlap-add", params: Params{Backend: "numpy", Method: "overlap_add", N: 300, Taps: 31, Tolerance: 1e-8, Seed: 5}},
		{name: "unknown method", params: Params{Method: "winograd"}, wantErr: backend.ErrInvalidArgument},
		{name: "negative size", params: Params{N: -1}, wantErr: backend.ErrInvalidArgument},
		{name: "gpu absent", params: Params{Backend: "cupy", Seed: 1}, wantErr: backend.ErrMissingDependency},
		{name: "n beyond int allocation", params: Params{N: 1 << 50, Taps: 3}, wantErr: array.ErrTooLarge},
		{name: "n above default limit", params: Params{N: 1e10}, wantErr: backend.ErrInvalidArgument},
		{name: "data above explicit limit", params: Params{N: 100, Taps: 2, MaxElements: 100}, wantErr: array.ErrTooLarge},
		{name: "at explicit limit", params: Params{N: 99, Taps: 2, MaxElements: 100, Tolerance: 1e-8, Seed: 6}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Convolution(r, tc.params)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Passed)
		})
	}
}
