//go:build cuda
// +build cuda

package gpu

import (
	"math/rand"
	"testing"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openOrSkip(t *testing.T) *Context {
	t.Helper()
	ctx, err := Open(0, zap.NewNop())
	if err != nil {
		t.Skipf("CUDA not available on this system: %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestContext_Info(t *testing.T) {
	ctx := openOrSkip(t)

	info := ctx.Info()
	assert.NotEmpty(t, info.Name)
	assert.Greater(t, info.TotalMemory, int64(0))
	assert.NotEmpty(t, info.ComputeCapability)
}

func TestModule_RoundTrip(t *testing.T) {
	m := NewModule(openOrSkip(t), zap.NewNop())

	host, err := array.New([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	dev, err := m.Asarray(host)
	require.NoError(t, err)
	assert.Equal(t, array.CUDA, dev.Device())
	assert.Equal(t, []int{2, 3}, dev.Shape())

	back, err := m.ToHost(dev)
	require.NoError(t, err)
	assert.Equal(t, host.Data(), back.Data())

	z, err := m.Zeros(5)
	require.NoError(t, err)
	zh, err := m.ToHost(z)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 5), zh.Data())
}

func TestModule_Dot(t *testing.T) {
	m := NewModule(openOrSkip(t), zap.NewNop())

	a, err := m.FromSlice([]int{3}, []float64{1, 2, 3})
	require.NoError(t, err)
	b, err := m.FromSlice([]int{3}, []float64{4, 5, 6})
	require.NoError(t, err)

	d, err := m.Dot(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 32.0, d, 1e-12)
}

func TestArray_Free(t *testing.T) {
	m := NewModule(openOrSkip(t), zap.NewNop())

	a, err := m.Zeros(4)
	require.NoError(t, err)
	dev := a.(*Array)
	require.NoError(t, dev.Free())
	require.NoError(t, dev.Free())

	_, err = m.ToHost(dev)
	assert.ErrorIs(t, err, ErrFreed)
}

func TestSignal_MatchesHost(t *testing.T) {
	ctx := openOrSkip(t)
	sig, err := NewSignal(ctx, zap.NewNop())
	if err != nil {
		t.Skipf("cuFFT not available: %v", err)
	}
	m := NewModule(ctx, zap.NewNop())
	r := rand.New(rand.NewSource(3))

	for _, shapes := range [][2][]int{{{200}, {15}}, {{30, 40}, {3, 5}}} {
		h1 := randomHost(t, r, shapes[0])
		h2 := randomHost(t, r, shapes[1])
		d1, err := m.Asarray(h1)
		require.NoError(t, err)
		d2, err := m.Asarray(h2)
		require.NoError(t, err)

		for _, mode := range []signal.Mode{signal.Full, signal.Same, signal.Valid} {
			want, err := signal.Convolve(h1, h2, mode)
			require.NoError(t, err)

			for name, fn := range map[string]func(a, b array.Array, m signal.Mode) (array.Array, error){
				"direct": sig.Convolve,
				"fft":    sig.FFTConvolve,
			} {
				got, err := fn(d1, d2, mode)
				require.NoError(t, err, name)
				gh, err := m.ToHost(got)
				require.NoError(t, err)
				assert.True(t, array.EqualApprox(want.(*array.Dense), gh, 1e-8), "%s %v %s", name, shapes, mode)
			}
		}
	}
}

func randomHost(t *testing.T, r *rand.Rand, shape []int) *array.Dense {
	d, err := array.Zeros(shape...)
	require.NoError(t, err)
	for i := range d.Data() {
		d.Data()[i] = r.NormFloat64()
	}
	return d
}
