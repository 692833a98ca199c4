//go:build !cuda
// +build !cuda

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOpen_Unavailable(t *testing.T) {
	ctx, err := Open(0, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, ctx)
}

func TestNewSignal_Unavailable(t *testing.T) {
	sig, err := NewSignal(nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, sig)
}

func TestModule_WithoutDevice(t *testing.T) {
	m := NewModule(&Context{}, zap.NewNop())

	_, err := m.Zeros(4)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = m.FromSlice([]int{2}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.Equal(t, "CUDA not available", m.Info().Name)
}
