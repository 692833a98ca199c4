package backend

import (
	"testing"

	"github.com/fxnlabs/arraykit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDetect_GPUDisabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := Detect(config.Backend{DisableGPU: true}, zap.New(core))
	defer r.Close()

	assert.Equal(t, Capabilities{}, r.Capabilities())
	assert.Equal(t, 1, logs.FilterMessage("GPU array module disabled by configuration").Len())

	_, err := r.Module(NameGPU)
	assert.ErrorIs(t, err, ErrMissingDependency)

	m, err := r.Module(NameCPU)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestDetect_GPUDisabledByEnv(t *testing.T) {
	t.Setenv(config.EnvGPU, "0")

	r := Detect(config.Backend{}, zap.NewNop())
	defer r.Close()
	assert.False(t, r.Capabilities().GPUArray)
}

func TestDetect_AlwaysHasCPU(t *testing.T) {
	r := Detect(config.Backend{}, zap.NewNop())
	defer r.Close()

	caps := r.Capabilities()
	if !caps.GPUArray {
		assert.False(t, caps.GPUSignal)
	}
	m, err := r.Module(NameCPU)
	require.NoError(t, err)
	name, err := r.ModuleName(m)
	require.NoError(t, err)
	assert.Equal(t, NameCPU, name)
}
