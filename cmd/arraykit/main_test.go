package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxnlabs/arraykit/fixtures"
	"github.com/fxnlabs/arraykit/internal/config"
	"github.com/fxnlabs/arraykit/internal/dottest"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"arraykit"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing default falls back", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(t.TempDir(), "config.yaml"), false)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "config.yaml"), true)
		assert.Error(t, err)
	})

	t.Run("fixture", func(t *testing.T) {
		cfg, err := loadConfig("../../fixtures/tests/config/valid_config.yaml", true)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.ListenPort)
	})
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := runApp(t, "init", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fixtures.ConfigTemplate, data)

	_, err = runApp(t, "init", path)
	assert.Error(t, err)

	_, err = runApp(t, "init", "--force", path)
	assert.NoError(t, err)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logger.Verbosity)
}

func TestConvolveCommand(t *testing.T) {
	in1 := writeFile(t, "in1.json", `[1, 2, 3]`)
	in2 := writeFile(t, "in2.json", `{"shape": [3], "data": [0, 1, 0.5]}`)

	for _, method := range []string{"direct", "fft", "oa"} {
		t.Run(method, func(t *testing.T) {
			out, err := runApp(t, "convolve", "--method", method, "--in1", in1, "--in2", in2)
			require.NoError(t, err)

			var res struct {
				Shape []int     `json:"shape"`
				Data  []float64 `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, []int{5}, res.Shape)
			assert.InDeltaSlice(t, []float64{0, 1, 2.5, 4, 1.5}, res.Data, 1e-9)
		})
	}

	t.Run("valid mode", func(t *testing.T) {
		out, err := runApp(t, "convolve", "--mode", "valid", "--in1", in1, "--in2", in2)
		require.NoError(t, err)
		assert.Contains(t, out, `"shape":[1]`)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := runApp(t, "convolve", "--backend", "tpu", "--in1", in1, "--in2", in2)
		assert.Error(t, err)
	})

	t.Run("bad input file", func(t *testing.T) {
		bad := writeFile(t, "bad.json", `{"shape": [4], "data": [1]}`)
		_, err := runApp(t, "convolve", "--in1", bad, "--in2", in2)
		assert.Error(t, err)
	})
}

func TestDotTestCommand(t *testing.T) {
	out, err := runApp(t, "dottest", "--method", "fft", "--n", "64", "--taps", "5", "--tol", "1e-8", "--seed", "9")
	require.NoError(t, err)

	var res dottest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Passed)
	assert.Equal(t, "numpy", res.Backend)
}

func TestInfoCommand(t *testing.T) {
	out, err := runApp(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "[numpy]")
	assert.Contains(t, out, "Host CPU features")
}

func TestServe(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1"
	cfg.Server.ListenPort = 0
	cfg.Backend.DisableGPU = true

	var ln *listener
	app := fxtest.New(t,
		serverOptions(cfg, zap.NewNop()),
		fx.Populate(&ln),
	)
	app.RequireStart()
	defer app.RequireStop()

	base := "http://" + ln.Addr().String()

	resp, err := http.Get(base + "/v1/backends")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/v1/convolve", "application/json",
		bytes.NewReader([]byte(`{"backend":"cupy","in1":[1],"in2":[1]}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
