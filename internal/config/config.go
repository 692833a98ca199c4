package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment switches that force an optional backend off regardless of the
// config file. A value parsing as false disables the backend.
const (
	EnvGPU       = "ARRAYKIT_GPU"
	EnvGPUSignal = "ARRAYKIT_GPU_SIGNAL"
)

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Backend Backend `yaml:"backend"`
	Server  struct {
		ListenAddress string        `yaml:"listenAddress"`
		ListenPort    int           `yaml:"listenPort"`
		ReadTimeout   time.Duration `yaml:"readTimeout"`
		WriteTimeout  time.Duration `yaml:"writeTimeout"`
		MaxBodyBytes  int64         `yaml:"maxBodyBytes"`
	} `yaml:"server"`
	DotTest struct {
		Tolerance float64 `yaml:"tolerance"`
		Seed      int64   `yaml:"seed"`
	} `yaml:"dotTest"`
}

// DefaultMaxElements caps any array a request or command may allocate at
// 1 GiB of float64.
const DefaultMaxElements = 1 << 27

// Backend controls which optional array backends are probed at startup.
type Backend struct {
	DisableGPU    bool `yaml:"disableGPU"`
	DisableSignal bool `yaml:"disableSignal"`
	Device        int  `yaml:"device"`
	// MaxElements bounds the element count of convolution outputs and
	// dot-test vectors.
	MaxElements int `yaml:"maxElements"`
}

// GPUEnabled reports whether the GPU array module should be probed.
func (b Backend) GPUEnabled() bool {
	return !b.DisableGPU && envEnabled(EnvGPU)
}

// SignalEnabled reports whether the GPU signal extension should be probed.
func (b Backend) SignalEnabled() bool {
	return b.GPUEnabled() && !b.DisableSignal && envEnabled(EnvGPUSignal)
}

func envEnabled(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return true
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Logger.Verbosity == "" {
		c.Logger.Verbosity = "info"
	}
	if c.Backend.MaxElements <= 0 {
		c.Backend.MaxElements = DefaultMaxElements
	}
	if c.Server.ListenPort == 0 {
		c.Server.ListenPort = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 64 << 20
	}
	if c.DotTest.Tolerance == 0 {
		c.DotTest.Tolerance = 1e-6
	}
}
