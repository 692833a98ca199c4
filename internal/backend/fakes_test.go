package backend

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/signal"
)

// fakeDeviceArray stands in for a GPU-resident array.
type fakeDeviceArray struct {
	host *array.Dense
}

func (f *fakeDeviceArray) Device() array.Device { return array.CUDA }
func (f *fakeDeviceArray) Shape() []int         { return f.host.Shape() }
func (f *fakeDeviceArray) Size() int            { return f.host.Size() }

// fakeGPUModule is a GPU array module backed by host memory.
type fakeGPUModule struct {
	mu      sync.Mutex
	uploads int
}

func (m *fakeGPUModule) Device() array.Device { return array.CUDA }

func (m *fakeGPUModule) Info() array.DeviceInfo {
	return array.DeviceInfo{Name: "fake GPU", TotalMemory: 1 << 30, ComputeCapability: "9.0"}
}

func (m *fakeGPUModule) Zeros(shape ...int) (array.Array, error) {
	d, err := array.Zeros(shape...)
	if err != nil {
		return nil, err
	}
	return &fakeDeviceArray{host: d}, nil
}

func (m *fakeGPUModule) FromSlice(shape []int, data []float64) (array.Array, error) {
	d, err := array.New(shape, append([]float64(nil), data...))
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.uploads++
	m.mu.Unlock()
	return &fakeDeviceArray{host: d}, nil
}

func (m *fakeGPUModule) RandN(r *rand.Rand, shape ...int) (array.Array, error) {
	data := make([]float64, array.SizeOf(shape))
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return m.FromSlice(shape, data)
}

func (m *fakeGPUModule) Asarray(x array.Array) (array.Array, error) {
	switch v := x.(type) {
	case *fakeDeviceArray:
		return v, nil
	case *array.Dense:
		return m.FromSlice(v.Shape(), v.Data())
	default:
		return nil, fmt.Errorf("fake gpu: cannot convert %T", x)
	}
}

func (m *fakeGPUModule) ToHost(x array.Array) (*array.Dense, error) {
	switch v := x.(type) {
	case *fakeDeviceArray:
		return v.host.Clone(), nil
	case *array.Dense:
		return v, nil
	default:
		return nil, fmt.Errorf("fake gpu: cannot copy %T", x)
	}
}

func (m *fakeGPUModule) Dot(a, b array.Array) (float64, error) {
	ha, err := m.ToHost(a)
	if err != nil {
		return 0, err
	}
	hb, err := m.ToHost(b)
	if err != nil {
		return 0, err
	}
	return NewCPUModule().Dot(ha, hb)
}

// fakeSignal runs the host routines on the fake device arrays and records
// which entry point was used.
type fakeSignal struct {
	mu    sync.Mutex
	calls []string
}

func (s *fakeSignal) Convolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error) {
	return s.run("convolve", signal.Convolve, in1, in2, mode)
}

func (s *fakeSignal) FFTConvolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error) {
	return s.run("fftconvolve", signal.FFTConvolve, in1, in2, mode)
}

func (s *fakeSignal) run(name string, fn ConvolveFunc, in1, in2 array.Array, mode signal.Mode) (array.Array, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	a, ok := in1.(*fakeDeviceArray)
	if !ok {
		return nil, fmt.Errorf("fake signal: in1 is on %s", in1.Device())
	}
	b, ok := in2.(*fakeDeviceArray)
	if !ok {
		return nil, fmt.Errorf("fake signal: in2 is on %s", in2.Device())
	}
	out, err := fn(a.host, b.host, mode)
	if err != nil {
		return nil, err
	}
	return &fakeDeviceArray{host: out.(*array.Dense)}, nil
}
