package backend

import (
	"fmt"
	"math/rand"
	"runtime"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/pbnjay/memory"
	"gonum.org/v1/gonum/mat"
)

// CPUModule is the host array module.
type CPUModule struct {
	name string
}

// NewCPUModule returns a host array module. Each call yields a distinct
// handle.
func NewCPUModule() *CPUModule {
	return &CPUModule{name: fmt.Sprintf("CPU (%s, %d cores)", runtime.GOARCH, runtime.NumCPU())}
}

func (c *CPUModule) Device() array.Device { return array.Host }

// Info returns device information for the host.
func (c *CPUModule) Info() array.DeviceInfo {
	return array.DeviceInfo{
		Name:              c.name,
		TotalMemory:       int64(memory.TotalMemory()),
		AvailableMemory:   int64(memory.FreeMemory()),
		ComputeCapability: "N/A",
		DriverVersion:     runtime.Version(),
	}
}

func (c *CPUModule) Zeros(shape ...int) (array.Array, error) {
	return array.Zeros(shape...)
}

// FromSlice copies data into a new host array.
func (c *CPUModule) FromSlice(shape []int, data []float64) (array.Array, error) {
	return array.New(shape, append([]float64(nil), data...))
}

func (c *CPUModule) RandN(r *rand.Rand, shape ...int) (array.Array, error) {
	d, err := array.Zeros(shape...)
	if err != nil {
		return nil, err
	}
	for i := range d.Data() {
		d.Data()[i] = r.NormFloat64()
	}
	return d, nil
}

// Asarray returns host arrays unchanged. Device arrays are refused: moving
// them requires the module that owns them.
func (c *CPUModule) Asarray(x array.Array) (array.Array, error) {
	if d, ok := x.(*array.Dense); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: implicit conversion of a %s array to host is not allowed", ErrInvalidArgument, x.Device())
}

func (c *CPUModule) ToHost(x array.Array) (*array.Dense, error) {
	a, err := c.Asarray(x)
	if err != nil {
		return nil, err
	}
	return a.(*array.Dense), nil
}

// Dot returns the inner product of two host arrays of equal size.
func (c *CPUModule) Dot(a, b array.Array) (float64, error) {
	da, err := c.ToHost(a)
	if err != nil {
		return 0, err
	}
	db, err := c.ToHost(b)
	if err != nil {
		return 0, err
	}
	if da.Size() != db.Size() {
		return 0, fmt.Errorf("%w: dot size mismatch: %d != %d", ErrInvalidArgument, da.Size(), db.Size())
	}
	n := da.Size()
	return mat.Dot(mat.NewVecDense(n, da.Data()), mat.NewVecDense(n, db.Data())), nil
}
