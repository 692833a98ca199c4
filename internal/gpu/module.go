package gpu

import (
	"fmt"
	"math/rand"
	"runtime"

	"github.com/fxnlabs/arraykit/internal/array"
	"go.uber.org/zap"
)

// Module is the GPU array module. It creates device arrays and moves data
// between host and device.
type Module struct {
	ctx    *Context
	logger *zap.Logger
}

// NewModule wraps an open device context.
func NewModule(ctx *Context, logger *zap.Logger) *Module {
	return &Module{ctx: ctx, logger: logger}
}

// Device reports that arrays created by this module live on a CUDA device.
func (m *Module) Device() array.Device { return array.CUDA }

// Info returns information about the underlying device.
func (m *Module) Info() array.DeviceInfo { return m.ctx.Info() }

// Zeros allocates a zero-filled device array.
func (m *Module) Zeros(shape ...int) (array.Array, error) {
	if err := array.CheckShape(shape, array.SizeOf(shape)); err != nil {
		return nil, err
	}
	a, err := m.alloc(shape)
	if err != nil {
		return nil, err
	}
	if err := m.ctx.memzero(a.ptr, a.Size()); err != nil {
		_ = a.Free()
		return nil, err
	}
	return a, nil
}

// FromSlice copies data to a new device array of the given shape.
func (m *Module) FromSlice(shape []int, data []float64) (array.Array, error) {
	if err := array.CheckShape(shape, len(data)); err != nil {
		return nil, err
	}
	a, err := m.alloc(shape)
	if err != nil {
		return nil, err
	}
	if err := m.ctx.upload(a.ptr, data); err != nil {
		_ = a.Free()
		return nil, err
	}
	return a, nil
}

// RandN returns a device array of standard normal samples drawn from r.
func (m *Module) RandN(r *rand.Rand, shape ...int) (array.Array, error) {
	if err := array.CheckShape(shape, array.SizeOf(shape)); err != nil {
		return nil, err
	}
	data := make([]float64, array.SizeOf(shape))
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return m.FromSlice(shape, data)
}

// Asarray returns x as a device array, copying host arrays to the device.
func (m *Module) Asarray(x array.Array) (array.Array, error) {
	switch v := x.(type) {
	case *Array:
		return v, nil
	case *array.Dense:
		return m.FromSlice(v.Shape(), v.Data())
	default:
		return nil, fmt.Errorf("gpu: cannot convert %T", x)
	}
}

// ToHost copies x into a new host array.
func (m *Module) ToHost(x array.Array) (*array.Dense, error) {
	switch v := x.(type) {
	case *array.Dense:
		return v, nil
	case *Array:
		ptr, err := v.pointer()
		if err != nil {
			return nil, err
		}
		out, err := array.Zeros(v.shape...)
		if err != nil {
			return nil, err
		}
		if err := m.ctx.download(out.Data(), ptr); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("gpu: cannot copy %T to host", x)
	}
}

// Dot returns the inner product of two device arrays of equal size.
func (m *Module) Dot(a, b array.Array) (float64, error) {
	da, ok := a.(*Array)
	if !ok {
		return 0, fmt.Errorf("gpu: dot operand is on %s", a.Device())
	}
	db, ok := b.(*Array)
	if !ok {
		return 0, fmt.Errorf("gpu: dot operand is on %s", b.Device())
	}
	if da.Size() != db.Size() {
		return 0, fmt.Errorf("gpu: dot size mismatch: %d != %d", da.Size(), db.Size())
	}
	pa, err := da.pointer()
	if err != nil {
		return 0, err
	}
	pb, err := db.pointer()
	if err != nil {
		return 0, err
	}
	return m.ctx.dot(pa, pb, da.Size())
}

func (m *Module) alloc(shape []int) (*Array, error) {
	return allocArray(m.ctx, shape)
}

func allocArray(ctx *Context, shape []int) (*Array, error) {
	ptr, err := ctx.alloc(array.SizeOf(shape))
	if err != nil {
		return nil, err
	}
	a := &Array{shape: append([]int(nil), shape...), ctx: ctx, ptr: ptr}
	runtime.SetFinalizer(a, func(a *Array) { _ = a.Free() })
	return a, nil
}
