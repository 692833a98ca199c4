// Package backend selects between the host and GPU array backends.
//
// Library code calls the Resolver instead of branching on hardware: it asks
// which module owns an array, which convolution routine to run on it, or for
// a copy of an array in another array's memory. Which optional backends exist
// is decided once, when the Resolver is built, and never changes afterwards.
package backend

import (
	"fmt"
	"reflect"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/signal"
)

// Capabilities reports which optional backends are present.
type Capabilities struct {
	GPUArray  bool `json:"cupy"`
	GPUSignal bool `json:"cusignal"`
}

// Resolver dispatches array operations to the backend that owns the data.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	modules [numKinds]Module
	signal  SignalExtension
	cpuConv [3]ConvolveFunc
	closer  func() error
}

// New builds a resolver from explicit backend handles. gpu and sig may be
// nil to mark the backend absent; sig is ignored without gpu.
func New(cpu, gpu Module, sig SignalExtension) *Resolver {
	if cpu == nil {
		cpu = NewCPUModule()
	}
	r := &Resolver{
		cpuConv: [3]ConvolveFunc{
			Direct:     signal.Convolve,
			FFT:        signal.FFTConvolve,
			OverlapAdd: signal.OAConvolve,
		},
	}
	r.modules[CPU] = cpu
	if gpu != nil {
		r.modules[GPU] = gpu
		r.signal = sig
	}
	return r
}

// Capabilities reports which optional backends this resolver can use.
func (r *Resolver) Capabilities() Capabilities {
	return Capabilities{
		GPUArray:  r.modules[GPU] != nil,
		GPUSignal: r.modules[GPU] != nil && r.signal != nil,
	}
}

// Module returns the array module registered under name ("numpy" or "cupy").
func (r *Resolver) Module(name string) (Module, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	m := r.modules[k]
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDependency, cupyMessage)
	}
	return m, nil
}

// ModuleName is the inverse of Module.
func (r *Resolver) ModuleName(m Module) (string, error) {
	if m != nil {
		for k, owned := range r.modules {
			if owned != nil && sameModule(owned, m) {
				return Kind(k).String(), nil
			}
		}
	}
	return "", fmt.Errorf("%w: module must be %s or %s, got %T", ErrInvalidArgument, NameCPU, NameGPU, m)
}

// sameModule reports whether a and b are the same handle. Values of a type
// that cannot be compared, such as structs holding slices, never match.
func sameModule(a, b Module) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

// ArrayModule returns the module that owns x. Without a GPU backend every
// array is treated as a host array.
func (r *Resolver) ArrayModule(x array.Array) Module {
	if r.modules[GPU] == nil {
		return r.modules[CPU]
	}
	return r.modules[KindOf(x)]
}

// Convolution returns the routine implementing method for arrays living
// where x lives.
func (r *Resolver) Convolution(x array.Array, method Method) (ConvolveFunc, error) {
	if method < Direct || method > OverlapAdd {
		return nil, fmt.Errorf("%w: unknown convolution method %v", ErrInvalidArgument, method)
	}
	if r.modules[GPU] == nil || KindOf(x) == CPU {
		return r.cpuConv[method], nil
	}
	switch method {
	case OverlapAdd:
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, oaMessage)
	case FFT:
		if r.signal == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, cusignalMessage)
		}
		return r.signal.FFTConvolve, nil
	default:
		if r.signal == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, cusignalMessage)
		}
		return r.signal.Convolve, nil
	}
}

// Convolve returns the direct convolution routine for x's backend.
func (r *Resolver) Convolve(x array.Array) (ConvolveFunc, error) {
	return r.Convolution(x, Direct)
}

// FFTConvolve returns the FFT convolution routine for x's backend.
func (r *Resolver) FFTConvolve(x array.Array) (ConvolveFunc, error) {
	return r.Convolution(x, FFT)
}

// OAConvolve returns the overlap-add convolution routine for x's backend.
func (r *Resolver) OAConvolve(x array.Array) (ConvolveFunc, error) {
	return r.Convolution(x, OverlapAdd)
}

// CoerceLike returns y in the memory of x's backend. Only a host y paired
// with a GPU x is copied; in every other case y is returned as is.
func (r *Resolver) CoerceLike(x, y array.Array) (array.Array, error) {
	gpu := r.modules[GPU]
	if gpu == nil || KindOf(x) != GPU || KindOf(y) != CPU {
		return y, nil
	}
	return gpu.Asarray(y)
}

// ToHost copies x to host memory using the module that owns it. Host arrays
// are returned unchanged.
func (r *Resolver) ToHost(x array.Array) (*array.Dense, error) {
	return r.ArrayModule(x).ToHost(x)
}

// Close releases resources held by optional backends.
func (r *Resolver) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer()
	r.closer = nil
	return err
}
