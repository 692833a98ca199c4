// Package gpu provides the optional CUDA array module and the optional GPU
// signal extension.
//
// Both are compiled only with build tags: `cuda` links the CUDA runtime and
// cuBLAS, `cuda,cufft` additionally links cuFFT. Without the tags every
// constructor returns ErrUnavailable, which the backend resolver treats as
// the backend being absent.
package gpu

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/fxnlabs/arraykit/internal/array"
)

var (
	// ErrUnavailable is returned by constructors when the backend was not
	// compiled in or no device could be opened.
	ErrUnavailable = errors.New("cuda backend not available")
	// ErrFreed is returned when a released array is used.
	ErrFreed = errors.New("gpu array already freed")
)

// Array is a float64 array resident in device memory.
type Array struct {
	shape []int
	ctx   *Context

	mu  sync.Mutex
	ptr unsafe.Pointer
}

func (a *Array) Device() array.Device { return array.CUDA }

func (a *Array) Shape() []int {
	out := make([]int, len(a.shape))
	copy(out, a.shape)
	return out
}

func (a *Array) Size() int { return array.SizeOf(a.shape) }

// Free releases the device memory. Calling Free more than once is a no-op.
func (a *Array) Free() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ptr == nil {
		return nil
	}
	err := a.ctx.free(a.ptr)
	a.ptr = nil
	return err
}

func (a *Array) pointer() (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ptr == nil {
		return nil, ErrFreed
	}
	return a.ptr, nil
}
