//go:build !cuda
// +build !cuda

package gpu

import (
	"unsafe"

	"github.com/fxnlabs/arraykit/internal/array"
	"go.uber.org/zap"
)

// Context is a stub type when CUDA is not compiled in.
type Context struct{}

// Open always fails without the cuda build tag.
func Open(ordinal int, logger *zap.Logger) (*Context, error) {
	return nil, ErrUnavailable
}

func (c *Context) Info() array.DeviceInfo {
	return array.DeviceInfo{Name: "CUDA not available"}
}

func (c *Context) Close() error { return nil }

func (c *Context) alloc(n int) (unsafe.Pointer, error) { return nil, ErrUnavailable }

func (c *Context) free(p unsafe.Pointer) error { return ErrUnavailable }

func (c *Context) memzero(p unsafe.Pointer, n int) error { return ErrUnavailable }

func (c *Context) upload(dst unsafe.Pointer, src []float64) error { return ErrUnavailable }

func (c *Context) download(dst []float64, src unsafe.Pointer) error { return ErrUnavailable }

func (c *Context) dot(a, b unsafe.Pointer, n int) (float64, error) { return 0, ErrUnavailable }
