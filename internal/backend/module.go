package backend

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/signal"
)

// Module is an array library: it creates arrays in its own memory and moves
// data in and out of it. Handles are created once per process and shared;
// implementations should be pointer types so that handles compare by
// identity.
type Module interface {
	// Device is the memory arrays created by this module live in.
	Device() array.Device
	Info() array.DeviceInfo
	Zeros(shape ...int) (array.Array, error)
	FromSlice(shape []int, data []float64) (array.Array, error)
	RandN(r *rand.Rand, shape ...int) (array.Array, error)
	// Asarray returns x in this module's memory, copying only when needed.
	Asarray(x array.Array) (array.Array, error)
	ToHost(x array.Array) (*array.Dense, error)
	Dot(a, b array.Array) (float64, error)
}

// SignalExtension provides convolution routines for GPU arrays.
type SignalExtension interface {
	Convolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error)
	FFTConvolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error)
}

// ConvolveFunc is a convolution routine for one backend.
type ConvolveFunc func(in1, in2 array.Array, mode signal.Mode) (array.Array, error)

// Method selects a convolution algorithm.
type Method int

const (
	// Direct is the sum-of-products convolution.
	Direct Method = iota
	// FFT multiplies the inputs' Fourier transforms.
	FFT
	// OverlapAdd convolves blocks of the larger input by FFT and sums them.
	OverlapAdd
)

func (m Method) String() string {
	switch m {
	case Direct:
		return "direct"
	case FFT:
		return "fft"
	case OverlapAdd:
		return "oa"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod accepts "direct" (or "plain", "convolve"), "fft" (or
// "fftconvolve") and "oa" (or "overlap_add", "oaconvolve").
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct", "plain", "convolve":
		return Direct, nil
	case "fft", "fftconvolve":
		return FFT, nil
	case "oa", "overlap_add", "overlap-add", "oaconvolve":
		return OverlapAdd, nil
	default:
		return 0, fmt.Errorf("%w: unknown convolution method %q", ErrInvalidArgument, s)
	}
}
