//go:build !cuda || !cufft
// +build !cuda !cufft

package gpu

import (
	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/signal"
	"go.uber.org/zap"
)

// Signal is a stub type when cuFFT is not compiled in.
type Signal struct{}

// NewSignal always fails without the cuda and cufft build tags.
func NewSignal(ctx *Context, logger *zap.Logger) (*Signal, error) {
	return nil, ErrUnavailable
}

func (s *Signal) Convolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error) {
	return nil, ErrUnavailable
}

func (s *Signal) FFTConvolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error) {
	return nil, ErrUnavailable
}
