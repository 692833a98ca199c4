package backend

import "errors"

// Errors returned by the resolver. Callers match them with errors.Is; the
// wrapped message names the missing piece.
var (
	// ErrInvalidArgument means a backend name, module or method outside the
	// supported set was given.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingDependency means the operation needs an optional backend that
	// is not available in this process.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrNotSupported means no backend implements the operation at all.
	// Enabling more backends will not help.
	ErrNotSupported = errors.New("not supported")
)

const (
	cupyMessage     = "cupy backend not available. Use numpy arrays or build with -tags cuda"
	cusignalMessage = "cusignal extension not available. Use numpy arrays or build with -tags cuda,cufft"
	oaMessage       = "oaconvolve not implemented for cupy arrays. Consider using direct or fft convolution"
)
