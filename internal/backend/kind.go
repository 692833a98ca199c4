package backend

import (
	"fmt"

	"github.com/fxnlabs/arraykit/internal/array"
)

// Kind tags one of the two array backends.
type Kind int

const (
	// CPU is the always available host backend, named "numpy".
	CPU Kind = iota
	// GPU is the optional CUDA backend, named "cupy".
	GPU

	numKinds
)

const (
	NameCPU = "numpy"
	NameGPU = "cupy"
)

func (k Kind) String() string {
	switch k {
	case CPU:
		return NameCPU
	case GPU:
		return NameGPU
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a backend name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case NameCPU:
		return CPU, nil
	case NameGPU:
		return GPU, nil
	default:
		return 0, fmt.Errorf("%w: backend must be %s or %s, got %q", ErrInvalidArgument, NameCPU, NameGPU, name)
	}
}

// KindOf reports which backend's memory x lives in.
func KindOf(x array.Array) Kind {
	if x.Device() == array.CUDA {
		return GPU
	}
	return CPU
}
