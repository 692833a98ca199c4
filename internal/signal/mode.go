package signal

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which part of the full linear convolution is returned.
type Mode int

const (
	// Full returns the complete discrete linear convolution.
	Full Mode = iota
	// Same returns the central part, with the shape of the first input.
	Same
	// Valid returns only elements that do not rely on zero padding.
	Valid
)

var (
	// ErrMode is returned for an unrecognised mode name.
	ErrMode = errors.New("acceptable mode flags are 'valid', 'same', or 'full'")
	// ErrDimensionality is returned when the inputs differ in rank.
	ErrDimensionality = errors.New("in1 and in2 should have the same dimensionality")
	// ErrValidMode is returned when neither input dominates the other in
	// valid mode.
	ErrValidMode = errors.New("for 'valid' mode, one must be at least as large as the other in every dimension")
	// ErrHostOnly is returned when a CPU routine receives device memory.
	ErrHostOnly = errors.New("cpu convolution requires host arrays")
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case Same:
		return "same"
	case Valid:
		return "valid"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "full", "same" or "valid" to a Mode. The empty string
// selects Full.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return Full, nil
	case "same":
		return Same, nil
	case "valid":
		return Valid, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrMode, s)
	}
}

// Layout describes where a mode's output sits inside the full convolution.
type Layout struct {
	// Full is the shape of the complete convolution, s1+s2-1 per axis.
	Full []int
	// Shape is the shape of the returned array.
	Shape []int
	// Start is the offset of the returned block inside the full result.
	Start []int
	// Swap is set when valid mode requires the operands to be exchanged.
	Swap bool
}

// NewLayout computes the output layout for inputs of shapes s1 and s2.
func NewLayout(s1, s2 []int, mode Mode) (Layout, error) {
	if len(s1) != len(s2) {
		return Layout{}, ErrDimensionality
	}
	var l Layout
	if mode == Valid {
		ok1, ok2 := true, true
		for i := range s1 {
			ok1 = ok1 && s1[i] >= s2[i]
			ok2 = ok2 && s2[i] >= s1[i]
		}
		switch {
		case ok1:
		case ok2:
			s1, s2 = s2, s1
			l.Swap = true
		default:
			return Layout{}, ErrValidMode
		}
	}

	n := len(s1)
	l.Full = make([]int, n)
	l.Shape = make([]int, n)
	l.Start = make([]int, n)
	for i := 0; i < n; i++ {
		l.Full[i] = s1[i] + s2[i] - 1
		switch mode {
		case Full:
			l.Shape[i] = l.Full[i]
		case Same:
			l.Shape[i] = s1[i]
		case Valid:
			l.Shape[i] = s1[i] - s2[i] + 1
		default:
			return Layout{}, fmt.Errorf("%w: got %v", ErrMode, mode)
		}
		l.Start[i] = (l.Full[i] - l.Shape[i]) / 2
	}
	return l, nil
}
