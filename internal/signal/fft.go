package signal

import (
	"github.com/fxnlabs/arraykit/internal/array"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTConvolve computes the convolution of in1 and in2 by multiplying their
// discrete Fourier transforms.
func FFTConvolve(in1, in2 array.Array, mode Mode) (array.Array, error) {
	a, b, l, err := prepare(in1, in2, mode)
	if err != nil {
		return nil, err
	}

	shape := make([]int, len(l.Full))
	for i, n := range l.Full {
		shape[i] = NextFastLen(n)
	}
	if err := array.CheckSize(shape, 0); err != nil {
		return nil, err
	}
	p := newPlan(shape)

	fa := p.load(a, make([]int, len(shape)), a.Shape())
	fb := p.load(b, make([]int, len(shape)), b.Shape())
	p.forward(fa)
	p.forward(fb)
	for i := range fa {
		fa[i] *= fb[i]
	}
	p.inverse(fa)

	full, err := array.Zeros(l.Full...)
	if err != nil {
		return nil, err
	}
	p.accumulate(full, fa, make([]int, len(shape)), l.Full)
	return crop(full, l), nil
}

// NextFastLen returns the smallest 2-3-5-smooth integer not less than n.
// FFTs of such lengths factor entirely into the fast radices.
func NextFastLen(n int) int {
	if n <= 6 {
		return n
	}
	for m := n; ; m++ {
		r := m
		for _, f := range [...]int{2, 3, 5} {
			for r%f == 0 {
				r /= f
			}
		}
		if r == 1 {
			return m
		}
	}
}

// plan holds one complex FFT per axis of an n-dimensional buffer.
type plan struct {
	shape   []int
	strides []int
	size    int
	ffts    []*fourier.CmplxFFT
	line    []complex128
	coeff   []complex128
}

func newPlan(shape []int) *plan {
	p := &plan{
		shape:   shape,
		strides: array.Strides(shape),
		size:    array.SizeOf(shape),
		ffts:    make([]*fourier.CmplxFFT, len(shape)),
	}
	longest := 0
	for d, n := range shape {
		p.ffts[d] = fourier.NewCmplxFFT(n)
		if n > longest {
			longest = n
		}
	}
	p.line = make([]complex128, longest)
	p.coeff = make([]complex128, longest)
	return p
}

// load copies the block of src starting at origin with the given extent into
// a zeroed buffer laid out with the plan's shape.
func (p *plan) load(src *array.Dense, origin, extent []int) []complex128 {
	buf := make([]complex128, p.size)
	data := src.Data()
	srcStrides := array.Strides(src.Shape())
	forEachIndex(extent, func(idx []int) {
		so, do := 0, 0
		for d, i := range idx {
			so += (i + origin[d]) * srcStrides[d]
			do += i * p.strides[d]
		}
		buf[do] = complex(data[so], 0)
	})
	return buf
}

// accumulate adds the real part of the leading extent of buf into dst at the
// given offset. Elements falling outside dst are dropped.
func (p *plan) accumulate(dst *array.Dense, buf []complex128, offset, extent []int) {
	dshape := dst.Shape()
	dstrides := array.Strides(dshape)
	out := dst.Data()
	forEachIndex(extent, func(idx []int) {
		so, do := 0, 0
		for d, i := range idx {
			j := i + offset[d]
			if j >= dshape[d] {
				return
			}
			so += i * p.strides[d]
			do += j * dstrides[d]
		}
		out[do] += real(buf[so])
	})
}

func (p *plan) forward(buf []complex128) { p.transform(buf, false) }

func (p *plan) inverse(buf []complex128) { p.transform(buf, true) }

// transform applies the 1-D FFT along every axis in turn. The inverse is
// normalised so that inverse(forward(x)) == x.
func (p *plan) transform(buf []complex128, inverse bool) {
	for d, n := range p.shape {
		if n == 1 {
			continue
		}
		stride := p.strides[d]
		fft := p.ffts[d]
		line := p.line[:n]
		coeff := p.coeff[:n]
		scale := complex(1/float64(n), 0)
		for base := 0; base < p.size; base++ {
			if (base/stride)%n != 0 {
				continue
			}
			for i := 0; i < n; i++ {
				line[i] = buf[base+i*stride]
			}
			if inverse {
				fft.Sequence(coeff, line)
				for i := 0; i < n; i++ {
					buf[base+i*stride] = coeff[i] * scale
				}
			} else {
				fft.Coefficients(coeff, line)
				for i := 0; i < n; i++ {
					buf[base+i*stride] = coeff[i]
				}
			}
		}
	}
}
