package signal

import (
	"github.com/fxnlabs/arraykit/internal/array"
)

// OAConvolve computes the convolution of in1 and in2 with the overlap-add
// method. The larger operand is split into blocks that are convolved with the
// smaller one by FFT and summed into the output with overlap.
func OAConvolve(in1, in2 array.Array, mode Mode) (array.Array, error) {
	a, b, l, err := prepare(in1, in2, mode)
	if err != nil {
		return nil, err
	}
	if a.Size() < b.Size() {
		// Convolution commutes; block the larger operand.
		a, b = b, a
	}

	sa, sb := a.Shape(), b.Shape()
	n := len(sa)
	step := make([]int, n)
	fftShape := make([]int, n)
	for d := 0; d < n; d++ {
		step[d] = blockStep(sa[d], sb[d])
		fftShape[d] = NextFastLen(step[d] + sb[d] - 1)
	}
	p := newPlan(fftShape)

	fb := p.load(b, make([]int, n), sb)
	p.forward(fb)

	full, err := array.Zeros(l.Full...)
	if err != nil {
		return nil, err
	}

	grid := make([]int, n)
	for d := 0; d < n; d++ {
		grid[d] = (sa[d] + step[d] - 1) / step[d]
	}
	origin := make([]int, n)
	extent := make([]int, n)
	outExtent := make([]int, n)
	forEachIndex(grid, func(blk []int) {
		for d := 0; d < n; d++ {
			origin[d] = blk[d] * step[d]
			extent[d] = min(step[d], sa[d]-origin[d])
			outExtent[d] = extent[d] + sb[d] - 1
		}
		fa := p.load(a, origin, extent)
		p.forward(fa)
		for i := range fa {
			fa[i] *= fb[i]
		}
		p.inverse(fa)
		p.accumulate(full, fa, origin, outExtent)
	})
	return crop(full, l), nil
}

// blockStep picks how many input samples each block consumes along one axis.
// Axes where the kernel is as long as the input are not split.
func blockStep(n1, n2 int) int {
	if n2 >= n1 {
		return n1
	}
	overlap := n2 - 1
	nfft := NextFastLen(max(4*n2, 64))
	step := nfft - overlap
	if step >= n1 {
		return n1
	}
	return step
}
