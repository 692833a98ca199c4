//go:build cuda && cufft
// +build cuda,cufft

package gpu

/*
#cgo LDFLAGS: -lcufft -lcublas -lcudart
#include <cuda_runtime.h>
#include <cublas_v2.h>
#include <cufft.h>

static int ak_fft_plan(cufftHandle *plan, int rank, int *dims) {
	return (int)cufftPlanMany(plan, rank, dims, NULL, 1, 0, NULL, 1, 0, CUFFT_Z2Z, 1);
}
static int ak_fft_exec(cufftHandle plan, void *buf, int inverse) {
	return (int)cufftExecZ2Z(plan, (cufftDoubleComplex *)buf, (cufftDoubleComplex *)buf,
		inverse ? CUFFT_INVERSE : CUFFT_FORWARD);
}
static int ak_fft_destroy(cufftHandle plan) { return (int)cufftDestroy(plan); }

static int ak_cmalloc(void **p, size_t n) { return (int)cudaMalloc(p, n * sizeof(cufftDoubleComplex)); }
static int ak_cfree(void *p) { return (int)cudaFree(p); }
static int ak_czero(void *p, size_t n) { return (int)cudaMemset(p, 0, n * sizeof(cufftDoubleComplex)); }
static int ak_rzero(void *p, size_t n) { return (int)cudaMemset(p, 0, n * sizeof(double)); }

// a[i] *= b[i], as the product of a 1 x n matrix with diag(b).
static int ak_zmul(cublasHandle_t h, int n, void *a, const void *b) {
	return (int)cublasZdgmm(h, CUBLAS_SIDE_RIGHT, 1, n,
		(const cuDoubleComplex *)a, 1, (const cuDoubleComplex *)b, 1, (cuDoubleComplex *)a, 1);
}
static int ak_zscale(cublasHandle_t h, int n, double s, void *a) {
	return (int)cublasZdscal(h, n, &s, (cuDoubleComplex *)a, 1);
}
static int ak_real_to_complex(cublasHandle_t h, int n, const void *src, void *dst) {
	return (int)cublasDcopy(h, n, (const double *)src, 1, (double *)dst, 2);
}
static int ak_complex_to_real(cublasHandle_t h, int n, const void *src, void *dst) {
	return (int)cublasDcopy(h, n, (const double *)src, 2, (double *)dst, 1);
}

// Copies a rows x cols block of doubles between row-major buffers.
static int ak_copy2d(void *dst, size_t doff, size_t dcols, const void *src, size_t soff, size_t scols,
		size_t rows, size_t cols) {
	return (int)cudaMemcpy2D((double *)dst + doff, dcols * sizeof(double),
		(const double *)src + soff, scols * sizeof(double),
		cols * sizeof(double), rows, cudaMemcpyDeviceToDevice);
}

// out[off:] += alpha * x for a rows x cols row-major block. cuBLAS is column
// major, so the block is passed transposed.
static int ak_axpy2d(cublasHandle_t h, int rows, int cols, double alpha, const void *x, int ldx,
		void *out, size_t off, int ldo) {
	double one = 1.0;
	double *o = (double *)out + off;
	return (int)cublasDgeam(h, CUBLAS_OP_N, CUBLAS_OP_N, cols, rows,
		&alpha, (const double *)x, ldx, &one, o, ldo, o, ldo);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/signal"
	"go.uber.org/zap"
)

// Signal is the GPU signal extension: direct and FFT convolution on device
// arrays of rank 1 or 2, built on cuBLAS and cuFFT.
type Signal struct {
	ctx    *Context
	logger *zap.Logger
}

// NewSignal checks that cuFFT can create a plan on ctx.
func NewSignal(ctx *Context, logger *zap.Logger) (*Signal, error) {
	if ctx == nil {
		return nil, ErrUnavailable
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if err := ctx.use(); err != nil {
		return nil, err
	}
	var plan C.cufftHandle
	dims := [1]C.int{8}
	if st := C.ak_fft_plan(&plan, 1, &dims[0]); st != 0 {
		return nil, fmt.Errorf("%w: cufftPlanMany failed with status %d", ErrUnavailable, int(st))
	}
	C.ak_fft_destroy(plan)
	logger.Info("cuFFT signal extension ready")
	return &Signal{ctx: ctx, logger: logger}, nil
}

// Convolve computes the direct convolution of two device arrays. Each tap of
// the smaller operand adds a scaled, shifted copy of the larger one.
func (s *Signal) Convolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error) {
	a, b, l, err := s.prepare(in1, in2, mode)
	if err != nil {
		return nil, err
	}
	if a.Size() < b.Size() {
		a, b = b, a
	}
	ra, ca := rows(a.shape), cols(a.shape)
	cf := cols(l.Full)

	taps, err := NewModule(s.ctx, s.logger).ToHost(b)
	if err != nil {
		return nil, err
	}
	pa, err := a.pointer()
	if err != nil {
		return nil, err
	}
	full, err := allocArray(s.ctx, l.Full)
	if err != nil {
		return nil, err
	}
	defer full.Free()

	s.ctx.mu.Lock()
	err = func() error {
		if err := s.ctx.use(); err != nil {
			return err
		}
		if st := C.ak_rzero(full.ptr, C.size_t(full.Size())); st != 0 {
			return fmt.Errorf("cudaMemset: %s", cudaError(st))
		}
		cb := cols(b.shape)
		for k, h := range taps.Data() {
			if h == 0 {
				continue
			}
			off := (k/cb)*cf + k%cb
			if st := C.ak_axpy2d(s.ctx.blas, C.int(ra), C.int(ca), C.double(h), pa, C.int(ca),
				full.ptr, C.size_t(off), C.int(cf)); st != 0 {
				return fmt.Errorf("cublasDgeam failed with status %d", int(st))
			}
		}
		return nil
	}()
	s.ctx.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.crop(full, l)
}

// FFTConvolve computes the convolution of two device arrays with cuFFT.
func (s *Signal) FFTConvolve(in1, in2 array.Array, mode signal.Mode) (array.Array, error) {
	a, b, l, err := s.prepare(in1, in2, mode)
	if err != nil {
		return nil, err
	}
	shape := make([]int, len(l.Full))
	for i, n := range l.Full {
		shape[i] = signal.NextFastLen(n)
	}
	n := array.SizeOf(shape)

	padded, err := allocArray(s.ctx, shape)
	if err != nil {
		return nil, err
	}
	defer padded.Free()
	out, err := allocArray(s.ctx, l.Shape)
	if err != nil {
		return nil, err
	}

	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.ctx.use(); err != nil {
		return nil, err
	}

	var fa, fb unsafe.Pointer
	if st := C.ak_cmalloc(&fa, C.size_t(n)); st != 0 {
		return nil, fmt.Errorf("cudaMalloc: %s", cudaError(st))
	}
	defer C.ak_cfree(fa)
	if st := C.ak_cmalloc(&fb, C.size_t(n)); st != 0 {
		return nil, fmt.Errorf("cudaMalloc: %s", cudaError(st))
	}
	defer C.ak_cfree(fb)

	if err := s.embed(fa, padded, a, shape); err != nil {
		return nil, err
	}
	if err := s.embed(fb, padded, b, shape); err != nil {
		return nil, err
	}

	dims := make([]C.int, len(shape))
	for i, d := range shape {
		dims[i] = C.int(d)
	}
	var plan C.cufftHandle
	if st := C.ak_fft_plan(&plan, C.int(len(dims)), &dims[0]); st != 0 {
		return nil, fmt.Errorf("cufftPlanMany failed with status %d", int(st))
	}
	defer C.ak_fft_destroy(plan)

	if st := C.ak_fft_exec(plan, fa, 0); st != 0 {
		return nil, fmt.Errorf("cufftExecZ2Z failed with status %d", int(st))
	}
	if st := C.ak_fft_exec(plan, fb, 0); st != 0 {
		return nil, fmt.Errorf("cufftExecZ2Z failed with status %d", int(st))
	}
	if st := C.ak_zmul(s.ctx.blas, C.int(n), fa, fb); st != 0 {
		return nil, fmt.Errorf("cublasZdgmm failed with status %d", int(st))
	}
	if st := C.ak_fft_exec(plan, fa, 1); st != 0 {
		return nil, fmt.Errorf("cufftExecZ2Z failed with status %d", int(st))
	}
	if st := C.ak_zscale(s.ctx.blas, C.int(n), C.double(1/float64(n)), fa); st != 0 {
		return nil, fmt.Errorf("cublasZdscal failed with status %d", int(st))
	}
	if st := C.ak_complex_to_real(s.ctx.blas, C.int(n), fa, padded.ptr); st != 0 {
		return nil, fmt.Errorf("cublasDcopy failed with status %d", int(st))
	}

	start := l.Start
	if st := C.ak_copy2d(out.ptr, 0, C.size_t(cols(l.Shape)),
		padded.ptr, C.size_t(rowStart(start)*cols(shape)+colStart(start)), C.size_t(cols(shape)),
		C.size_t(rows(l.Shape)), C.size_t(cols(l.Shape))); st != 0 {
		return nil, fmt.Errorf("cudaMemcpy2D: %s", cudaError(st))
	}
	return out, nil
}

func (s *Signal) prepare(in1, in2 array.Array, mode signal.Mode) (*Array, *Array, signal.Layout, error) {
	a, ok := in1.(*Array)
	if !ok {
		return nil, nil, signal.Layout{}, fmt.Errorf("gpu: in1 is on %s", in1.Device())
	}
	b, ok := in2.(*Array)
	if !ok {
		return nil, nil, signal.Layout{}, fmt.Errorf("gpu: in2 is on %s", in2.Device())
	}
	if len(a.shape) > 2 {
		return nil, nil, signal.Layout{}, fmt.Errorf("gpu: convolution of %d-D arrays is not supported", len(a.shape))
	}
	l, err := signal.NewLayout(a.shape, b.shape, mode)
	if err != nil {
		return nil, nil, signal.Layout{}, err
	}
	if l.Swap {
		a, b = b, a
	}
	if _, err := a.pointer(); err != nil {
		return nil, nil, signal.Layout{}, err
	}
	if _, err := b.pointer(); err != nil {
		return nil, nil, signal.Layout{}, err
	}
	return a, b, l, nil
}

// embed zero-pads src into the real scratch buffer and widens it into the
// complex buffer dst. Callers hold ctx.mu.
func (s *Signal) embed(dst unsafe.Pointer, scratch *Array, src *Array, shape []int) error {
	n := array.SizeOf(shape)
	if st := C.ak_rzero(scratch.ptr, C.size_t(n)); st != 0 {
		return fmt.Errorf("cudaMemset: %s", cudaError(st))
	}
	if st := C.ak_copy2d(scratch.ptr, 0, C.size_t(cols(shape)),
		src.ptr, 0, C.size_t(cols(src.shape)),
		C.size_t(rows(src.shape)), C.size_t(cols(src.shape))); st != 0 {
		return fmt.Errorf("cudaMemcpy2D: %s", cudaError(st))
	}
	if st := C.ak_czero(dst, C.size_t(n)); st != 0 {
		return fmt.Errorf("cudaMemset: %s", cudaError(st))
	}
	if st := C.ak_real_to_complex(s.ctx.blas, C.int(n), scratch.ptr, dst); st != 0 {
		return fmt.Errorf("cublasDcopy failed with status %d", int(st))
	}
	return nil
}

// crop copies the mode's window out of a full convolution.
func (s *Signal) crop(full *Array, l signal.Layout) (array.Array, error) {
	out, err := allocArray(s.ctx, l.Shape)
	if err != nil {
		return nil, err
	}
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.ctx.use(); err != nil {
		return nil, err
	}
	if st := C.ak_copy2d(out.ptr, 0, C.size_t(cols(l.Shape)),
		full.ptr, C.size_t(rowStart(l.Start)*cols(l.Full)+colStart(l.Start)), C.size_t(cols(l.Full)),
		C.size_t(rows(l.Shape)), C.size_t(cols(l.Shape))); st != 0 {
		return nil, fmt.Errorf("cudaMemcpy2D: %s", cudaError(st))
	}
	return out, nil
}

// rows and cols view a rank 1 or 2 shape as a row-major matrix; vectors are a
// single row.
func rows(shape []int) int {
	if len(shape) == 1 {
		return 1
	}
	return shape[0]
}

func cols(shape []int) int { return shape[len(shape)-1] }

func rowStart(start []int) int {
	if len(start) == 1 {
		return 0
	}
	return start[0]
}

func colStart(start []int) int { return start[len(start)-1] }
