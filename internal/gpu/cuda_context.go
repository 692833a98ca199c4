//go:build cuda
// +build cuda

package gpu

/*
#cgo LDFLAGS: -lcudart -lcublas
#include <string.h>
#include <cuda_runtime.h>
#include <cublas_v2.h>

static int ak_device_count(int *n) { return (int)cudaGetDeviceCount(n); }
static int ak_set_device(int d) { return (int)cudaSetDevice(d); }

static int ak_device_props(int d, char *name, int len, int *major, int *minor, size_t *total) {
	struct cudaDeviceProp p;
	cudaError_t st = cudaGetDeviceProperties(&p, d);
	if (st != cudaSuccess) {
		return (int)st;
	}
	strncpy(name, p.name, len - 1);
	name[len - 1] = 0;
	*major = p.major;
	*minor = p.minor;
	*total = p.totalGlobalMem;
	return 0;
}

static int ak_mem_info(size_t *avail, size_t *total) { return (int)cudaMemGetInfo(avail, total); }

static int ak_versions(int *driver, int *runtime) {
	cudaError_t st = cudaDriverGetVersion(driver);
	if (st != cudaSuccess) {
		return (int)st;
	}
	return (int)cudaRuntimeGetVersion(runtime);
}

static int ak_malloc(void **p, size_t n) { return (int)cudaMalloc(p, n); }
static int ak_free(void *p) { return (int)cudaFree(p); }
static int ak_memzero(void *p, size_t n) { return (int)cudaMemset(p, 0, n); }
static int ak_upload(void *dst, const void *src, size_t n) { return (int)cudaMemcpy(dst, src, n, cudaMemcpyHostToDevice); }
static int ak_download(void *dst, const void *src, size_t n) { return (int)cudaMemcpy(dst, src, n, cudaMemcpyDeviceToHost); }
static const char *ak_error(int st) { return cudaGetErrorString((cudaError_t)st); }

static int ak_blas_create(cublasHandle_t *h) { return (int)cublasCreate(h); }
static int ak_blas_destroy(cublasHandle_t h) { return (int)cublasDestroy(h); }
static int ak_ddot(cublasHandle_t h, int n, const void *x, const void *y, double *out) {
	return (int)cublasDdot(h, n, (const double *)x, 1, (const double *)y, 1, out);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/fxnlabs/arraykit/internal/array"
	"go.uber.org/zap"
)

// Context owns a CUDA device and the cuBLAS handle used on it. Calls into the
// device are serialised.
type Context struct {
	ordinal int
	logger  *zap.Logger
	info    array.DeviceInfo

	mu   sync.Mutex
	blas C.cublasHandle_t
}

// Open selects CUDA device ordinal and prepares it for use.
func Open(ordinal int, logger *zap.Logger) (*Context, error) {
	var count C.int
	if st := C.ak_device_count(&count); st != 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cudaError(st))
	}
	if ordinal < 0 || ordinal >= int(count) {
		return nil, fmt.Errorf("%w: device %d requested, %d present", ErrUnavailable, ordinal, int(count))
	}
	if st := C.ak_set_device(C.int(ordinal)); st != 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cudaError(st))
	}

	c := &Context{ordinal: ordinal, logger: logger}
	if err := c.queryInfo(); err != nil {
		return nil, err
	}
	if st := C.ak_blas_create(&c.blas); st != 0 {
		return nil, fmt.Errorf("%w: cublasCreate failed with status %d", ErrUnavailable, int(st))
	}

	logger.Info("CUDA device opened",
		zap.String("device", c.info.Name),
		zap.String("compute_capability", c.info.ComputeCapability),
		zap.Float64("total_memory_gb", float64(c.info.TotalMemory)/(1<<30)))
	return c, nil
}

// Info returns information about the device.
func (c *Context) Info() array.DeviceInfo {
	var avail, total C.size_t
	c.mu.Lock()
	defer c.mu.Unlock()
	info := c.info
	if c.use() == nil && C.ak_mem_info(&avail, &total) == 0 {
		info.AvailableMemory = int64(avail)
	}
	return info
}

// Close releases the cuBLAS handle.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blas == nil {
		return nil
	}
	st := C.ak_blas_destroy(c.blas)
	c.blas = nil
	if st != 0 {
		return fmt.Errorf("cublasDestroy failed with status %d", int(st))
	}
	return nil
}

func (c *Context) queryInfo() error {
	var name [256]C.char
	var major, minor, driver, rt C.int
	var total C.size_t
	if st := C.ak_device_props(C.int(c.ordinal), &name[0], C.int(len(name)), &major, &minor, &total); st != 0 {
		return fmt.Errorf("failed to get device properties: %s", cudaError(st))
	}
	if st := C.ak_versions(&driver, &rt); st != 0 {
		return fmt.Errorf("failed to get CUDA versions: %s", cudaError(st))
	}
	c.info = array.DeviceInfo{
		Name:              C.GoString(&name[0]),
		TotalMemory:       int64(total),
		AvailableMemory:   int64(total),
		ComputeCapability: fmt.Sprintf("%d.%d", int(major), int(minor)),
		DriverVersion:     cudaVersion(int(driver)),
		CUDAVersion:       cudaVersion(int(rt)),
	}
	return nil
}

// use makes the context's device current on this OS thread. Callers hold mu.
func (c *Context) use() error {
	if st := C.ak_set_device(C.int(c.ordinal)); st != 0 {
		return fmt.Errorf("cudaSetDevice: %s", cudaError(st))
	}
	return nil
}

func (c *Context) alloc(n int) (unsafe.Pointer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.use(); err != nil {
		return nil, err
	}
	var p unsafe.Pointer
	if st := C.ak_malloc(&p, C.size_t(n*8)); st != 0 {
		return nil, fmt.Errorf("cudaMalloc of %d elements: %s", n, cudaError(st))
	}
	return p, nil
}

func (c *Context) free(p unsafe.Pointer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.use(); err != nil {
		return err
	}
	if st := C.ak_free(p); st != 0 {
		return fmt.Errorf("cudaFree: %s", cudaError(st))
	}
	return nil
}

func (c *Context) memzero(p unsafe.Pointer, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.use(); err != nil {
		return err
	}
	if st := C.ak_memzero(p, C.size_t(n*8)); st != 0 {
		return fmt.Errorf("cudaMemset: %s", cudaError(st))
	}
	return nil
}

func (c *Context) upload(dst unsafe.Pointer, src []float64) error {
	if len(src) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.use(); err != nil {
		return err
	}
	if st := C.ak_upload(dst, unsafe.Pointer(&src[0]), C.size_t(len(src)*8)); st != 0 {
		return fmt.Errorf("host to device copy: %s", cudaError(st))
	}
	return nil
}

func (c *Context) download(dst []float64, src unsafe.Pointer) error {
	if len(dst) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.use(); err != nil {
		return err
	}
	if st := C.ak_download(unsafe.Pointer(&dst[0]), src, C.size_t(len(dst)*8)); st != 0 {
		return fmt.Errorf("device to host copy: %s", cudaError(st))
	}
	return nil
}

func (c *Context) dot(a, b unsafe.Pointer, n int) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.use(); err != nil {
		return 0, err
	}
	var out C.double
	if st := C.ak_ddot(c.blas, C.int(n), a, b, &out); st != 0 {
		return 0, fmt.Errorf("cublasDdot failed with status %d", int(st))
	}
	return float64(out), nil
}

func cudaError(st C.int) string {
	return C.GoString(C.ak_error(st))
}

// cudaVersion formats a CUDA version integer such as 12040 as "12.4".
func cudaVersion(v int) string {
	return fmt.Sprintf("%d.%d", v/1000, (v%1000)/10)
}
