package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EndpointResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_responses_total",
		Help: "The total number of endpoint responses",
	}, []string{"endpoint", "status_code"})

	EndpointDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "endpoint_duration_seconds",
		Help:    "Time spent serving each endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// Convolution metrics
	ConvolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "convolution_duration_ms",
		Help:    "Duration of convolution computations in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 20), // 10us to ~5s
	}, []string{"backend", "method"})

	ConvolutionOutputSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convolution_output_elements",
		Help: "Number of elements in the last convolution result",
	})

	// Resolver metrics
	ResolutionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_resolution_errors_total",
		Help: "Backend resolutions that failed, by reason",
	}, []string{"reason"})

	CoercedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_coerced_bytes_total",
		Help: "Bytes copied from host to device to match another array's backend",
	})

	DotTests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dottest_runs_total",
		Help: "Dot tests run, by backend and result",
	}, []string{"backend", "result"})

	// Backend metrics
	BackendAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backend_available",
		Help: "Whether an optional array backend is available (1) or not (0)",
	}, []string{"backend"})

	GPUMemoryUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpu_memory_used_bytes",
		Help: "GPU memory currently in use in bytes",
	})
)
