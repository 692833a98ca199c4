// Package service exposes the backend resolver over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/fxnlabs/arraykit/internal/config"
	"github.com/fxnlabs/arraykit/internal/dottest"
	"github.com/fxnlabs/arraykit/internal/metrics"
	"github.com/fxnlabs/arraykit/internal/signal"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// Service serves convolutions and dot tests on whichever backend a request
// names.
type Service struct {
	resolver *backend.Resolver
	cfg      *config.Config
	log      *zap.Logger
}

// ConvolveRequest is the body of POST /v1/convolve.
type ConvolveRequest struct {
	Backend string       `json:"backend"`
	Method  string       `json:"method"`
	Mode    string       `json:"mode"`
	In1     *array.Dense `json:"in1"`
	In2     *array.Dense `json:"in2"`
}

// ConvolveResponse is the result of POST /v1/convolve. The array is always
// returned from host memory.
type ConvolveResponse struct {
	Backend string       `json:"backend"`
	Method  string       `json:"method"`
	Mode    string       `json:"mode"`
	Result  *array.Dense `json:"result"`
}

// BackendsResponse is the result of GET /v1/backends.
type BackendsResponse struct {
	Capabilities backend.Capabilities        `json:"capabilities"`
	Modules      map[string]array.DeviceInfo `json:"modules"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func New(r *backend.Resolver, cfg *config.Config, log *zap.Logger) *Service {
	caps := r.Capabilities()
	metrics.BackendAvailable.WithLabelValues(backend.NameGPU).Set(boolGauge(caps.GPUArray))
	metrics.BackendAvailable.WithLabelValues("cusignal").Set(boolGauge(caps.GPUSignal))
	return &Service{resolver: r, cfg: cfg, log: log.Named("service")}
}

// Handler returns the routes of the service, each wrapped with request ids
// and endpoint metrics.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "/v1/convolve", http.MethodPost, s.handleConvolve)
	s.handle(mux, "/v1/backends", http.MethodGet, s.handleBackends)
	s.handle(mux, "/v1/dottest", http.MethodPost, s.handleDotTest)
	return mux
}

func (s *Service) handle(mux *http.ServeMux, path, method string, h http.HandlerFunc) {
	var next http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		h(w, r)
	})
	mux.Handle(path, requestID(metrics.Middleware(next, path)))
}

func (s *Service) handleConvolve(w http.ResponseWriter, r *http.Request) {
	var req ConvolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.In1 == nil || req.In2 == nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("in1 and in2 are required"))
		return
	}
	if req.Backend == "" {
		req.Backend = backend.NameCPU
	}
	method, err := backend.ParseMethod(req.Method)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mode, err := signal.ParseMode(req.Mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	start := time.Now()
	host, err := Convolve(s.resolver, req.Backend, method, mode, req.In1, req.In2, s.cfg.Backend.MaxElements)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	elapsed := time.Since(start)
	metrics.ConvolutionDuration.WithLabelValues(req.Backend, method.String()).Observe(float64(elapsed.Microseconds()) / 1000)
	metrics.ConvolutionOutputSize.Set(float64(host.Size()))

	s.logger(r).Debug("Convolution served",
		zap.String("backend", req.Backend),
		zap.Stringer("method", method),
		zap.Stringer("mode", mode),
		zap.Ints("shape", host.Shape()),
		zap.Duration("elapsed", elapsed))

	s.writeJSON(w, http.StatusOK, ConvolveResponse{
		Backend: req.Backend,
		Method:  method.String(),
		Mode:    mode.String(),
		Result:  host,
	})
}

// Convolve places in1 on the named backend, moves in2 next to it and runs
// the routine the resolver picks for that placement. The result is copied
// back to host memory. Inputs whose full convolution exceeds maxElements are
// rejected before anything is allocated, and results that overflowed to Inf
// or NaN are reported as ErrNonFinite.
func Convolve(r *backend.Resolver, name string, method backend.Method, mode signal.Mode, in1, in2 *array.Dense, maxElements int) (*array.Dense, error) {
	l, err := signal.NewLayout(in1.Shape(), in2.Shape(), mode)
	if err != nil {
		return nil, err
	}
	if err := array.CheckSize(l.Full, maxElements); err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrInvalidArgument, err)
	}

	mod, err := r.Module(name)
	if err != nil {
		return nil, err
	}
	x, err := mod.Asarray(in1)
	if err != nil {
		return nil, err
	}
	h, err := r.CoerceLike(x, in2)
	if err != nil {
		return nil, err
	}
	if h != array.Array(in2) {
		metrics.CoercedBytes.Add(float64(array.Nbytes(in2)))
	}
	fn, err := r.Convolution(x, method)
	if err != nil {
		return nil, err
	}
	out, err := fn(x, h, mode)
	if err != nil {
		return nil, err
	}
	host, err := r.ToHost(out)
	if err != nil {
		return nil, err
	}
	if !host.IsFinite() {
		return nil, fmt.Errorf("%w: result of %s convolution overflowed", array.ErrNonFinite, method)
	}
	return host, nil
}

func (s *Service) handleBackends(w http.ResponseWriter, r *http.Request) {
	resp := BackendsResponse{
		Capabilities: s.resolver.Capabilities(),
		Modules:      make(map[string]array.DeviceInfo),
	}
	for _, name := range []string{backend.NameCPU, backend.NameGPU} {
		mod, err := s.resolver.Module(name)
		if err != nil {
			continue
		}
		info := mod.Info()
		resp.Modules[name] = info
		if mod.Device() == array.CUDA {
			metrics.GPUMemoryUsedBytes.Set(float64(info.TotalMemory - info.AvailableMemory))
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleDotTest(w http.ResponseWriter, r *http.Request) {
	var p dottest.Params
	if !s.decode(w, r, &p) {
		return
	}
	if p.Tolerance == 0 {
		p.Tolerance = s.cfg.DotTest.Tolerance
	}
	if p.Seed == 0 {
		p.Seed = s.cfg.DotTest.Seed
	}
	p.MaxElements = s.cfg.Backend.MaxElements

	res, err := dottest.Convolution(s.resolver, p)
	switch {
	case err == nil:
		metrics.DotTests.WithLabelValues(res.Backend, "passed").Inc()
	case errors.Is(err, dottest.ErrMismatch):
		// A failed comparison is a result, not a request error.
		metrics.DotTests.WithLabelValues(res.Backend, "failed").Inc()
		s.logger(r).Warn("Dot test failed", zap.Error(err))
	default:
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, err)
			return false
		}
		s.writeError(w, r, http.StatusBadRequest, err)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// fail maps err to a status code, counts resolver failures and writes the
// error body.
func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, reason := StatusFor(err)
	if reason != "" {
		metrics.ResolutionErrors.WithLabelValues(reason).Inc()
	}
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented && status != http.StatusServiceUnavailable {
		s.logger(r).Error("Request failed", zap.Error(err))
	} else {
		s.logger(r).Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	s.writeError(w, r, status, err)
}

// StatusFor returns the HTTP status for err and, for resolver errors, the
// reason label recorded in metrics.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, backend.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, backend.ErrNotSupported):
		return http.StatusNotImplemented, "not_supported"
	case errors.Is(err, backend.ErrMissingDependency):
		return http.StatusServiceUnavailable, "missing_dependency"
	case errors.Is(err, array.ErrNonFinite):
		return http.StatusUnprocessableEntity, ""
	case errors.Is(err, array.ErrShape),
		errors.Is(err, array.ErrTooLarge),
		errors.Is(err, signal.ErrMode),
		errors.Is(err, signal.ErrDimensionality),
		errors.Is(err, signal.ErrValidMode):
		return http.StatusBadRequest, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: RequestID(r.Context())})
}

// writeJSON encodes v before touching the response, so an encoding failure
// still reaches the client as a 500.
func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Service) logger(r *http.Request) *zap.Logger {
	return s.log.With(zap.String("requestId", RequestID(r.Context())), zap.String("path", r.URL.Path))
}

// requestID propagates the caller's request id or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
