package backend

import (
	"github.com/fxnlabs/arraykit/internal/config"
	"github.com/fxnlabs/arraykit/internal/gpu"
	"go.uber.org/zap"
)

// Detect probes the optional backends once and returns a resolver over what
// was found. A backend that is disabled, not compiled in, or fails to open is
// recorded as absent; Detect itself never fails.
func Detect(cfg config.Backend, logger *zap.Logger) *Resolver {
	log := logger.Named("backend")

	var (
		gpuModule Module
		ext       SignalExtension
		closer    func() error
	)
	if cfg.GPUEnabled() {
		ctx, err := gpu.Open(cfg.Device, log)
		if err != nil {
			log.Info("GPU array module not available", zap.Error(err))
		} else {
			gpuModule = gpu.NewModule(ctx, log)
			closer = ctx.Close
			if cfg.SignalEnabled() {
				sig, err := gpu.NewSignal(ctx, log)
				if err != nil {
					log.Info("GPU signal extension not available", zap.Error(err))
				} else {
					ext = sig
				}
			} else {
				log.Info("GPU signal extension disabled by configuration")
			}
		}
	} else {
		log.Info("GPU array module disabled by configuration")
	}

	r := New(NewCPUModule(), gpuModule, ext)
	r.closer = closer
	caps := r.Capabilities()
	log.Info("Array backends detected",
		zap.Bool(NameGPU, caps.GPUArray),
		zap.Bool("cusignal", caps.GPUSignal))
	return r
}
