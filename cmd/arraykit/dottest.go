package main

import (
	"errors"

	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/fxnlabs/arraykit/internal/dottest"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func dotTestCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "dottest",
		Usage: "Check the adjoint of the convolution operator on a backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Value: backend.NameCPU, Usage: "Array backend, numpy or cupy"},
			&cli.StringFlag{Name: "method", Value: "direct", Usage: "direct, fft or oa"},
			&cli.IntFlag{Name: "n", Value: 128, Usage: "Model length"},
			&cli.IntFlag{Name: "taps", Value: 9, Usage: "Filter length"},
			&cli.Float64Flag{Name: "tol", Usage: "Relative tolerance (default from config)"},
			&cli.Int64Flag{Name: "seed", Usage: "Random seed (default from config, 0 for time based)"},
		},
		Action: func(c *cli.Context) error {
			p := dottest.Params{
				Backend:   c.String("backend"),
				Method:    c.String("method"),
				N:         c.Int("n"),
				Taps:      c.Int("taps"),
				Tolerance: e.cfg.DotTest.Tolerance,
				Seed:      e.cfg.DotTest.Seed,

				MaxElements: e.cfg.Backend.MaxElements,
			}
			if c.IsSet("tol") {
				p.Tolerance = c.Float64("tol")
			}
			if c.IsSet("seed") {
				p.Seed = c.Int64("seed")
			}

			r := backend.Detect(e.cfg.Backend, e.log)
			defer r.Close()

			res, err := dottest.Convolution(r, p)
			if err != nil && !errors.Is(err, dottest.ErrMismatch) {
				return err
			}
			if encErr := json.NewEncoder(c.App.Writer).Encode(res); encErr != nil {
				return encErr
			}
			if err != nil {
				e.log.Warn("Dot test failed", zap.Error(err))
			}
			return err
		},
	}
}
