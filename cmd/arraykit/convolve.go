package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/fxnlabs/arraykit/internal/service"
	"github.com/fxnlabs/arraykit/internal/signal"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func convolveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "convolve",
		Usage: "Convolve two arrays read from JSON files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Value: backend.NameCPU, Usage: "Array backend, numpy or cupy"},
			&cli.StringFlag{Name: "method", Value: "direct", Usage: "direct, fft or oa"},
			&cli.StringFlag{Name: "mode", Value: "full", Usage: "full, same or valid"},
			&cli.PathFlag{Name: "in1", Required: true, Usage: "First input as JSON `FILE`"},
			&cli.PathFlag{Name: "in2", Required: true, Usage: "Second input as JSON `FILE`"},
		},
		Action: func(c *cli.Context) error {
			method, err := backend.ParseMethod(c.String("method"))
			if err != nil {
				return err
			}
			mode, err := signal.ParseMode(c.String("mode"))
			if err != nil {
				return err
			}
			in1, err := readArray(c.Path("in1"))
			if err != nil {
				return err
			}
			in2, err := readArray(c.Path("in2"))
			if err != nil {
				return err
			}

			r := backend.Detect(e.cfg.Backend, e.log)
			defer r.Close()

			start := time.Now()
			out, err := service.Convolve(r, c.String("backend"), method, mode, in1, in2, e.cfg.Backend.MaxElements)
			if err != nil {
				return err
			}
			e.log.Debug("Convolution finished",
				zap.String("backend", c.String("backend")),
				zap.Stringer("method", method),
				zap.Ints("shape", out.Shape()),
				zap.Duration("elapsed", time.Since(start)))

			return json.NewEncoder(c.App.Writer).Encode(out)
		},
	}
}

func readArray(path string) (*array.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d array.Dense
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &d, nil
}
