package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/dustin/go-humanize"
	"github.com/fxnlabs/arraykit/internal/array"
	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/urfave/cli/v2"
	"golang.org/x/sys/cpu"
)

func infoCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the available array backends",
		Action: func(c *cli.Context) error {
			r := backend.Detect(e.cfg.Backend, e.log)
			defer r.Close()

			w := c.App.Writer
			fmt.Fprintln(w, figure.NewFigure("arraykit", "", true).String())

			caps := r.Capabilities()
			fmt.Fprintf(w, "GPU arrays (%s):   %s\n", backend.NameGPU, yesNo(caps.GPUArray))
			fmt.Fprintf(w, "GPU signal routines: %s\n", yesNo(caps.GPUSignal))
			fmt.Fprintf(w, "Host CPU features:   %s\n", strings.Join(cpuFeatures(), " "))
			fmt.Fprintln(w)

			for _, name := range []string{backend.NameCPU, backend.NameGPU} {
				mod, err := r.Module(name)
				if err != nil {
					continue
				}
				printDeviceInfo(w, name, mod.Info())
			}
			return nil
		},
	}
}

func printDeviceInfo(w io.Writer, name string, info array.DeviceInfo) {
	fmt.Fprintf(w, "[%s] %s\n", name, info.Name)
	fmt.Fprintf(w, "  memory:  %s total, %s available\n",
		humanize.IBytes(uint64(info.TotalMemory)), humanize.IBytes(uint64(info.AvailableMemory)))
	if info.ComputeCapability != "" && info.ComputeCapability != "N/A" {
		fmt.Fprintf(w, "  compute: %s\n", info.ComputeCapability)
	}
	if info.DriverVersion != "" {
		fmt.Fprintf(w, "  driver:  %s\n", info.DriverVersion)
	}
	if info.CUDAVersion != "" {
		fmt.Fprintf(w, "  cuda:    %s\n", info.CUDAVersion)
	}
}

// cpuFeatures lists the SIMD extensions relevant to the host FFT and dot
// product kernels.
func cpuFeatures() []string {
	var out []string
	switch runtime.GOARCH {
	case "amd64", "386":
		for _, f := range []struct {
			name string
			on   bool
		}{
			{"sse4.1", cpu.X86.HasSSE41},
			{"avx", cpu.X86.HasAVX},
			{"avx2", cpu.X86.HasAVX2},
			{"fma", cpu.X86.HasFMA},
			{"avx512f", cpu.X86.HasAVX512F},
		} {
			if f.on {
				out = append(out, f.name)
			}
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			out = append(out, "asimd")
		}
		if cpu.ARM64.HasSVE {
			out = append(out, "sve")
		}
	}
	if len(out) == 0 {
		out = append(out, "none detected")
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "available"
	}
	return "not available"
}
