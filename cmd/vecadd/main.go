// Command vecadd adds two float32 vectors on a compute device.
//
// Usage:
//
//	vecadd -i input0.raw,input1.raw [-o output.raw] [-e expected.raw]
//
// Vectors use the text format of internal/vecio. The exit status is 0 on
// success and -1 on any failure.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/vecadd"
	"github.com/gogpu/vecadd/backend"
	_ "github.com/gogpu/vecadd/backend/wgpu"
	"github.com/gogpu/vecadd/internal/vecio"
)

const (
	exitOK      = 0
	exitFailure = -1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type config struct {
	inputs   string
	output   string
	expected string
	backend  string
	platform int
	device   int
	wg       int
	tol      float64
	verbose  bool
	list     bool
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var c config
	fs := flag.NewFlagSet("vecadd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.inputs, "i", "", "comma-separated input files (two)")
	fs.StringVar(&c.output, "o", "", "output file")
	fs.StringVar(&c.expected, "e", "", "expected output file to check the result against")
	fs.StringVar(&c.backend, "backend", "", "backend name (default: all registered, in priority order)")
	fs.IntVar(&c.platform, "platform", 0, "platform index")
	fs.IntVar(&c.device, "device", 0, "device index")
	fs.IntVar(&c.wg, "wg", backend.DefaultWorkGroupSize, "work-group size")
	fs.Float64Var(&c.tol, "tol", 1e-5, "relative tolerance of the solution check")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	fs.BoolVar(&c.list, "list", false, "list platforms and devices, then exit")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	return c, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	c, err := parseFlags(args, stderr)
	if err != nil {
		return exitFailure
	}

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	vecadd.SetLogger(logger)
	defer vecadd.SetLogger(nil)

	platforms, err := backendPlatforms(c.backend)
	if err != nil {
		logger.Error("vecadd: enumerating platforms", "error", err)
		return exitFailure
	}
	if c.list {
		listPlatforms(stdout, platforms)
		return exitOK
	}

	if err := compute(c, platforms, stdout); err != nil {
		logger.Error("vecadd: failed", "error", err)
		return exitFailure
	}
	return exitOK
}

// backendPlatforms returns the platforms of one backend, or of all of them.
func backendPlatforms(name string) ([]backend.Platform, error) {
	if name == "" {
		return vecadd.Platforms(), nil
	}
	return backend.Get(name)
}

func compute(c config, platforms []backend.Platform, stdout io.Writer) error {
	files := strings.Split(c.inputs, ",")
	if c.inputs == "" || len(files) != 2 {
		return errors.New("-i needs exactly two comma-separated input files")
	}

	timer := vecadd.NewTimer()
	const importMsg = "importing data and creating memory on host"
	timer.Start(vecadd.TimeGeneric, importMsg)
	a, err := vecio.ReadFile(files[0])
	if err != nil {
		timer.Stop(vecadd.TimeGeneric, importMsg)
		return err
	}
	b, err := vecio.ReadFile(files[1])
	timer.Stop(vecadd.TimeGeneric, importMsg)
	if err != nil {
		return err
	}

	p, err := vecadd.New(
		vecadd.WithPlatforms(platforms...),
		vecadd.WithPlatformIndex(c.platform),
		vecadd.WithDeviceIndex(c.device),
		vecadd.WithWorkGroupSize(c.wg),
		vecadd.WithTimer(timer),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := p.Run(a, b)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if c.output != "" {
		if err := vecio.WriteFile(c.output, out); err != nil {
			return err
		}
	}

	pr := message.NewPrinter(language.English)
	pr.Fprintf(stdout, "added %d elements on %s in %v\n", len(out), platforms[c.platform].Name(), elapsed.Round(time.Microsecond))

	if c.expected != "" {
		want, err := vecio.ReadFile(c.expected)
		if err != nil {
			return err
		}
		if err := vecio.Compare(out, want, c.tol); err != nil {
			return fmt.Errorf("solution check: %w", err)
		}
		pr.Fprintf(stdout, "solution is correct (%d elements)\n", len(want))
	}
	return nil
}

func listPlatforms(w io.Writer, platforms []backend.Platform) {
	if len(platforms) == 0 {
		fmt.Fprintln(w, "no compute platforms available")
		return
	}
	for i, p := range platforms {
		fmt.Fprintf(w, "platform %d: %s (%s)\n", i, p.Name(), p.Dialect())
		ctx, err := p.CreateContext()
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}
		devices, err := ctx.Devices()
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
		}
		for j, d := range devices {
			fmt.Fprintf(w, "  device %d: %s\n", j, d.Name())
		}
		if err := ctx.Release(); err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
		}
	}
}
