package vecadd

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/vecadd/backend"
)

// Timing messages.
const (
	msgUpload  = "allocating and copying memory to the GPU"
	msgCompute = "performing computation"
	msgCopy    = "copying output memory to the CPU"
	msgFree    = "freeing GPU memory"
)

// Pipeline adds float32 vectors on a compute device.
//
// Each Run creates a private execution context, builds the kernel,
// uploads the inputs, launches the kernel, reads back the result and
// releases every device resource in reverse creation order, on success
// and on failure alike.
//
// A Pipeline serializes concurrent Run calls.
type Pipeline struct {
	mu    sync.Mutex
	opts  options
	log   *slog.Logger
	timer Timer
	state State
}

// New creates a pipeline with the given options.
// It returns ErrInvalidConfig if the resulting configuration is invalid.
// No device is touched until Run.
func New(opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{opts: o, timer: o.timer, log: o.logger}
	if p.timer == nil {
		p.timer = newLogTimer(p.logger)
	}
	return p, nil
}

// Run adds a and b element-wise with a one-shot pipeline.
func Run(a, b []float32, opts ...Option) ([]float32, error) {
	p, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return p.Run(a, b)
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.opts.config
}

// State returns the state of the most recent run.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// logger returns the per-pipeline logger, falling back to the package one.
func (p *Pipeline) logger() *slog.Logger {
	if p.log != nil {
		return p.log
	}
	return Logger()
}

// Run computes a[i] + b[i] for every i on the configured platform.
//
// The inputs must be non-empty and of equal length; they are not modified.
// On failure every device resource created during the run has been
// released when Run returns, and the error wraps one of the package's
// Err* values.
func (p *Pipeline) Run(a, b []float32) (result []float32, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := p.logger()
	p.state = StateInit

	n, err := checkInputs(a, b)
	if err != nil {
		p.state = StateFailed
		return nil, err
	}
	log.Debug("vecadd: input length", "n", n)

	cfg := p.opts.config
	rel := newCleanup(log)
	op := "select platform"

	defer func() {
		if rel.len() > 0 {
			_ = timed(p.timer, TimeGPU, msgFree, rel.run)
		}
		if err != nil {
			log.Error("vecadd: pipeline failed", "op", op, "state", p.state.String(), "error", err)
			p.state = StateFailed
			result = nil
			return
		}
		p.state = StateTorndown
	}()

	candidates := p.opts.platforms
	if !p.opts.injected {
		candidates = Platforms()
	}
	platform, err := selectPlatform(candidates, cfg.PlatformIndex)
	if err != nil {
		return nil, err
	}
	propagateLogger(platform, log)

	op = "create execution context"
	ec, err := newExecutionContext(platform, cfg.DeviceIndex, rel, log)
	if err != nil {
		return nil, err
	}
	p.advance()

	op = "build kernel"
	source := cfg.sourceFor(platform.Dialect())
	if source == "" {
		return nil, &CompileError{
			EntryPoint: cfg.EntryPoint,
			Err:        fmt.Errorf("no kernel source for dialect %s", platform.Dialect()),
		}
	}
	kernel, err := compile(ec, source, cfg.EntryPoint, cfg.buildOptions(), rel, log)
	if err != nil {
		return nil, err
	}
	p.advance()

	op = "upload buffers"
	var in1, in2, out backend.Buffer
	err = timed(p.timer, TimeGPU, msgUpload, func() error {
		var err error
		if in1, err = uploadReadOnly(ec, "input1", a, rel, log); err != nil {
			return err
		}
		if in2, err = uploadReadOnly(ec, "input2", b, rel, log); err != nil {
			return err
		}
		out, err = allocateWriteOnly(ec, "output", n, rel, log)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.advance()

	op = "launch kernel"
	geometry := backend.ComputeGeometry(n, cfg.WorkGroupSize)
	err = timed(p.timer, TimeCompute, msgCompute, func() error {
		if err := bindArguments(kernel, in1, in2, out, int32(n)); err != nil {
			return err
		}
		return launchAndWait(ec, kernel, geometry, rel, log)
	})
	if err != nil {
		return nil, err
	}
	p.advance()

	op = "read results"
	host := make([]float32, n)
	err = timed(p.timer, TimeCopy, msgCopy, func() error {
		return download(ec, out, host)
	})
	if err != nil {
		return nil, err
	}
	p.advance()

	return host, nil
}

// advance moves the run to the next state on the success path.
func (p *Pipeline) advance() {
	p.state = p.state.next()
	p.logger().Debug("vecadd: state", "state", p.state.String())
}

// checkInputs validates the host arrays before any device interaction
// and returns their common length.
func checkInputs(a, b []float32) (int, error) {
	if len(a) == 0 && len(b) == 0 {
		return 0, ErrEmptyInput
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d and %d elements", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d elements", ErrInputTooLarge, len(a))
	}
	return len(a), nil
}
