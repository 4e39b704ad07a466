package vecadd

import (
	"errors"
	"log/slog"

	"github.com/gogpu/vecadd/backend"
)

// compile builds source and extracts the entry point. The program and
// kernel are pushed on rel as they are created.
//
// A build failure is returned as *CompileError carrying the compiler log.
func compile(ec *executionContext, source, entryPoint string, opts backend.BuildOptions, rel *cleanup, log *slog.Logger) (backend.Kernel, error) {
	program, err := ec.ctx.CreateProgram(source)
	if err != nil {
		return nil, &CompileError{EntryPoint: entryPoint, Err: err}
	}
	rel.push("program", program.Release)

	if err := program.Build(opts); err != nil {
		ce := &CompileError{EntryPoint: entryPoint, Err: err}
		var be *backend.BuildError
		if errors.As(err, &be) {
			ce.Log = be.Log
			if be.Err != nil {
				ce.Err = be.Err
			}
		}
		log.Error("vecadd: kernel build failed", "entry_point", entryPoint, "log", ce.Log)
		return nil, ce
	}

	kernel, err := program.CreateKernel(entryPoint)
	if err != nil {
		return nil, &CompileError{EntryPoint: entryPoint, Err: err}
	}
	rel.push("kernel", kernel.Release)

	log.Debug("vecadd: kernel built",
		"entry_point", kernel.Name(),
		"options", opts.String(),
		"work_group_size", opts.WorkGroupSize)
	return kernel, nil
}
