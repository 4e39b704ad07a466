package vecadd

import (
	"errors"
	"fmt"
	"log/slog"
)

// releaseStep is one acquired resource awaiting release.
type releaseStep struct {
	what    string
	release func() error
}

// cleanup is a LIFO stack of release functions. Every successfully created
// device handle is pushed right after creation; run releases them in
// reverse creation order, each exactly once.
type cleanup struct {
	log   *slog.Logger
	steps []releaseStep
}

func newCleanup(log *slog.Logger) *cleanup {
	return &cleanup{log: log}
}

// push registers a resource for release.
func (c *cleanup) push(what string, release func() error) {
	c.steps = append(c.steps, releaseStep{what: what, release: release})
}

// len returns the number of resources awaiting release.
func (c *cleanup) len() int { return len(c.steps) }

// run releases every registered resource, newest first, and empties the
// stack. Release failures are logged and joined; they never stop the
// remaining releases.
func (c *cleanup) run() error {
	var errs []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.release(); err != nil {
			c.log.Warn("vecadd: error releasing resource", "resource", step.what, "error", err)
			errs = append(errs, fmt.Errorf("release %s: %w", step.what, err))
			continue
		}
		c.log.Debug("vecadd: released", "resource", step.what)
	}
	c.steps = nil
	return errors.Join(errs...)
}
