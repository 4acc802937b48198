// Package shutdown runs a blocking practice loop until it returns or the
// process is interrupted, then releases registered resources such as the
// audio device.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultTimeout bounds how long the loop and cleanups may take after a
// signal.
const DefaultTimeout = 2 * time.Second

// Func releases one resource.
type Func func(ctx context.Context) error

type cleanup struct {
	name string
	fn   Func
}

// Runner coordinates a run loop with signal handling and ordered cleanup.
type Runner struct {
	logger   *slog.Logger
	timeout  time.Duration
	cleanups []cleanup

	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)
}

// New creates a Runner. A non-positive timeout uses DefaultTimeout.
func New(logger *slog.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		logger:  logger,
		timeout: timeout,
		notify:  signal.Notify,
		stop:    signal.Stop,
	}
}

// OnShutdown registers fn to run after the loop ends. Cleanups run in
// reverse registration order.
func (r *Runner) OnShutdown(name string, fn Func) {
	r.cleanups = append(r.cleanups, cleanup{name: name, fn: fn})
}

// Run calls run with a context that is cancelled on SIGINT, SIGTERM or when
// ctx ends, then runs the cleanups. A cancelled loop is not an error.
func (r *Runner) Run(ctx context.Context, run func(ctx context.Context) error) error {
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- run(runCtx)
	}()

	sigChan := make(chan os.Signal, 1)
	r.notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer r.stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		r.logger.Info("received signal, stopping practice", "signal", sig)
		runCancel()
		runErr = r.waitRun(runDone)

	case <-ctx.Done():
		runErr = r.waitRun(runDone)

	case runErr = <-runDone:
	}

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, r.runCleanups())
}

// waitRun waits up to the timeout for the loop to return.
func (r *Runner) waitRun(runDone <-chan error) error {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case err := <-runDone:
		return err
	case <-timer.C:
		r.logger.Warn("shutdown timeout exceeded waiting for practice loop")
		return nil
	}
}

func (r *Runner) runCleanups() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var errs []error
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		c := r.cleanups[i]
		if err := c.fn(ctx); err != nil {
			r.logger.Error("cleanup failed", "name", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	r.logger.Debug("shutdown complete", "cleanups", len(r.cleanups))
	return errors.Join(errs...)
}
