package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	diag "github.com/coreman2200/funtimes-twinkle/internal/diagnostics"
	"github.com/coreman2200/funtimes-twinkle/internal/selftest"
	"github.com/coreman2200/funtimes-twinkle/internal/strip"
	"github.com/coreman2200/funtimes-twinkle/internal/twinkle"
	"github.com/coreman2200/funtimes-twinkle/internal/ws"
)

const (
	DefaultTick = 10 * time.Millisecond
	// TestHold is how many ticks each self-test step stays lit.
	TestHold = 20
)

// Monitor receives a copy of every tick. *ws.Hub implements it.
type Monitor interface {
	Publish(snap twinkle.Snapshot, rgb []byte, t ws.Timing)
	PushDiag(d diag.Diagnostic)
	CountFlushError()
}

// Runner owns the engine and drives it from a single goroutine: read
// buttons, step, render, flush, publish.
type Runner struct {
	Engine  *twinkle.Engine
	Strip   *strip.Strip
	Buttons twinkle.Buttons
	Monitor Monitor
	Tick    time.Duration

	log zerolog.Logger

	mu   sync.Mutex
	test *selftest.Runner

	inputFaults uint64
	flushFaults uint64
}

func NewRunner(e *twinkle.Engine, s *strip.Strip, b twinkle.Buttons, logger zerolog.Logger) *Runner {
	return &Runner{
		Engine:  e,
		Strip:   s,
		Buttons: b,
		Tick:    DefaultTick,
		log:     logger,
	}
}

// RunTest queues a self-test pattern. It takes over the strip from the next
// tick until it completes; the animation is paused meanwhile.
func (r *Runner) RunTest(name string) error {
	kind, ok := selftest.Parse(name)
	if !ok {
		return fmt.Errorf("unknown test: %q", name)
	}
	level := uint8(min(r.Engine.Config().ChannelMax, 255))
	r.mu.Lock()
	r.test = selftest.NewRunner(selftest.Plan{Kind: kind, Hold: TestHold, Level: level})
	r.mu.Unlock()
	r.log.Info().Str("test", name).Msg("self-test queued")
	r.pushDiag(diag.New(diag.Info, diag.TestRunning, "Running test").With("name", name))
	return nil
}

// Testing reports whether a self-test currently owns the strip.
func (r *Runner) Testing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.test != nil
}

// Step runs exactly one tick. Flush errors are returned but never stop the
// animation state from advancing.
func (r *Runner) Step() error {
	start := time.Now()

	if r.stepTest() {
		return r.flush(start)
	}

	res, err := r.Engine.Tick(r.Buttons)
	if err != nil {
		r.inputFault(err)
	}
	if res.TargetChanged {
		target := r.Engine.Target()
		r.log.Info().Int("target", target).Uint64("tick", res.Tick).Msg("target count changed")
		r.pushDiag(diag.New(diag.Info, diag.CountChanged, "Target count changed").With("target", target))
	}
	r.Engine.Render(r.Strip)
	return r.flush(start)
}

// stepTest draws the next self-test frame, if one is running.
func (r *Runner) stepTest() bool {
	r.mu.Lock()
	t := r.test
	r.mu.Unlock()
	if t == nil {
		return false
	}
	if t.Step(r.Strip.Len(), r.Strip) {
		return true
	}

	r.mu.Lock()
	if r.test == t {
		r.test = nil
	}
	r.mu.Unlock()
	r.log.Info().Str("test", string(t.Kind())).Msg("self-test complete")
	r.pushDiag(diag.New(diag.Info, diag.TestDone, "Test complete").With("name", string(t.Kind())))
	return false
}

func (r *Runner) flush(start time.Time) error {
	flushStart := time.Now()
	err := r.Strip.Flush()
	timing := ws.Timing{
		StepMS:  float64(flushStart.Sub(start).Microseconds()) / 1000.0,
		FlushMS: float64(time.Since(flushStart).Microseconds()) / 1000.0,
	}
	if err != nil {
		r.flushFaults++
		if r.flushFaults == 1 {
			r.pushDiag(diag.New(diag.Err, diag.FlushFault, "Strip flush failed").With("error", err.Error()))
		}
		if r.Monitor != nil {
			r.Monitor.CountFlushError()
		}
		r.log.Warn().Err(err).Uint64("faults", r.flushFaults).Msg("flush failed")
		return err
	}

	if r.Monitor != nil {
		r.Monitor.Publish(r.Engine.Snapshot(), r.Strip.RGB(), timing)
	}
	return nil
}

// inputFault logs the first read failure loudly and the rest at debug; the
// engine has already treated the tick as having no press.
func (r *Runner) inputFault(err error) {
	r.inputFaults++
	if r.inputFaults == 1 {
		r.log.Warn().Err(err).Msg("button read failed; treating as released")
		r.pushDiag(diag.New(diag.Warn, diag.InputFault, "Button read failed").With("error", err.Error()))
		return
	}
	r.log.Debug().Err(err).Uint64("faults", r.inputFaults).Msg("button read failed")
}

func (r *Runner) pushDiag(d diag.Diagnostic) {
	if r.Monitor != nil {
		r.Monitor.PushDiag(d)
	}
}

// Run ticks at r.Tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	tick := r.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	r.log.Info().Dur("tick", tick).Int("length", r.Strip.Len()).Int("target", r.Engine.Target()).Msg("twinkle running")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = r.Step()
		}
	}
}
