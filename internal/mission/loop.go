package mission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	Running State = iota
	Done
)

// State is the mission lifecycle state.
type State int

func (s State) String() string {
	if s == Done {
		return "done"
	}
	return "running"
}

// Gate reports whether a task is due. It resets itself when it returns true.
type Gate interface {
	Ready() bool
}

// Acquirer samples the sensors once.
type Acquirer interface {
	Acquire() error
}

// Animator advances the status display by one frame.
type Animator interface {
	Advance() error
}

// Clearer blanks the status display.
type Clearer interface {
	Clear() error
}

// Flusher writes out buffered records.
type Flusher interface {
	Flush() error
}

// Gates are the three timers driving the loop.
type Gates struct {
	Mission     Gate // Ends the mission when ready
	Acquisition Gate // Paces sensor sampling
	Display     Gate // Paces display animation
}

// Result is the outcome of a single loop iteration.
type Result struct {
	Acquired  bool  // Acquisition ran and succeeded
	Displayed bool  // Display advanced
	Err       error // Why the iteration failed, nil on success
}

// Failed returns true if any step of the iteration failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Stats are counters collected over a mission.
type Stats struct {
	Iterations   uint64
	Acquisitions uint64
	Frames       uint64
	Failures     uint64
}

// WithLogger sets the logger for the loop
func WithLogger(logger *slog.Logger) func(*Loop) {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPollInterval makes the loop sleep between iterations instead of
// busy-polling the gates.
func WithPollInterval(d time.Duration) func(*Loop) {
	return func(l *Loop) {
		l.pollInterval = d
	}
}

// WithFlushOnExit flushes pending records when the mission ends. Without it
// records buffered since the last flush are dropped on exit.
func WithFlushOnExit(f Flusher) func(*Loop) {
	return func(l *Loop) {
		l.flusher = f
	}
}

// Loop is a single-threaded polling scheduler. It acquires sensor records
// and animates the display at the pace of their gates until the mission gate
// fires or the context is cancelled. A failing iteration is logged and never
// ends the mission.
type Loop struct {
	gates    Gates
	acquirer Acquirer
	animator Animator
	display  Clearer
	flusher  Flusher

	pollInterval time.Duration

	state  State
	stats  Stats
	logger *slog.Logger
}

// NewLoop creates a mission loop.
func NewLoop(gates Gates, acquirer Acquirer, animator Animator, display Clearer, options ...func(*Loop)) (*Loop, error) {
	if gates.Mission == nil || gates.Acquisition == nil || gates.Display == nil {
		return nil, errors.New("mission, acquisition and display gates required")
	}
	if acquirer == nil || animator == nil || display == nil {
		return nil, errors.New("acquirer, animator and display required")
	}

	l := Loop{
		gates:    gates,
		acquirer: acquirer,
		animator: animator,
		display:  display,
		state:    Running,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l, nil
}

// Run drives the mission until the mission gate fires or ctx is done, then
// clears the display once.
func (l *Loop) Run(ctx context.Context) error {
	if l.state == Done {
		return errors.New("mission already completed")
	}

	l.logger.Info("mission started", slog.String("utc", time.Now().UTC().String()))

	for !l.gates.Mission.Ready() {
		if ctx.Err() != nil {
			l.logger.Warn("mission interrupted", slog.String("reason", context.Cause(ctx).Error()))
			break
		}

		if res := l.Step(); res.Failed() {
			l.stats.Failures++
			l.logger.Error(fmt.Sprintf("%T: %s", unwrapAll(res.Err), res.Err.Error()))
		}

		if l.pollInterval > 0 {
			time.Sleep(l.pollInterval)
		}
	}

	return l.finish()
}

// Step runs one iteration: acquisition if its gate is open, then the display
// if its gate is open. Steps are independent; a failed acquisition does not
// skip the display.
func (l *Loop) Step() Result {
	var res Result
	var errs []error

	l.stats.Iterations++

	if l.gates.Acquisition.Ready() {
		if err := l.acquirer.Acquire(); err != nil {
			errs = append(errs, fmt.Errorf("acquisition: %w", err))
		} else {
			res.Acquired = true
			l.stats.Acquisitions++
		}
	}

	if l.gates.Display.Ready() {
		if err := l.animator.Advance(); err != nil {
			errs = append(errs, fmt.Errorf("display: %w", err))
		} else {
			res.Displayed = true
			l.stats.Frames++
		}
	}

	res.Err = errors.Join(errs...)
	return res
}

func (l *Loop) finish() error {
	l.state = Done

	var errs []error
	if l.flusher != nil {
		if err := l.flusher.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flushing pending records: %w", err))
		}
	}
	if err := l.display.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("clearing display: %w", err))
	}

	l.logger.Info("mission done",
		slog.String("utc", time.Now().UTC().String()),
		slog.Group("stats",
			slog.String("iterations", humanize.Comma(int64(l.stats.Iterations))),
			slog.String("acquisitions", humanize.Comma(int64(l.stats.Acquisitions))),
			slog.String("frames", humanize.Comma(int64(l.stats.Frames))),
			slog.String("failures", humanize.Comma(int64(l.stats.Failures))),
		))

	return errors.Join(errs...)
}

// State returns the mission state.
func (l *Loop) State() State {
	return l.state
}

// Stats returns the mission counters.
func (l *Loop) Stats() Stats {
	return l.stats
}

// unwrapAll returns the innermost error of a wrap chain, which names the
// failing component better than the wrapping *fmt.wrapError does.
func unwrapAll(err error) error {
	for {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			errs := joined.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[0]
			continue
		}
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
