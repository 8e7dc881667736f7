package watchdog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/probe"
	"github.com/core-tools/hsu-watchdog/pkg/remediation"
)

// Dispatcher runs the remediation for one probe outcome
type Dispatcher interface {
	Dispatch(ctx context.Context, outcome probe.Outcome) remediation.Action
}

// Observer is notified after every completed cycle
type Observer interface {
	ObserveCycle(report CycleReport)
}

// CycleReport summarises one sleep-probe-classify-dispatch cycle
type CycleReport struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Outcome  probe.Outcome
	Action   remediation.Action
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Watchdog is the process-wide control loop. It owns no state that
// outlives a cycle.
type Watchdog struct {
	delay      time.Duration
	prober     probe.Prober
	dispatcher Dispatcher
	observers  []Observer
	sleep      SleepFunc
	logger     logging.Logger
}

// Option customises a Watchdog
type Option func(*Watchdog)

// WithObserver registers an observer for cycle reports
func WithObserver(observer Observer) Option {
	return func(w *Watchdog) {
		w.observers = append(w.observers, observer)
	}
}

// WithSleep replaces the sleep between cycles
func WithSleep(sleep SleepFunc) Option {
	return func(w *Watchdog) {
		w.sleep = sleep
	}
}

// New creates a watchdog that waits delay before every probe
func New(delay time.Duration, prober probe.Prober, dispatcher Dispatcher, logger logging.Logger, opts ...Option) (*Watchdog, error) {
	if delay < 0 {
		return nil, errors.NewValidationError("delay cannot be negative", nil)
	}
	if prober == nil {
		return nil, errors.NewValidationError("prober is required", nil)
	}
	if dispatcher == nil {
		return nil, errors.NewValidationError("dispatcher is required", nil)
	}

	w := &Watchdog{
		delay:      delay,
		prober:     prober,
		dispatcher: dispatcher,
		sleep:      Sleep,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run loops sleep, probe, classify and dispatch until ctx is done. The
// commands pass a background context, so in production it never returns.
func (w *Watchdog) Run(ctx context.Context) error {
	w.logger.Infof("Watchdog loop started, delay: %v", w.delay)

	for {
		w.logger.Debugf("Sleeping, delay: %v", w.delay)
		if err := w.sleep(ctx, w.delay); err != nil {
			w.logger.Infof("Watchdog loop stopped: %v", err)
			return errors.NewCancelledError("watchdog loop stopped", err)
		}

		w.RunCycle(ctx)
	}
}

// RunCycle performs one probe and its remediation, without the leading sleep
func (w *Watchdog) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}

	w.logger.Debugf("Probing, cycle: %s", report.ID)
	report.Outcome = w.prober.Probe(ctx)

	if report.Outcome.Succeeded() {
		w.logger.Debugf("Classified response, cycle: %s, signal: %d, healthy: %t",
			report.ID, report.Outcome.Signal, report.Outcome.IsHealthy())
	}

	report.Action = w.dispatcher.Dispatch(ctx, report.Outcome)
	report.Duration = time.Since(report.Started)

	w.logger.Infof("Cycle finished, cycle: %s, outcome: %s, signal: %d, action: %s, duration: %v",
		report.ID, report.Outcome.Kind, report.Outcome.Signal, report.Action, report.Duration)

	for _, observer := range w.observers {
		observer.ObserveCycle(report)
	}
	return report
}

// Sleep waits for d unless ctx is done first
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
