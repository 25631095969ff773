package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/juju/clock"
)

// DefaultInterval is the wait between the end of one pass and the start of the next.
const DefaultInterval = 10 * time.Minute

// TickFunc observes the outcome of each scheduled pass.
type TickFunc func(pass *PassResult, report *DispatchReport, err error)

// WatcherOpts configures a [Watcher].
type WatcherOpts struct {
	Interval time.Duration
	Clock    clock.Clock
	Logger   *log.Logger
	OnTick   TickFunc
	Progress chan<- ProgressUpdate
}

// Watcher runs passes followed by their fan-out on a fixed interval.
//
// The next wait starts only after the previous pass and its dispatch have returned, so passes never overlap.
type Watcher struct {
	runner     *PassRunner
	dispatcher *Dispatcher
	playlistID string
	interval   time.Duration
	clock      clock.Clock
	logger     *log.Logger
	onTick     TickFunc
	progress   chan<- ProgressUpdate
}

// NewWatcher creates a watcher for playlistID. dispatcher may be nil to classify without notifying.
func NewWatcher(runner *PassRunner, dispatcher *Dispatcher, playlistID string, opts WatcherOpts) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Watcher{
		runner:     runner,
		dispatcher: dispatcher,
		playlistID: playlistID,
		interval:   opts.Interval,
		clock:      opts.Clock,
		logger:     opts.Logger,
		onTick:     opts.OnTick,
		progress:   opts.Progress,
	}
}

// Watch runs a pass immediately and then once per interval until ctx is cancelled.
//
// Failed passes are logged and retried on the next tick. Cancellation returns nil.
func (w *Watcher) Watch(ctx context.Context) error {
	w.logger.Info("watching playlist", "playlist", w.playlistID, "interval", w.interval)

	for {
		if ctx.Err() != nil {
			return nil
		}

		pass, report, err := w.Tick(ctx)
		if w.onTick != nil {
			w.onTick(pass, report, err)
		}

		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			w.logger.Warn("pass failed, retrying next tick", "interval", w.interval, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-w.clock.After(w.interval):
		}
	}
}

// Tick runs one pass and dispatches its actionable results.
func (w *Watcher) Tick(ctx context.Context) (*PassResult, *DispatchReport, error) {
	pass, err := w.runner.Run(ctx, w.playlistID, w.progress)
	if err != nil {
		return pass, nil, err
	}

	if w.dispatcher == nil || len(pass.Actionable) == 0 {
		return pass, nil, nil
	}

	report, err := w.dispatcher.Dispatch(ctx, pass.Actionable, w.progress)
	if err != nil {
		return pass, report, err
	}

	if report.Failed() > 0 || len(report.SinkErrors) > 0 {
		w.logger.Warn("some notices were not delivered", "sent", report.Sent(), "failed", report.Failed(), "sinks_failed", len(report.SinkErrors))
	} else {
		w.logger.Info("notices delivered", "notices", report.Notices, "sent", report.Sent())
	}

	return pass, report, nil
}
