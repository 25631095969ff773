package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiff/internal/formatter"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/services"
	"golang.org/x/time/rate"
)

// DispatcherOpts configures a [Dispatcher].
type DispatcherOpts struct {
	RateLimit float64      // Sends per second per sink (default: unlimited)
	Burst     int          // Limiter burst (default: 1)
	Users     UserResolver // Optional display-name source for rendering
	Logger    *log.Logger
}

// TargetReport counts deliveries to a single destination.
type TargetReport struct {
	Sink   string
	Target services.Target
	Sent   int
	Failed int
	Err    error // Last send error, if any
}

// DispatchReport summarizes one fan-out.
type DispatchReport struct {
	Notices    int
	Targets    []TargetReport
	SinkErrors map[string]error // Sinks whose destinations could not be listed
}

// Sent returns the number of successful deliveries across all targets.
func (r *DispatchReport) Sent() int {
	n := 0
	for _, t := range r.Targets {
		n += t.Sent
	}
	return n
}

// Failed returns the number of failed deliveries across all targets.
func (r *DispatchReport) Failed() int {
	n := 0
	for _, t := range r.Targets {
		n += t.Failed
	}
	return n
}

// Dispatcher renders actionable results and delivers them to every destination of every sink.
//
// Sinks are visited concurrently; the destinations of one sink are visited in order, paced by that sink's limiter.
// A failure at one destination is logged and never prevents delivery elsewhere.
type Dispatcher struct {
	sinks    []services.Sink
	limiters []*rate.Limiter
	users    UserResolver
	logger   *log.Logger
}

// NewDispatcher creates a dispatcher over sinks.
func NewDispatcher(opts DispatcherOpts, sinks ...services.Sink) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	limiters := make([]*rate.Limiter, len(sinks))
	for i := range sinks {
		limiters[i] = rate.NewLimiter(limit, opts.Burst)
	}

	return &Dispatcher{sinks: sinks, limiters: limiters, users: opts.Users, logger: opts.Logger}
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch delivers the actionable subset of results. Only a cancelled ctx is returned as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, results []models.Result, progress chan<- ProgressUpdate) (*DispatchReport, error) {
	notices := d.render(ctx, results)
	report := &DispatchReport{Notices: len(notices), SinkErrors: map[string]error{}}
	if len(notices) == 0 || len(d.sinks) == 0 {
		return report, nil
	}

	perSink := make([][]TargetReport, len(d.sinks))
	sinkErrs := make([]error, len(d.sinks))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		step int
	)
	tick := func(sink, target string) {
		mu.Lock()
		step++
		sendProgress(progress, dispatchUpdate(step, sink, target))
		mu.Unlock()
	}

	for i, sink := range d.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perSink[i], sinkErrs[i] = d.deliver(ctx, sink, d.limiters[i], notices, tick)
		}()
	}
	wg.Wait()

	for i, sink := range d.sinks {
		report.Targets = append(report.Targets, perSink[i]...)
		if sinkErrs[i] != nil {
			report.SinkErrors[sink.Name()] = sinkErrs[i]
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (d *Dispatcher) deliver(
	ctx context.Context,
	sink services.Sink,
	limiter *rate.Limiter,
	notices []*formatter.Notice,
	tick func(sink, target string),
) ([]TargetReport, error) {
	logger := d.logger.With("sink", sink.Name())

	targets, err := sink.Targets(ctx)
	if err != nil {
		logger.Warn("failed to list destinations", "error", err)
		return nil, err
	}

	reports := make([]TargetReport, 0, len(targets))
	for _, target := range targets {
		tr := TargetReport{Sink: sink.Name(), Target: target}

		for _, notice := range notices {
			if err := limiter.Wait(ctx); err != nil {
				tr.Failed++
				tr.Err = err
				continue
			}

			if err := sink.Send(ctx, target, notice); err != nil {
				tr.Failed++
				tr.Err = err
				logger.Warn("failed to deliver notice", "target", target.Label, "track", notice.Track.ID, "error", err)
				continue
			}
			tr.Sent++
		}

		tick(sink.Name(), target.Label)
		reports = append(reports, tr)
	}

	return reports, nil
}

// render builds one notice per actionable result, resolving contributor names through the user cache.
func (d *Dispatcher) render(ctx context.Context, results []models.Result) []*formatter.Notice {
	names := func(id string) string {
		if d.users == nil {
			return ""
		}
		user, err := d.users.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				d.logger.Warn("failed to resolve display name", "user", id, "error", err)
			}
			return ""
		}
		if user == nil {
			return ""
		}
		return user.DisplayName
	}

	var notices []*formatter.Notice
	for _, r := range models.Actionable(results) {
		notice, err := formatter.NewNotice(r, names)
		if err != nil {
			d.logger.Warn("failed to render notice", "track", r.Track.ID, "error", err)
			continue
		}
		notices = append(notices, notice)
	}
	return notices
}
