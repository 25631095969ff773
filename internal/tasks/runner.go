package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/services"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/juju/clock"
)

// PassLog records pass history. See [repositories.PassRepository].
type PassLog interface {
	Create(ctx context.Context, playlistID string, startedAt time.Time) (*models.Pass, error)
	Finish(ctx context.Context, pass *models.Pass, finishedAt time.Time) error
}

// PassResult contains all data from one fetch-and-classify cycle.
type PassResult struct {
	Pass       *models.Pass    // Counters and identity of the pass
	Baseline   string          // High-water mark captured before the first track
	Results    []models.Result // Every classified track, in fetch order
	Actionable []models.Result // NewTrack and Conflict results only
}

// PassRunnerOpts configures a [PassRunner].
type PassRunnerOpts struct {
	PageSize int         // Items per source request (default: 100)
	Passes   PassLog     // Optional pass history
	Logger   *log.Logger // Defaults to [log.Default]
	Clock    clock.Clock // Defaults to [clock.WallClock]
}

// PassRunner pages a playlist through the [DiffEngine] and prunes tracks that left the playlist.
//
// At most one Run is in flight at a time; a concurrent call fails with [shared.ErrPassInFlight].
type PassRunner struct {
	mu       sync.Mutex
	engine   *DiffEngine
	source   services.PlaylistSource
	store    TrackStore
	passes   PassLog
	logger   *log.Logger
	clock    clock.Clock
	pageSize int
}

// NewPassRunner creates a runner over source feeding engine, which must classify against store.
func NewPassRunner(engine *DiffEngine, source services.PlaylistSource, store TrackStore, opts PassRunnerOpts) *PassRunner {
	if opts.PageSize <= 0 {
		opts.PageSize = services.DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}

	return &PassRunner{
		engine:   engine,
		source:   source,
		store:    store,
		passes:   opts.Passes,
		logger:   opts.Logger,
		clock:    opts.Clock,
		pageSize: opts.PageSize,
	}
}

// Run performs one pass over playlistID.
//
// A page fetch or store failure aborts the remainder of the pass; store mutations already made are kept
// and pruning is skipped. The pass is recorded in the pass log either way.
func (r *PassRunner) Run(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*PassResult, error) {
	if r.source == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}
	if !r.mu.TryLock() {
		return nil, shared.ErrPassInFlight
	}
	defer r.mu.Unlock()

	started := r.clock.Now()
	pass := &models.Pass{PlaylistID: playlistID, StartedAt: started}
	if r.passes != nil {
		created, err := r.passes.Create(ctx, playlistID, started)
		if err != nil {
			return nil, fmt.Errorf("failed to record pass: %w", err)
		}
		pass = created
	}

	logger := shared.WithLogger(r.logger, "pass", pass.Sequence)
	result := &PassResult{Pass: pass}

	runErr := r.run(ctx, logger, result, progress)
	if runErr != nil {
		pass.Error = runErr.Error()
		logger.Error("pass failed", "playlist", playlistID, "fetched", pass.Fetched, "error", runErr)
	}

	if r.passes != nil {
		if err := r.passes.Finish(context.WithoutCancel(ctx), pass, r.clock.Now()); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to finish pass: %w", err)
		}
	} else {
		finished := r.clock.Now()
		pass.FinishedAt = &finished
	}

	if runErr != nil {
		return result, runErr
	}

	logger.Info("pass complete",
		"fetched", pass.Fetched,
		"new", pass.New,
		"conflicts", pass.Conflicts,
		"existing", pass.Existing,
		"backfilled", pass.Backfilled,
		"purged", pass.Purged,
	)
	sendProgress(progress, passCompleteUpdate(result))

	return result, nil
}

func (r *PassRunner) run(ctx context.Context, logger *log.Logger, result *PassResult, progress chan<- ProgressUpdate) error {
	pass := result.Pass

	if err := r.engine.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin pass: %w", err)
	}
	result.Baseline = r.engine.Baseline()
	sendProgress(progress, beginPassUpdate(pass, result.Baseline))

	page := 0
	err := r.source.PlaylistTracks(ctx, pass.PlaylistID, r.pageSize, func(tracks []models.Track) error {
		page++
		sendProgress(progress, fetchPageUpdate(page, len(tracks)))

		results, err := r.engine.ClassifyBatch(ctx, tracks)
		for _, res := range results {
			pass.Tally(res)
			result.Results = append(result.Results, res)
			sendProgress(progress, classifyUpdate(pass.Fetched, res))
			if res.Actionable() {
				logger.Info("actionable track", "outcome", res.Outcome, "track", res.Track.DebugString(), "conflicts", len(res.Conflicts))
			}
		}
		return err
	})
	result.Actionable = models.Actionable(result.Results)
	if err != nil {
		return fmt.Errorf("pass aborted after %d tracks: %w", pass.Fetched, err)
	}

	purged, err := r.store.PurgeUnrefreshed(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge tracks: %w", err)
	}
	pass.Purged = int(purged)
	sendProgress(progress, purgeUpdate(purged))

	return nil
}
