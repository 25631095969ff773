package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/repositories"
	"github.com/desertthunder/spotdiff/internal/services"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/juju/clock"
)

// ErrPassNotBegun is returned by [DiffEngine.Classify] before [DiffEngine.Begin] has captured a baseline.
var ErrPassNotBegun = errors.New("pass not begun")

// TrackStore is the snapshot contract the engine classifies against. See [repositories.TrackRepository].
type TrackStore interface {
	BeginPass(ctx context.Context) error
	InsertIfAbsent(ctx context.Context, track models.Track) (repositories.InsertOutcome, error)
	RefreshPositionIfStale(ctx context.Context, id string, position int) (bool, error)
	FindTitleConflicts(ctx context.Context, title string, excludeAddedAt *string) ([]models.Track, error)
	FindTitleTwins(ctx context.Context, title string, addedAt *string, excludeID string) ([]models.Track, error)
	HighWaterMark(ctx context.Context) (*string, error)
	PurgeUnrefreshed(ctx context.Context) (int64, error)
}

// UserResolver memoizes contributor lookups. See [repositories.UserCache].
type UserResolver interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Add(ctx context.Context, user models.User) error
}

// DiffEngine classifies freshly fetched tracks against the stored snapshot.
//
// One engine drives one pass at a time; its store calls must not interleave with another pass.
type DiffEngine struct {
	store    TrackStore
	users    UserResolver
	profiles services.UserProfiles
	logger   *log.Logger
	clock    clock.Clock

	baseline string
	begun    bool
}

// NewDiffEngine creates an engine. profiles may be nil, in which case unknown contributors stay unresolved.
func NewDiffEngine(store TrackStore, users UserResolver, profiles services.UserProfiles, logger *log.Logger, clk clock.Clock) *DiffEngine {
	if logger == nil {
		logger = log.Default()
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &DiffEngine{store: store, users: users, profiles: profiles, logger: logger, clock: clk}
}

// Begin resets the refreshed flags and captures the baseline for this pass.
//
// The baseline is the stored high-water mark, or the current time when no stored track carries a timestamp.
func (e *DiffEngine) Begin(ctx context.Context) error {
	e.begun = false

	if err := e.store.BeginPass(ctx); err != nil {
		return err
	}

	mark, err := e.store.HighWaterMark(ctx)
	if err != nil {
		return err
	}

	if mark != nil {
		e.baseline = *mark
	} else {
		e.baseline = shared.FormatTimestamp(e.clock.Now())
	}
	e.begun = true

	e.logger.Debug("captured baseline", "baseline", e.baseline, "from_store", mark != nil)
	return nil
}

// Baseline returns the timestamp captured by the last [DiffEngine.Begin].
func (e *DiffEngine) Baseline() string {
	return e.baseline
}

// Classify stores track and decides its outcome.
//
// Store failures are returned and abort the pass. Profile lookup failures are logged and ignored.
func (e *DiffEngine) Classify(ctx context.Context, track models.Track) (models.Result, error) {
	if !e.begun {
		return models.Result{}, ErrPassNotBegun
	}

	if err := e.resolveContributor(ctx, track); err != nil {
		return models.Result{}, err
	}

	outcome, err := e.store.InsertIfAbsent(ctx, track)
	if err != nil {
		return models.Result{}, err
	}

	if outcome == repositories.AlreadyPresent {
		refreshed, err := e.store.RefreshPositionIfStale(ctx, track.ID, track.Position)
		if err != nil {
			return models.Result{}, err
		}
		if !refreshed {
			e.logger.Debug("track already refreshed this pass", "track", track.DebugString(), "position", track.Position)
		}
		return models.ExistingResult(track), nil
	}

	if track.AddedAt != nil && shared.CompareTimestamps(*track.AddedAt, e.baseline) < 0 {
		return models.PassResult(track), nil
	}

	conflicts, err := e.store.FindTitleConflicts(ctx, track.Title, track.AddedAt)
	if err != nil {
		return models.Result{}, err
	}

	if err := e.flagMaskedConflicts(ctx, track); err != nil {
		return models.Result{}, err
	}

	if len(conflicts) > 0 {
		return models.ConflictResult(track, conflicts), nil
	}
	return models.NewTrackResult(track), nil
}

// ClassifyBatch classifies tracks in order and returns one result per track.
//
// On error the results classified so far are returned alongside it.
func (e *DiffEngine) ClassifyBatch(ctx context.Context, tracks []models.Track) ([]models.Result, error) {
	results := make([]models.Result, 0, len(tracks))
	for _, track := range tracks {
		r, err := e.Classify(ctx, track)
		if err != nil {
			return results, fmt.Errorf("failed to classify %s: %w", track.ID, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (e *DiffEngine) resolveContributor(ctx context.Context, track models.Track) error {
	if track.AddedByID == nil || *track.AddedByID == "" {
		return nil
	}
	id := *track.AddedByID

	user, err := e.users.Get(ctx, id)
	if err != nil {
		return err
	}
	if user != nil || e.profiles == nil {
		return nil
	}

	name, err := e.profiles.DisplayName(ctx, id)
	if err != nil {
		e.logger.Warn("profile lookup failed", "user", id, "error", err)
		return nil
	}
	if name == "" {
		return nil
	}

	return e.users.Add(ctx, models.User{ID: id, DisplayName: name})
}

// flagMaskedConflicts logs stored tracks that share both title and timestamp with track.
//
// The conflict search excludes by timestamp, so such twins never appear in a conflict list.
func (e *DiffEngine) flagMaskedConflicts(ctx context.Context, track models.Track) error {
	twins, err := e.store.FindTitleTwins(ctx, track.Title, track.AddedAt, track.ID)
	if err != nil {
		return err
	}
	for _, twin := range twins {
		e.logger.Warn("masked conflict: same title and added_at",
			"track", track.ID, "twin", twin.ID, "title", track.Title, "added_at", shared.Deref(track.AddedAt))
	}
	return nil
}
