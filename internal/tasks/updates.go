package tasks

import (
	"fmt"

	"github.com/desertthunder/spotdiff/internal/models"
)

// ProgressUpdate represents a progress event during a pass.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	BeginPass Phase = iota
	FetchPage
	ClassifyTracks
	PurgeTracks
	DispatchNotices
	PassComplete
)

func (p Phase) String() string {
	switch p {
	case BeginPass:
		return "begin_pass"
	case FetchPage:
		return "fetch_page"
	case ClassifyTracks:
		return "classify_tracks"
	case PurgeTracks:
		return "purge_tracks"
	case DispatchNotices:
		return "dispatch_notices"
	case PassComplete:
		return "pass_complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func beginPassUpdate(pass *models.Pass, baseline string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BeginPass,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Starting pass #%d (baseline %s)...", pass.Sequence, baseline),
		Data:    pass,
	}
}

func fetchPageUpdate(page, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Message: fmt.Sprintf("Fetched page %d (%d tracks)", page, tracks),
	}
}

func classifyUpdate(step int, r models.Result) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClassifyTracks,
		Step:    step,
		Message: fmt.Sprintf("[%d] %s: %s - %s", step, r.Outcome, r.Track.Artists, r.Track.Title),
		Data:    r,
	}
}

func purgeUpdate(purged int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PurgeTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d tracks no longer in the playlist", purged),
	}
}

func dispatchUpdate(step int, sink, target string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DispatchNotices,
		Step:    step,
		Message: fmt.Sprintf("[%d] %s → %s", step, sink, target),
	}
}

func passCompleteUpdate(result *PassResult) ProgressUpdate {
	p := result.Pass
	return ProgressUpdate{
		Phase:   PassComplete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Pass #%d: %d fetched, %d new, %d conflicts, %d purged", p.Sequence, p.Fetched, p.New, p.Conflicts, p.Purged),
		Data:    result,
	}
}
