package models

// Outcome classifies a fetched track against the stored snapshot.
type Outcome int

const (
	// OutcomeNewTrack: first sighting, added after the baseline, no title conflict.
	OutcomeNewTrack Outcome = iota
	// OutcomeExisting: already stored; at most its position changed.
	OutcomeExisting
	// OutcomeConflict: first sighting, but other stored tracks share its title.
	OutcomeConflict
	// OutcomePass: first sighting of a track added before the baseline (historical backfill).
	OutcomePass
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNewTrack:
		return "new"
	case OutcomeExisting:
		return "existing"
	case OutcomeConflict:
		return "conflict"
	case OutcomePass:
		return "pass"
	default:
		return ""
	}
}

// Result is the classification of one fetched track.
//
// Conflicts is populated only for [OutcomeConflict].
type Result struct {
	Outcome   Outcome
	Track     Track
	Conflicts []Track
}

// Actionable reports whether r should be rendered and sent to sinks.
func (r Result) Actionable() bool {
	return r.Outcome == OutcomeNewTrack || r.Outcome == OutcomeConflict
}

// NewTrackResult builds an [OutcomeNewTrack] result.
func NewTrackResult(t Track) Result { return Result{Outcome: OutcomeNewTrack, Track: t} }

// ExistingResult builds an [OutcomeExisting] result.
func ExistingResult(t Track) Result { return Result{Outcome: OutcomeExisting, Track: t} }

// PassResult builds an [OutcomePass] result.
func PassResult(t Track) Result { return Result{Outcome: OutcomePass, Track: t} }

// ConflictResult builds an [OutcomeConflict] result carrying every conflicting stored track.
func ConflictResult(t Track, conflicts []Track) Result {
	return Result{Outcome: OutcomeConflict, Track: t, Conflicts: conflicts}
}

// Actionable filters results down to the ones intended for notification, preserving order.
func Actionable(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Actionable() {
			out = append(out, r)
		}
	}
	return out
}
