package models

import (
	"fmt"
	"time"
)

// Track is a single playlist entry.
//
// ID is globally unique in the store. Titles are not; two stored tracks sharing a title are the conflict signal.
type Track struct {
	ID        string
	Position  int     // 1-based position within the playlist
	AddedByID *string // nil when the source omits the contributor
	AddedAt   *string // ISO-8601; nil when the source omits it
	URL       string
	Title     string
	AlbumName string
	AlbumURL  string
	Artists   string // artist names joined with ", "
	JacketURL string
}

// Validate checks the fields the store requires. Title, album and artists may be empty.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("track id is required")
	}
	if t.Position < 1 {
		return fmt.Errorf("track %s: position must be >= 1, got %d", t.ID, t.Position)
	}
	return nil
}

// DebugString renders the identifying fields of t for log output.
func (t Track) DebugString() string {
	return fmt.Sprintf("title{%s} album{%s} artists{%s} id{%s}", t.Title, t.AlbumName, t.Artists, t.ID)
}

// StoredTrack is the persisted projection of a Track.
type StoredTrack struct {
	Track
	Refreshed bool // observed during the current pass
}

// User is a playlist contributor.
type User struct {
	ID          string
	DisplayName string
}

// Channel is the Discord text channel a guild receives notifications in.
type Channel struct {
	GuildID   string
	ChannelID string
}

// Pass records one fetch-and-classify cycle.
type Pass struct {
	ID         string
	Sequence   int
	PlaylistID string
	StartedAt  time.Time
	FinishedAt *time.Time
	Fetched    int
	New        int
	Conflicts  int
	Existing   int
	Backfilled int
	Purged     int
	Error      string
}

// Succeeded reports whether the pass finished without error.
func (p Pass) Succeeded() bool {
	return p.FinishedAt != nil && p.Error == ""
}

// Tally increments the counter matching r's outcome.
func (p *Pass) Tally(r Result) {
	p.Fetched++
	switch r.Outcome {
	case OutcomeNewTrack:
		p.New++
	case OutcomeConflict:
		p.Conflicts++
	case OutcomeExisting:
		p.Existing++
	case OutcomePass:
		p.Backfilled++
	}
}
