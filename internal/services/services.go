// package services defines the playlist source and notification sink interfaces and their Spotify, Discord, and Mastodon implementations
package services

import (
	"context"

	"github.com/desertthunder/spotdiff/internal/formatter"
	"github.com/desertthunder/spotdiff/internal/models"
)

// DefaultPageSize is the number of playlist items requested per page.
const DefaultPageSize = 100

// PlaylistSource pages through the items of a remote playlist.
type PlaylistSource interface {
	// PlaylistTracks calls fn once per page, in playlist order, with the playable tracks of that page.
	//
	// Paging stops after the first page shorter than pageSize, or when fn returns an error.
	PlaylistTracks(ctx context.Context, playlistID string, pageSize int, fn func([]models.Track) error) error
}

// UserProfiles resolves a contributor id to its public display name.
type UserProfiles interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Target is one destination of a [Sink], such as a Discord text channel.
type Target struct {
	ID    string
	Label string
}

// Sink delivers rendered notices to each of its destinations.
type Sink interface {
	// Name identifies the sink in logs and reports.
	Name() string

	// Targets lists the destinations to visit for the current pass.
	Targets(ctx context.Context) ([]Target, error)

	// Send delivers a single notice to one target.
	Send(ctx context.Context, target Target, notice *formatter.Notice) error
}
