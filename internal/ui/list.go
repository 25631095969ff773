package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotdiff/internal/models"
)

var (
	_ list.Item = trackItem{}
	_ list.Item = resultItem{}
)

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return fmt.Sprintf("#%d %s", i.track.Position, i.track.Title) }
func (i trackItem) Description() string {
	desc := i.track.Artists
	if i.track.AlbumName != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.AlbumName)
	}
	if i.track.AddedAt != nil {
		desc = fmt.Sprintf("%s • added %s", desc, *i.track.AddedAt)
	}
	return desc
}

// resultItem wraps [models.Result] to implement [list.Item].
type resultItem struct {
	result models.Result
}

func (i resultItem) FilterValue() string { return i.result.Track.Title }
func (i resultItem) Title() string {
	return fmt.Sprintf("%s %s", OutcomeLabel(i.result.Outcome), i.result.Track.Title)
}
func (i resultItem) Description() string {
	desc := i.result.Track.Artists
	if n := len(i.result.Conflicts); n > 0 {
		desc = fmt.Sprintf("%s • %d possible duplicates", desc, n)
	}
	return desc
}

func trackItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
