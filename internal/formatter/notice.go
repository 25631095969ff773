package formatter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/spotdiff/internal/models"
)

// Embed colors as 0xRRGGBB.
const (
	ColorNewTrack = 0x2ECC71
	ColorConflict = 0xE67E22
)

// BlankValue renders as an empty embed field; Discord rejects zero-length values.
const BlankValue = "\u200b"

// Field is a single labelled value of a [Notice].
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Notice is the rendered form of an actionable [models.Result], shared by every sink.
type Notice struct {
	Outcome   models.Outcome
	Title     string
	Color     int
	Thumbnail string
	Fields    []Field
	Track     models.Track
	Conflicts []models.Track
	// DuplicatesAt is the index in Fields where the first conflicting track starts, or 0 without conflicts.
	DuplicatesAt int
	addedBy      map[string]string
}

// NameResolver maps a contributor id to a display name. It returns "" when the name is unknown.
type NameResolver func(userID string) string

// NewNotice renders r. Only [models.OutcomeNewTrack] and [models.OutcomeConflict] produce a notice.
func NewNotice(r models.Result, names NameResolver) (*Notice, error) {
	if !r.Actionable() {
		return nil, fmt.Errorf("result %s is not actionable", r.Outcome)
	}
	if names == nil {
		names = func(string) string { return "" }
	}

	n := &Notice{
		Outcome:   r.Outcome,
		Thumbnail: r.Track.JacketURL,
		Track:     r.Track,
		Conflicts: r.Conflicts,
		addedBy:   make(map[string]string),
	}

	n.Fields = append(n.Fields, Field{Name: BlankValue, Value: BlankValue})

	switch r.Outcome {
	case models.OutcomeNewTrack:
		n.Title = "A new track was added!"
		n.Color = ColorNewTrack
		n.Fields = append(n.Fields, n.trackFields(r.Track, names, false)...)
	case models.OutcomeConflict:
		n.Title = "A new track was added!\nBut the same song may already be in the playlist!"
		n.Color = ColorConflict
		n.Fields = append(n.Fields, Field{Name: "Added track", Value: BlankValue})
		n.Fields = append(n.Fields, n.trackFields(r.Track, names, false)...)
		n.Fields = append(n.Fields, Field{Name: BlankValue, Value: BlankValue})
		n.Fields = append(n.Fields, Field{Name: "Possible duplicates", Value: BlankValue})
		n.DuplicatesAt = len(n.Fields)
		for _, c := range r.Conflicts {
			n.Fields = append(n.Fields, n.trackFields(c, names, true)...)
		}
	}

	return n, nil
}

func (n *Notice) trackFields(t models.Track, names NameResolver, withPosition bool) []Field {
	addedBy := ""
	if t.AddedByID != nil {
		addedBy = names(*t.AddedByID)
	}
	n.addedBy[t.ID] = addedBy

	fields := []Field{
		{Name: "Title", Value: code(t.Title), Inline: true},
		{Name: "Album", Value: code(t.AlbumName), Inline: true},
		{Name: "Artists", Value: orBlank(t.Artists)},
		{Name: "Added by", Value: code(addedBy), Inline: true},
	}
	if withPosition {
		fields = append(fields, Field{Name: "Position", Value: code(fmt.Sprint(t.Position)), Inline: true})
	}
	fields = append(fields, Field{Name: "Link", Value: orBlank(t.URL)})

	return fields
}

// PlainText renders n as a status post of at most limit characters. A non-positive limit disables truncation.
func (n *Notice) PlainText(limit int) string {
	var b strings.Builder

	b.WriteString(n.Title)
	b.WriteString("\n\n")
	b.WriteString(n.line(n.Track))
	if n.Track.URL != "" {
		b.WriteString("\n")
		b.WriteString(n.Track.URL)
	}

	if len(n.Conflicts) > 0 {
		b.WriteString("\n\nPossible duplicates:")
		for _, c := range n.Conflicts {
			fmt.Fprintf(&b, "\n#%d %s", c.Position, n.line(c))
		}
	}

	return truncate(b.String(), limit)
}

func (n *Notice) line(t models.Track) string {
	s := t.Title
	if t.Artists != "" {
		s += " / " + t.Artists
	}
	if t.AlbumName != "" {
		s += " (" + t.AlbumName + ")"
	}
	if by := n.addedBy[t.ID]; by != "" {
		s += " added by " + by
	}
	return s
}

func code(s string) string {
	if s == "" {
		return BlankValue
	}
	return "`" + s + "`"
}

func orBlank(s string) string {
	if s == "" {
		return BlankValue
	}
	return s
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
