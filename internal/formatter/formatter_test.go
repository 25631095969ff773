package formatter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

func sampleTracks() []models.StoredTrack {
	return []models.StoredTrack{
		{Track: models.Track{
			ID:        "track1",
			Position:  1,
			AddedAt:   shared.StringPtr("2024-01-01T00:00:00Z"),
			AddedByID: shared.StringPtr("u1"),
			URL:       "https://open.spotify.com/track/track1",
			Title:     "Song One",
			AlbumName: "Album One",
			Artists:   "Artist One",
		}, Refreshed: true},
		{Track: models.Track{
			ID:       "track2",
			Position: 2,
			Title:    "Song Two",
			Artists:  "Artist Two, Artist Three",
		}, Refreshed: true},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTracks())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Position,ID,Title,Artists,Album,AddedAt,AddedBy,URL") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,track1,Song One,Artist One,Album One,2024-01-01T00:00:00Z,u1,") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, `"Artist Two, Artist Three"`) {
			t.Errorf("CSV should quote comma-joined artists, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("Weekly", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# Weekly") {
			t.Error("Markdown missing heading")
		}
		if !strings.Contains(output, "1. Artist One - [Song One](https://open.spotify.com/track/track1) (Album One)") {
			t.Errorf("Markdown missing linked track, got: %s", output)
		}
		if !strings.Contains(output, "2. Artist Two, Artist Three - Song Two\n") {
			t.Errorf("Markdown missing unlinked track, got: %s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("Weekly", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Tracks: 2") || !strings.Contains(output, "1. Artist One - Song One") {
			t.Errorf("unexpected text output: %s", output)
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")

		written, err := WriteExport(FormatCSV, "Weekly", sampleTracks(), path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.HasPrefix(string(data), "Position,") {
			t.Errorf("unexpected file contents: %s", data)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"CSV", FormatCSV, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestNewNotice(t *testing.T) {
	names := func(id string) string {
		if id == "u1" {
			return "Alice"
		}
		return ""
	}
	added := sampleTracks()[0].Track

	t.Run("non-actionable", func(t *testing.T) {
		for _, r := range []models.Result{models.ExistingResult(added), models.PassResult(added)} {
			if _, err := NewNotice(r, names); err == nil {
				t.Errorf("expected error for %s", r.Outcome)
			}
		}
	})

	t.Run("new track", func(t *testing.T) {
		n, err := NewNotice(models.NewTrackResult(added), names)
		if err != nil {
			t.Fatalf("NewNotice failed: %v", err)
		}
		if n.Color != ColorNewTrack {
			t.Errorf("expected green, got %#x", n.Color)
		}
		if n.Thumbnail != added.JacketURL {
			t.Errorf("unexpected thumbnail %q", n.Thumbnail)
		}
		if !hasField(n, "Added by", "`Alice`") {
			t.Errorf("missing added-by field: %+v", n.Fields)
		}
		if hasName(n, "Position") {
			t.Error("new track notice should not carry a position")
		}
	})

	t.Run("conflict", func(t *testing.T) {
		other := models.Track{ID: "old", Position: 7, Title: "Song One"}
		n, err := NewNotice(models.ConflictResult(added, []models.Track{other}), names)
		if err != nil {
			t.Fatalf("NewNotice failed: %v", err)
		}
		if n.Color != ColorConflict {
			t.Errorf("expected orange, got %#x", n.Color)
		}
		if !hasField(n, "Position", "`7`") {
			t.Errorf("missing conflicting position: %+v", n.Fields)
		}
		if !hasName(n, "Possible duplicates") {
			t.Error("missing duplicates header")
		}
	})

	t.Run("PlainText", func(t *testing.T) {
		other := models.Track{ID: "old", Position: 7, Title: "Song One", Artists: "Artist One"}
		n, _ := NewNotice(models.ConflictResult(added, []models.Track{other}), names)

		text := n.PlainText(0)
		for _, want := range []string{"Song One / Artist One (Album One) added by Alice", added.URL, "#7 Song One / Artist One"} {
			if !strings.Contains(text, want) {
				t.Errorf("plain text missing %q:\n%s", want, text)
			}
		}

		short := n.PlainText(20)
		if got := len([]rune(short)); got != 20 {
			t.Errorf("expected 20 runes, got %d", got)
		}
	})
}

func hasField(n *Notice, name, value string) bool {
	for _, f := range n.Fields {
		if f.Name == name && f.Value == value {
			return true
		}
	}
	return false
}

func hasName(n *Notice, name string) bool {
	for _, f := range n.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
