// package formatter renders classification results as notices and exports the stored snapshot to CSV, Markdown, or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a user-supplied format name. The empty string selects [FormatText].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// ExportToCSV converts stored tracks to CSV with columns: Position, ID, Title, Artists, Album, AddedAt, AddedBy, URL
func ExportToCSV(tracks []models.StoredTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artists", "Album", "AddedAt", "AddedBy", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			strconv.Itoa(track.Position),
			track.ID,
			track.Title,
			track.Artists,
			track.AlbumName,
			shared.Deref(track.AddedAt),
			shared.Deref(track.AddedByID),
			track.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts stored tracks to a Markdown list headed by title
func ExportToMarkdown(title string, tracks []models.StoredTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for _, track := range tracks {
		albumPart := ""
		if track.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", track.AlbumName)
		}
		name := track.Title
		if track.URL != "" {
			name = fmt.Sprintf("[%s](%s)", track.Title, track.URL)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", track.Position, track.Artists, name, albumPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts stored tracks to plain text format
func ExportToText(title string, tracks []models.StoredTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for _, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", track.Position, track.Artists, track.Title))
	}

	return buf.Bytes(), nil
}

// Export encodes tracks in format.
func Export(format Format, title string, tracks []models.StoredTrack) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(tracks)
	case FormatMarkdown:
		return ExportToMarkdown(title, tracks)
	default:
		return ExportToText(title, tracks)
	}
}

// WriteExport encodes tracks in format and writes them to path.
//
// Defaults to {title}_tracks.{ext} as the filename.
func WriteExport(format Format, title string, tracks []models.StoredTrack, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.%s", title, format.Extension())
	}

	data, err := Export(format, title, tracks)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// Extension returns the file extension conventionally used for f.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}
