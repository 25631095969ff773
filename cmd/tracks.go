package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/spotdiff/internal/formatter"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/repositories"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/desertthunder/spotdiff/internal/ui"
	"github.com/urfave/cli/v3"
)

// StatusReport is the machine-readable form of `spotdiff status`.
type StatusReport struct {
	Database      string         `json:"database"`
	HighWaterMark *string        `json:"high_water_mark"`
	Tracks        int            `json:"tracks"`
	Users         int            `json:"users"`
	Channels      int            `json:"channels"`
	Passes        []*models.Pass `json:"passes"`
}

// Status prints the high-water mark, store counts and recent passes.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	db, err := r.store()
	if err != nil {
		return err
	}

	tracks := repositories.NewTrackRepository(db)

	report := StatusReport{Database: r.config.Database.Path}
	if report.HighWaterMark, err = tracks.HighWaterMark(ctx); err != nil {
		return err
	}
	if report.Tracks, err = tracks.Count(ctx); err != nil {
		return err
	}

	users, err := repositories.NewUserRepository(db).List(ctx)
	if err != nil {
		return err
	}
	report.Users = len(users)

	channels, err := repositories.NewChannelRepository(db).List(ctx)
	if err != nil {
		return err
	}
	report.Channels = len(channels)

	if report.Passes, err = repositories.NewPassRepository(db).List(ctx, cmd.Int("limit")); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	mark := "none (next pass backfills silently)"
	if report.HighWaterMark != nil {
		mark = *report.HighWaterMark
	}

	r.writePlain("%s\n", ui.Title("spotdiff status"))
	r.writePlain("Database:        %s\n", report.Database)
	r.writePlain("High-water mark: %s\n", mark)
	r.writePlain("Stored tracks:   %d\n", report.Tracks)
	r.writePlain("Known users:     %d\n", report.Users)
	r.writePlain("Channels:        %d\n", report.Channels)

	if len(report.Passes) == 0 {
		r.writePlainln("%s", ui.Muted("No passes recorded yet."))
		return nil
	}

	r.writePlainln("%s", passTable(report.Passes))
	return nil
}

func passTable(passes []*models.Pass) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "Started", "Fetched", "New", "Conflicts", "Existing", "Backfilled", "Purged", "Result")

	for _, p := range passes {
		result := ui.OK("ok")
		switch {
		case p.Error != "":
			result = ui.Err(p.Error)
		case p.FinishedAt == nil:
			result = ui.Warn("running")
		}

		t.Row(
			strconv.Itoa(p.Sequence),
			shared.FormatTimestamp(p.StartedAt),
			strconv.Itoa(p.Fetched),
			strconv.Itoa(p.New),
			strconv.Itoa(p.Conflicts),
			strconv.Itoa(p.Existing),
			strconv.Itoa(p.Backfilled),
			strconv.Itoa(p.Purged),
			result,
		)
	}

	return t.String()
}

// TracksList prints the stored snapshot in the requested format.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	format, tracks, err := r.loadTracks(ctx, cmd)
	if err != nil {
		return err
	}

	data, err := formatter.Export(format, r.exportTitle(), tracks)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// TracksExport writes the stored snapshot to a file.
func (r *Runner) TracksExport(ctx context.Context, cmd *cli.Command) error {
	format, tracks, err := r.loadTracks(ctx, cmd)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(format, r.exportTitle(), tracks, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("exported tracks", "path", path, "tracks", len(tracks), "format", format)
	r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), path)
	return nil
}

// TracksConflicts lists every stored track with an exact title.
func (r *Runner) TracksConflicts(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	title := cmd.String("title")
	if title == "" {
		return fmt.Errorf("%w: --title", shared.ErrMissingArgument)
	}

	db, err := r.store()
	if err != nil {
		return err
	}

	tracks := repositories.NewTrackRepository(db)

	// FindTitleConflicts excludes by timestamp; collect both timestamped and untimestamped tracks.
	timed, err := tracks.FindTitleConflicts(ctx, title, nil)
	if err != nil {
		return err
	}
	untimed, err := tracks.FindTitleTwins(ctx, title, nil, "")
	if err != nil {
		return err
	}
	matches := append(untimed, timed...)

	switch len(matches) {
	case 0:
		r.writePlain("No stored tracks titled %q\n", title)
		return nil
	case 1:
		r.writePlain("%s\n", ui.OK(fmt.Sprintf("1 stored track titled %q, no duplicates", title)))
	default:
		r.writePlain("%s\n", ui.Warn(fmt.Sprintf("%d stored tracks titled %q", len(matches), title)))
	}

	for _, t := range matches {
		r.writePlain("  #%d %s - %s (added %s) %s\n", t.Position, t.Artists, t.Title, shared.Deref(t.AddedAt), t.URL)
	}
	return nil
}

func (r *Runner) loadTracks(ctx context.Context, cmd *cli.Command) (formatter.Format, []models.StoredTrack, error) {
	if err := r.configure(cmd); err != nil {
		return "", nil, err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return "", nil, err
	}

	db, err := r.store()
	if err != nil {
		return "", nil, err
	}

	tracks, err := repositories.NewTrackRepository(db).List(ctx)
	if err != nil {
		return "", nil, err
	}
	return format, tracks, nil
}

func (r *Runner) exportTitle() string {
	if id := r.config.Watch.PlaylistID; id != "" {
		return id
	}
	return "playlist"
}
