package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/desertthunder/spotdiff/internal/ui"
	"github.com/urfave/cli/v3"
)

// Browse launches the interactive terminal UI over the stored snapshot.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	playlistID, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.logger = fileLogger

	p, err := r.newPipeline(ctx)
	if err != nil {
		return err
	}

	var dispatcher ui.Dispatcher
	if cmd.Bool("notify") {
		sinks, _, err := r.sinks(p, false)
		if err != nil {
			return err
		}
		dispatcher = r.dispatcher(p, sinks, false)
	}

	model := ui.NewModel(ctx, p.tracks, p.runner, dispatcher, playlistID)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
