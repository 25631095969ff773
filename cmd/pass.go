package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/desertthunder/spotdiff/internal/tasks"
	"github.com/desertthunder/spotdiff/internal/ui"
	"github.com/urfave/cli/v3"
)

// RunPass fetches the playlist once, classifies every track and notifies sinks about actionable ones.
func (r *Runner) RunPass(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	playlistID, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	p, err := r.newPipeline(ctx)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	sinks, _, err := r.sinks(p, dryRun)
	if err != nil {
		return err
	}

	r.logger.Info("starting pass", "playlist", playlistID, "dry_run", dryRun)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writeProgress(update)
		}
	}()

	result, err := p.runner.Run(ctx, playlistID, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	var report *tasks.DispatchReport
	if len(result.Actionable) > 0 {
		report, err = r.dispatcher(p, sinks, dryRun).Dispatch(ctx, result.Actionable, nil)
		if err != nil {
			return err
		}
	}

	r.writePassSummary(result, report)
	return nil
}

// Watch runs passes on an interval until interrupted, keeping the Discord gateway open for commands.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	playlistID, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	p, err := r.newPipeline(ctx)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	sinks, discord, err := r.sinks(p, dryRun)
	if err != nil {
		return err
	}

	if discord != nil {
		if err := discord.Open(); err != nil {
			return err
		}
		defer discord.Close()
	}

	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = r.config.Watch.Interval()
	}

	watcher := tasks.NewWatcher(p.runner, r.dispatcher(p, sinks, dryRun), playlistID, tasks.WatcherOpts{
		Interval: interval,
		Clock:    r.clock,
		Logger:   r.logger,
		OnTick: func(result *tasks.PassResult, report *tasks.DispatchReport, err error) {
			if err != nil {
				r.writePlain("%s\n", ui.Err(fmt.Sprintf("✗ Pass failed: %v", err)))
				return
			}
			r.writePassSummary(result, report)
		},
	})

	r.writePlain("Watching playlist %s every %s (Ctrl+C to stop)\n", playlistID, interval)
	return watcher.Watch(ctx)
}

func (r *Runner) writeProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.BeginPass:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.FetchPage:
		r.writePlain("   %s\n", update.Message)
	case tasks.ClassifyTracks:
		res, ok := update.Data.(models.Result)
		if ok && res.Actionable() {
			r.writePlain("   [%d] %s %s\n", update.Step, ui.OutcomeLabel(res.Outcome), res.Track.DebugString())
		} else {
			r.logger.Debug(update.Message)
		}
	case tasks.PurgeTracks:
		r.writePlain("🧹 %s\n", update.Message)
	}
}

func (r *Runner) writePassSummary(result *tasks.PassResult, report *tasks.DispatchReport) {
	pass := result.Pass

	r.writePlain("\n")
	r.writePlainHeader(fmt.Sprintf("Pass #%d Complete!", pass.Sequence))
	r.writePlain("Baseline: %s\n", result.Baseline)
	r.writePlain("Fetched: %d tracks\n", pass.Fetched)
	r.writePlain("New: %d  Conflicts: %d  Existing: %d  Backfilled: %d\n", pass.New, pass.Conflicts, pass.Existing, pass.Backfilled)
	r.writePlain("Purged: %d\n", pass.Purged)

	if report != nil {
		line := fmt.Sprintf("Delivered: %d sent, %d failed", report.Sent(), report.Failed())
		if report.Failed() > 0 || len(report.SinkErrors) > 0 {
			line = ui.Warn(line)
		}
		r.writePlain("%s\n", line)

		for sink, err := range report.SinkErrors {
			r.writePlain("  - %s: %v\n", sink, err)
		}
	}

	if len(result.Actionable) > 0 {
		r.writePlain("\nActionable tracks:\n")
		for _, res := range result.Actionable {
			r.writePlain("  %s #%d %s - %s", ui.OutcomeLabel(res.Outcome), res.Track.Position, res.Track.Artists, res.Track.Title)
			if n := len(res.Conflicts); n > 0 {
				r.writePlain(" (%d possible duplicates)", n)
			}
			r.writePlain("\n")
		}
	}

	if pass.FinishedAt != nil {
		r.logger.Debug("pass timing", "pass", pass.ID, "duration", pass.FinishedAt.Sub(pass.StartedAt), "at", shared.FormatTimestamp(*pass.FinishedAt))
	}
}
