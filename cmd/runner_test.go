package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
	tu "github.com/desertthunder/spotdiff/internal/testing"
	"github.com/juju/clock"
	"github.com/juju/clock/testclock"
)

type cliEnv struct {
	runner *Runner
	output *bytes.Buffer
	source *tu.MockSource
	config *shared.Config
	db     *sql.DB
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	config := shared.DefaultConfig()
	config.Credentials.Spotify = shared.SpotifyConfig{}
	config.Credentials.Discord.Token = ""
	config.Credentials.Mastodon = shared.MastodonConfig{}

	env := &cliEnv{
		output: &bytes.Buffer{},
		source: &tu.MockSource{},
		config: config,
		db:     db,
	}
	env.runner = NewRunner(RunnerOpts{
		Config:   config,
		Source:   env.source,
		Profiles: &tu.MockProfiles{Names: map[string]string{"u1": "Alice"}},
		Logger:   log.New(&bytes.Buffer{}),
		Output:   env.output,
		Clock:    testclock.NewClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		DB:       db,
	})
	return env
}

// exec runs args against a fresh command tree and returns what was written.
func (e *cliEnv) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	e.output.Reset()
	err := newApp(e.runner).Run(context.Background(), append([]string{"spotdiff"}, args...))
	return e.output.String(), err
}

func (e *cliEnv) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.exec(t, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			source := &tu.MockSource{}
			clk := testclock.NewClock(time.Now())

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Source:     source,
				Clock:      clk,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if !runner.configured {
				t.Error("expected injected config to skip loading")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.source != source {
				t.Error("expected source to be set")
			}
			if runner.clock != clk {
				t.Error("expected clock to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.configured {
				t.Error("expected config file to be loaded on first use")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.clock != clock.WallClock {
				t.Error("expected clock to default to clock.WallClock")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := map[string]bool{"setup": false, "run": false, "watch": false, "status": false, "tracks": false, "channels": false, "browse": false}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			want[cmd.Name] = true
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})
}

func TestConfigure(t *testing.T) {
	t.Run("loads the --config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")

		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(dir, "spotdiff.db")
		config.Watch.PlaylistID = "from-file"
		if err := shared.SaveConfig(path, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(&bytes.Buffer{})})
		defer runner.Close()

		if err := newApp(runner).Run(context.Background(), []string{"spotdiff", "--config", path, "setup", "database"}); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}

		if runner.config.Watch.PlaylistID != "from-file" {
			t.Errorf("expected config from file, got playlist %s", runner.config.Watch.PlaylistID)
		}
		tu.AssertFileExists(t, config.Database.Path)
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output: %s", output.String())
		}
	})

	t.Run("debug flag lowers the log level", func(t *testing.T) {
		env := newCLIEnv(t)
		env.mustExec(t, "--debug", "status")

		if env.runner.logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %s", env.runner.logger.GetLevel())
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("setup config writes the template", func(t *testing.T) {
		env := newCLIEnv(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		out := env.mustExec(t, "--config", path, "setup", "config")

		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "[credentials.spotify]") {
			t.Error("expected spotify section in template")
		}
		if !strings.Contains(out, "Config written to") {
			t.Errorf("unexpected output: %s", out)
		}

		if _, err := env.exec(t, "--config", path, "setup", "config"); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("setup rollback", func(t *testing.T) {
		env := newCLIEnv(t)

		before, _ := shared.MigrationVersion(env.db)
		out := env.mustExec(t, "setup", "rollback")
		after, _ := shared.MigrationVersion(env.db)

		if after != before-1 {
			t.Errorf("expected version %d, got %d", before-1, after)
		}
		if !strings.Contains(out, "Rolled back") {
			t.Errorf("unexpected output: %s", out)
		}
	})
}

func TestRunCommand(t *testing.T) {
	history := []models.Track{
		tu.NewTrack("A", "Song1", 1, "2024-01-01T00:00:00Z", "u1"),
		tu.NewTrack("B", "Song2", 2, "2024-01-02T00:00:00Z", "u1"),
	}

	t.Run("cold start is silent and later additions are announced", func(t *testing.T) {
		env := newCLIEnv(t)
		env.source.Tracks = history

		out := env.mustExec(t, "run", "--dry-run")
		if !strings.Contains(out, "Pass #1 Complete!") {
			t.Errorf("expected pass summary, got %s", out)
		}
		if strings.Contains(out, "A new track was added!") {
			t.Errorf("cold start must not notify, got %s", out)
		}

		env.source.Tracks = append(append([]models.Track{}, history...),
			tu.NewTrack("C", "Song1", 3, "2024-02-01T00:00:00Z", "u1"),
			tu.NewTrack("D", "Fresh", 4, "2024-02-02T00:00:00Z", "u1"),
		)

		out = env.mustExec(t, "run", "--dry-run")
		for _, want := range []string{
			"Pass #2 Complete!",
			"New: 1  Conflicts: 1  Existing: 2",
			"But the same song may already be in the playlist!",
			"Delivered: 2 sent, 0 failed",
			"Alice",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("falls back to the console without remote sinks", func(t *testing.T) {
		env := newCLIEnv(t)
		env.mustExec(t, "run")

		env.source.Tracks = []models.Track{tu.NewTrack("N", "Untimed", 1, "", "")}
		out := env.mustExec(t, "run")

		if !strings.Contains(out, "A new track was added!") {
			t.Errorf("expected console notice, got %s", out)
		}
	})

	t.Run("source failure is returned", func(t *testing.T) {
		env := newCLIEnv(t)
		env.source.Err = shared.ErrServiceUnavailable

		if _, err := env.exec(t, "run", "--dry-run"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("playlist comes from flag when config has none", func(t *testing.T) {
		env := newCLIEnv(t)
		env.config.Watch.PlaylistID = ""

		if _, err := env.exec(t, "run"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		env.mustExec(t, "run", "--playlist", "other")

		out := env.mustExec(t, "status", "--json")
		if !strings.Contains(out, `"PlaylistID": "other"`) {
			t.Errorf("expected pass against other playlist, got %s", out)
		}
	})

	t.Run("missing spotify credentials", func(t *testing.T) {
		env := newCLIEnv(t)
		env.runner.source = nil

		if _, err := env.exec(t, "run"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestStatusAndTracksCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.source.Tracks = []models.Track{
		tu.NewTrack("A", "Song1", 1, "2024-01-01T00:00:00Z", "u1"),
		tu.NewTrack("B", "Song1", 2, "2024-01-02T00:00:00Z", "u1"),
		tu.NewTrack("C", "Other", 3, "", ""),
	}
	env.mustExec(t, "run", "--dry-run")

	t.Run("status", func(t *testing.T) {
		out := env.mustExec(t, "status")
		for _, want := range []string{"High-water mark: 2024-01-02T00:00:00Z", "Stored tracks:   3", "Known users:     1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("status before any pass", func(t *testing.T) {
		fresh := newCLIEnv(t)
		out := fresh.mustExec(t, "status")

		if !strings.Contains(out, "none (next pass backfills silently)") || !strings.Contains(out, "No passes recorded yet.") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("tracks list as csv", func(t *testing.T) {
		out := env.mustExec(t, "tracks", "list", "--format", "csv")

		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines:\n%s", len(lines), out)
		}
		if !strings.HasPrefix(lines[1], "1,A,Song1") {
			t.Errorf("expected tracks in position order, got %s", lines[1])
		}
	})

	t.Run("tracks list rejects unknown formats", func(t *testing.T) {
		if _, err := env.exec(t, "tracks", "list", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("tracks export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracks.md")
		env.mustExec(t, "tracks", "export", "--format", "markdown", "--output", path)

		if !strings.Contains(tu.MustReadFile(t, path), "Song1") {
			t.Error("expected exported tracks in file")
		}
	})

	t.Run("tracks conflicts", func(t *testing.T) {
		out := env.mustExec(t, "tracks", "conflicts", "--title", "Song1")
		if !strings.Contains(out, `2 stored tracks titled "Song1"`) {
			t.Errorf("unexpected output:\n%s", out)
		}

		out = env.mustExec(t, "tracks", "conflicts", "--title", "Other")
		if !strings.Contains(out, "no duplicates") {
			t.Errorf("expected untimestamped track to be found, got:\n%s", out)
		}

		out = env.mustExec(t, "tracks", "conflicts", "--title", "Missing")
		if !strings.Contains(out, "No stored tracks") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestChannelsCommands(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustExec(t, "channels", "list")
	if !strings.Contains(out, "No channels registered") {
		t.Errorf("unexpected output: %s", out)
	}

	env.mustExec(t, "channels", "add", "--guild", "g1", "--channel", "c1")

	if _, err := env.exec(t, "channels", "add", "--guild", "g1", "--channel", "c2"); !errors.Is(err, shared.ErrChannelExists) {
		t.Errorf("expected ErrChannelExists, got %v", err)
	}

	out = env.mustExec(t, "channels", "list")
	if !strings.Contains(out, "guild g1 → channel c1") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := env.exec(t, "channels", "remove", "--guild", "g1", "--channel", "c2"); !errors.Is(err, shared.ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}

	env.mustExec(t, "channels", "remove", "--guild", "g1", "--channel", "c1")
	out = env.mustExec(t, "channels", "list")
	if !strings.Contains(out, "No channels registered") {
		t.Errorf("expected registry to be empty, got %s", out)
	}
}
