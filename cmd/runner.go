package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiff/internal/repositories"
	"github.com/desertthunder/spotdiff/internal/services"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/desertthunder/spotdiff/internal/tasks"
	"github.com/juju/clock"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	configured bool
	source     services.PlaylistSource
	profiles   services.UserProfiles
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	clock      clock.Clock
	db         *sql.DB
	ownsDB     bool
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as is; otherwise the file named by --config is loaded on first use.
// Source and Profiles replace the Spotify client, and DB replaces the configured database.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.PlaylistSource
	Profiles   services.UserProfiles
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Clock      clock.Clock
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		configured: configured,
		source:     opts.Source,
		profiles:   opts.Profiles,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		clock:      opts.Clock,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, runCommand, watchCommand, statusCommand, tracksCommand, channelsCommand, browseCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// configure applies global flags and loads the configuration file once.
func (r *Runner) configure(cmd *cli.Command) error {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.configured {
		return nil
	}
	r.configured = true

	path := cmd.String("config")
	if path == "" {
		path = r.configPath
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return err
			}
			r.config = config
			r.configPath = path
			r.logger.Debug("loaded config", "path", path)
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	r.config.ApplyEnv()
	return nil
}

// store opens the configured database and runs pending migrations on first use.
func (r *Runner) store() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenStore(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("opened database", "path", r.config.Database.Path)

	r.db = db
	r.ownsDB = true
	return db, nil
}

// spotify returns the playlist source and profile lookup, building a Spotify client from credentials if none was injected.
func (r *Runner) spotify(ctx context.Context) (services.PlaylistSource, services.UserProfiles, error) {
	if r.source != nil {
		return r.source, r.profiles, nil
	}

	creds := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(ctx, creds.ClientID, creds.ClientSecret,
		services.WithSpotifyHTTPClient(r.httpClient),
		services.WithSpotifyLogger(r.logger),
	)
	if err != nil {
		return nil, nil, err
	}

	r.source, r.profiles = svc, svc
	return svc, svc, nil
}

// playlistID returns the --playlist flag, falling back to the configured playlist.
func (r *Runner) playlistID(cmd *cli.Command) (string, error) {
	id := cmd.String("playlist")
	if id == "" {
		id = r.config.Watch.PlaylistID
	}
	if id == "" {
		return "", fmt.Errorf("%w: --playlist or watch.playlist_id", shared.ErrMissingArgument)
	}
	return id, nil
}

// pipeline wires the repositories and pass runner around one store.
type pipeline struct {
	tracks   *repositories.TrackRepository
	users    *repositories.UserCache
	passes   *repositories.PassRepository
	channels *repositories.ChannelRepository
	runner   *tasks.PassRunner
}

func (r *Runner) newPipeline(ctx context.Context) (*pipeline, error) {
	db, err := r.store()
	if err != nil {
		return nil, err
	}

	source, profiles, err := r.spotify(ctx)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		tracks:   repositories.NewTrackRepository(db),
		users:    repositories.NewUserCache(repositories.NewUserRepository(db)),
		passes:   repositories.NewPassRepository(db),
		channels: repositories.NewChannelRepository(db),
	}

	engine := tasks.NewDiffEngine(p.tracks, p.users, profiles, r.logger, r.clock)
	p.runner = tasks.NewPassRunner(engine, source, p.tracks, tasks.PassRunnerOpts{
		PageSize: r.config.Watch.PageSize,
		Passes:   p.passes,
		Logger:   r.logger,
		Clock:    r.clock,
	})

	return p, nil
}

// sinks builds the configured notification sinks.
//
// A dry run, or a configuration without any remote sink, renders to the console instead.
// The returned Discord service is nil when Discord is not configured.
func (r *Runner) sinks(p *pipeline, dryRun bool) ([]services.Sink, *services.DiscordService, error) {
	if dryRun {
		return []services.Sink{services.NewConsoleSink(r.output)}, nil, nil
	}

	var (
		sinks   []services.Sink
		discord *services.DiscordService
	)

	creds := r.config.Credentials
	if creds.Discord.Token != "" {
		svc, err := services.NewDiscordService(creds.Discord.Token, p.channels, r.logger)
		if err != nil {
			return nil, nil, err
		}
		discord = svc
		sinks = append(sinks, svc)
	}

	if creds.Mastodon.Enabled() {
		svc, err := services.NewMastodonService(creds.Mastodon.Host, creds.Mastodon.AccessToken, creds.Mastodon.Visibility, r.httpClient)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, svc)
	}

	if len(sinks) == 0 {
		r.logger.Warn("no notification sinks configured, printing to console")
		sinks = append(sinks, services.NewConsoleSink(r.output))
	}

	return sinks, discord, nil
}

func (r *Runner) dispatcher(p *pipeline, sinks []services.Sink, dryRun bool) *tasks.Dispatcher {
	opts := tasks.DispatcherOpts{Users: p.users, Logger: r.logger}
	if !dryRun {
		opts.RateLimit = r.config.Notify.RateLimit
		opts.Burst = r.config.Notify.Burst
	}
	return tasks.NewDispatcher(opts, sinks...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
