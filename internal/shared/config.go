package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Watch       WatchConfig       `toml:"watch"`
	Notify      NotifyConfig      `toml:"notify"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Discord  DiscordConfig  `toml:"discord"`
	Mastodon MastodonConfig `toml:"mastodon"`
}

// SpotifyConfig contains Spotify app (client credentials) settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// Valid reports whether both client credentials are set.
func (c SpotifyConfig) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DiscordConfig contains the bot token. An empty token disables the Discord sink.
type DiscordConfig struct {
	Token string `toml:"token"`
}

// MastodonConfig contains the status-posting account. An empty host disables the Mastodon sink.
type MastodonConfig struct {
	Host        string `toml:"host"`
	AccessToken string `toml:"access_token"`
	Visibility  string `toml:"visibility"`
}

// Enabled reports whether the Mastodon sink has enough configuration to post.
func (c MastodonConfig) Enabled() bool {
	return c.Host != "" && c.AccessToken != ""
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// WatchConfig controls which playlist is polled and how often.
type WatchConfig struct {
	PlaylistID      string `toml:"playlist_id"`
	IntervalMinutes int    `toml:"interval_minutes"`
	PageSize        int    `toml:"page_size"`
}

// Interval returns the polling interval, defaulting to ten minutes.
func (c WatchConfig) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// NotifyConfig paces notification delivery.
type NotifyConfig struct {
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the given .env files (default ".env") into the process environment.
//
// Missing files are not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and paths with values from the environment when they are set.
func (c *Config) ApplyEnv() {
	for env, dst := range map[string]*string{
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"DISCORD_TOKEN":         &c.Credentials.Discord.Token,
		"MASTODON_HOST":         &c.Credentials.Mastodon.Host,
		"MASTODON_ACCESS_TOKEN": &c.Credentials.Mastodon.AccessToken,
		"SPOTDIFF_DB":           &c.Database.Path,
		"SPOTDIFF_PLAYLIST_ID":  &c.Watch.PlaylistID,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

// Validate checks the settings a pass cannot run without.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	}
	if c.Watch.PlaylistID == "" {
		return fmt.Errorf("%w: watch.playlist_id is empty", ErrInvalidConfig)
	}
	if !c.Credentials.Spotify.Valid() {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	return nil
}
