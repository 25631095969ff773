// Spotify Web API implementation of [PlaylistSource] and [UserProfiles]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyService reads playlist items and user profiles with an app (client credentials) token.
type SpotifyService struct {
	client *spotify.Client
	logger *log.Logger
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*spotifyOptions)

type spotifyOptions struct {
	apiURL     string
	tokenURL   string
	httpClient *http.Client
	logger     *log.Logger
}

// WithSpotifyAPIURL points the client at a different Web API root, such as a test server.
func WithSpotifyAPIURL(u string) SpotifyOption {
	return func(o *spotifyOptions) { o.apiURL = u }
}

// WithSpotifyTokenURL overrides the accounts service token endpoint.
func WithSpotifyTokenURL(u string) SpotifyOption {
	return func(o *spotifyOptions) { o.tokenURL = u }
}

// WithSpotifyHTTPClient sets the base transport used for both token and API requests.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(o *spotifyOptions) { o.httpClient = c }
}

// WithSpotifyLogger sets the logger used for paging diagnostics.
func WithSpotifyLogger(l *log.Logger) SpotifyOption {
	return func(o *spotifyOptions) { o.logger = l }
}

// NewSpotifyService creates a Spotify client authenticated with the client-credentials grant.
//
// The returned client fetches and refreshes its token lazily on the first request.
func NewSpotifyService(ctx context.Context, clientID, clientSecret string, opts ...SpotifyOption) (*SpotifyService, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	o := spotifyOptions{tokenURL: spotifyauth.TokenURL}
	for _, opt := range opts {
		opt(&o)
	}

	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     o.tokenURL,
	}

	clientOpts := []spotify.ClientOption{spotify.WithRetry(true)}
	if o.apiURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(strings.TrimSuffix(o.apiURL, "/")+"/"))
	}

	svc := NewSpotifyServiceFromClient(spotify.New(config.Client(ctx), clientOpts...))
	if o.logger != nil {
		svc.logger = o.logger
	}
	return svc, nil
}

// NewSpotifyServiceFromClient wraps an already authenticated client.
func NewSpotifyServiceFromClient(client *spotify.Client) *SpotifyService {
	return &SpotifyService{client: client, logger: log.Default()}
}

// Name returns the service name
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// PlaylistTracks pages through playlistID with limit/offset requests of pageSize items.
//
// fn is called once per page that holds at least one playable track.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, pageSize int, fn func([]models.Track) error) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	for offset := 0; ; offset += pageSize {
		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(pageSize), spotify.Offset(offset))
		if err != nil {
			return wrapSpotifyError(err, shared.ErrPlaylistNotFound, fmt.Sprintf("failed to fetch playlist %s at offset %d", playlistID, offset))
		}

		tracks := ConvertPlaylistItems(page.Items, offset)
		s.logger.Debug("fetched playlist page", "playlist", playlistID, "offset", offset, "items", len(page.Items), "tracks", len(tracks))

		if len(tracks) > 0 {
			if err := fn(tracks); err != nil {
				return err
			}
		}

		if len(page.Items) < pageSize {
			return nil
		}
	}
}

// DisplayName looks up the public profile of userID.
func (s *SpotifyService) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := s.client.GetUsersPublicProfile(ctx, spotify.ID(userID))
	if err != nil {
		return "", wrapSpotifyError(err, shared.ErrUserNotFound, "failed to get profile "+userID)
	}
	if user == nil {
		return "", fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	return user.DisplayName, nil
}

// ConvertPlaylistItems maps one page of playlist items to tracks.
//
// Positions are offset + index + 1 over the raw items, so skipped entries still consume a position.
func ConvertPlaylistItems(items []spotify.PlaylistItem, offset int) []models.Track {
	tracks := make([]models.Track, 0, len(items))

	for i, item := range items {
		full := item.Track.Track
		if item.IsLocal || full == nil || item.Track.Episode != nil || full.ID == "" {
			continue
		}

		artists := make([]string, len(full.Artists))
		for j, a := range full.Artists {
			artists[j] = a.Name
		}

		jacket := ""
		if len(full.Album.Images) > 0 {
			jacket = full.Album.Images[0].URL
		}

		tracks = append(tracks, models.Track{
			ID:        full.ID.String(),
			Position:  offset + i + 1,
			AddedByID: shared.StringPtr(item.AddedBy.ID),
			AddedAt:   shared.StringPtr(item.AddedAt),
			URL:       full.ExternalURLs["spotify"],
			Title:     full.Name,
			AlbumName: full.Album.Name,
			AlbumURL:  full.Album.ExternalURLs["spotify"],
			Artists:   strings.Join(artists, ", "),
			JacketURL: jacket,
		})
	}

	return tracks
}

// wrapSpotifyError maps Web API status codes onto the shared sentinels.
func wrapSpotifyError(err, notFound error, msg string) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", msg, notFound, apiErr.Message)
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return fmt.Errorf("%s: %w: %s", msg, shared.ErrServiceUnavailable, apiErr.Message)
		}
	}
	return fmt.Errorf("%s: %w: %v", msg, shared.ErrAPIRequest, err)
}
