// Package services adapts the external collaborators of a pass: the remote playlist and the notification sinks.
//
// # Playlist Source
//
// [SpotifyService] implements [PlaylistSource] and [UserProfiles] with github.com/zmb3/spotify/v2.
// It authenticates with the client-credentials grant; [clientcredentials.Config.Client] refreshes the app token automatically.
//
// Playlist items are requested with limit/offset paging. Local files, podcast episodes, and entries without a track are skipped,
// but still count toward positions so that a track's position matches its index in the playlist.
//
// # Sinks
//
// Every [Sink] exposes its destinations through Targets so that a failure at one destination never affects another:
//   - [DiscordService] : posts embeds to every registered guild channel and serves the !here and !bye commands
//   - [MastodonService] : posts a status through the Mastodon REST API
//   - [ConsoleSink] : writes styled notices to an [io.Writer] for dry runs
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : a required token or client secret is empty
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//   - [shared.ErrUserNotFound] : profile lookup returned no user
package services
