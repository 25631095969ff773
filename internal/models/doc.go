// Package models defines the domain entities shared by the store, the diff engine and the notification layer.
//
// # Playlist data
//   - [Track] : one entry of the watched playlist as fetched from the source
//   - [StoredTrack] : the persisted projection of a Track plus its per-pass refreshed flag
//   - [User] : a playlist contributor and the display name shown in notifications
//
// # Bookkeeping
//   - [Channel] : a Discord guild's registered notification channel
//   - [Pass] : one fetch-and-classify cycle with its counters
//
// # Classification
//
// [Result] is a closed variant set keyed by [Outcome]. Only [OutcomeNewTrack] and [OutcomeConflict]
// carry payload meant for rendering; [OutcomeExisting] and [OutcomePass] are informational.
package models
