// Package repositories implements SQLite persistence for the watched playlist.
//
// Key Implementations:
//   - [TrackRepository] : the playlist snapshot, one row per track id, with a per-pass refreshed flag
//   - [UserRepository] : contributor display names
//   - [UserCache] : write-through memo in front of [UserRepository]
//   - [ChannelRepository] : Discord guild to text channel registry
//   - [PassRepository] : history of fetch-and-classify cycles
//
// Every operation is a single statement (or a short transaction for [NextSequence]) and commits on return.
// A failed pass therefore leaves behind whatever mutations it had already made.
package repositories
