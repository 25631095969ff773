// Package tasks classifies playlist snapshots and fans the results out to notification sinks.
//
// # Pass Lifecycle
//
//  1. [DiffEngine.Begin] : clears every stored refreshed flag and captures the baseline high-water mark
//     (the current time when the store holds no timestamps, which suppresses the cold-start flood)
//  2. [PassRunner.Run] : pages [services.PlaylistSource] and feeds each page to [DiffEngine.ClassifyBatch]
//  3. [TrackStore.PurgeUnrefreshed] : deletes tracks that were not observed in this pass
//  4. [Dispatcher.Dispatch] : renders NewTrack and Conflict results and visits every sink destination
//
// [Watcher] repeats this on an interval and never lets two passes overlap.
//
// # Classification
//
// Per track, in fetch order:
//   - already stored: the position is refreshed and the result is Existing
//   - newly stored with added_at strictly before the baseline: Pass (stored, never notified)
//   - newly stored with a title shared by a stored track of a different added_at: Conflict
//   - otherwise: NewTrack
//
// Store failures abort the pass. Profile lookup failures and sink failures only log.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate] values.
// Updates use select with default to prevent blocking.
package tasks
