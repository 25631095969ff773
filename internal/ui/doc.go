// Package ui implements an interactive terminal browser for the playlist snapshot using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow:
//  1. [TrackListView] : Browse stored tracks in playlist order
//  2. [ConflictView] : Inspect stored tracks sharing the selected track's title
//  3. [ConfirmView] : Confirm running a pass
//  4. [PassView] : Monitor real-time progress updates
//  5. [ResultView] : Display pass counters and actionable tracks
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress updates flow through a channel from the pass runner, providing non-blocking status reporting during a pass.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, p, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
