package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksLoaded MsgKind = iota
	MsgConflictsLoaded
	MsgProgressUpdate
	MsgPassComplete
)

type tracksLoaded struct {
	tracks []models.StoredTrack
	err    error
}

type conflictsLoaded struct {
	track     models.Track
	conflicts []models.Track
	err       error
}

type passComplete struct {
	result *tasks.PassResult
	report *tasks.DispatchReport
	err    error
}

// tracksLoadedMsg is the constructor for [MsgTracksLoaded]
func tracksLoadedMsg(tracks []models.StoredTrack, err error) Msg {
	return Msg{kind: MsgTracksLoaded, data: tracksLoaded{tracks, err}}
}

// conflictsLoadedMsg is the constructor for [MsgConflictsLoaded]
func conflictsLoadedMsg(track models.Track, conflicts []models.Track, err error) Msg {
	return Msg{kind: MsgConflictsLoaded, data: conflictsLoaded{track, conflicts, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// passCompleteMsg is the constructor for [MsgPassComplete]
func passCompleteMsg(result *tasks.PassResult, report *tasks.DispatchReport, err error) Msg {
	return Msg{kind: MsgPassComplete, data: passComplete{result, report, err}}
}
