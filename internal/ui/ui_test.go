package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/tasks"
)

type fakeStore struct {
	tracks    []models.StoredTrack
	conflicts []models.Track
	err       error
}

func (f *fakeStore) List(ctx context.Context) ([]models.StoredTrack, error) {
	return f.tracks, f.err
}

func (f *fakeStore) FindTitleConflicts(ctx context.Context, title string, excludeAddedAt *string) ([]models.Track, error) {
	return f.conflicts, f.err
}

type fakeRunner struct {
	result *tasks.PassResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, playlistID string, progress chan<- tasks.ProgressUpdate) (*tasks.PassResult, error) {
	progress <- tasks.ProgressUpdate{Phase: tasks.FetchPage, Step: 1, Message: "Fetched page 1 (2 tracks)"}
	return f.result, f.err
}

type fakeDispatcher struct {
	calls int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, results []models.Result, progress chan<- tasks.ProgressUpdate) (*tasks.DispatchReport, error) {
	f.calls++
	return &tasks.DispatchReport{Notices: len(results), Targets: []tasks.TargetReport{{Sink: "console", Sent: len(results)}}}, nil
}

func keyPress(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func stored(id, title string, position int) models.StoredTrack {
	addedAt := "2024-01-01T00:00:00Z"
	return models.StoredTrack{Track: models.Track{ID: id, Title: title, Position: position, Artists: "Artist", AddedAt: &addedAt}}
}

func newTestModel(store *fakeStore, runner PassRunner, dispatcher Dispatcher) *Model {
	m := NewModel(context.Background(), store, runner, dispatcher, "playlist-1")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m.Update(m.Init()())
	return m
}

// drain runs cmd and feeds its messages back until the model leaves the pass view.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && m.view == PassView; i++ {
		if i > 10 {
			t.Fatal("pass never completed")
		}
		_, cmd = m.Update(cmd())
	}
}

func TestModel(t *testing.T) {
	t.Run("loads stored tracks on init", func(t *testing.T) {
		m := newTestModel(&fakeStore{tracks: []models.StoredTrack{stored("A", "Song1", 1), stored("B", "Song2", 2)}}, nil, nil)

		if n := len(m.trackList.Items()); n != 2 {
			t.Errorf("expected 2 items, got %d", n)
		}
		if !strings.Contains(m.View(), "Stored Tracks (2)") {
			t.Errorf("expected title with count, got %q", m.View())
		}
	})

	t.Run("load failure is shown", func(t *testing.T) {
		m := newTestModel(&fakeStore{err: errors.New("database is locked")}, nil, nil)

		if !strings.Contains(m.View(), "database is locked") {
			t.Errorf("expected error in view, got %q", m.View())
		}
	})

	t.Run("enter shows conflicts and esc goes back", func(t *testing.T) {
		store := &fakeStore{
			tracks:    []models.StoredTrack{stored("A", "Song1", 1)},
			conflicts: []models.Track{{ID: "B", Title: "Song1", Position: 4}},
		}
		m := newTestModel(store, nil, nil)

		_, cmd := m.Update(keyPress("enter"))
		if cmd == nil {
			t.Fatal("expected a conflict lookup")
		}
		m.Update(cmd())

		if m.view != ConflictView {
			t.Fatalf("expected ConflictView, got %d", m.view)
		}
		if m.selected == nil || m.selected.ID != "A" {
			t.Errorf("expected A selected, got %+v", m.selected)
		}
		if n := len(m.conflictList.Items()); n != 1 {
			t.Errorf("expected 1 conflict, got %d", n)
		}

		m.Update(keyPress("esc"))
		if m.view != TrackListView {
			t.Errorf("expected TrackListView, got %d", m.view)
		}
	})

	t.Run("no conflicts", func(t *testing.T) {
		m := newTestModel(&fakeStore{tracks: []models.StoredTrack{stored("A", "Song1", 1)}}, nil, nil)

		_, cmd := m.Update(keyPress("enter"))
		m.Update(cmd())

		if !strings.Contains(m.View(), "No stored track conflicts with 'Song1'") {
			t.Errorf("unexpected view: %q", m.View())
		}
	})

	t.Run("pass requires a runner", func(t *testing.T) {
		m := newTestModel(&fakeStore{}, nil, nil)

		m.Update(keyPress("p"))
		if m.view != TrackListView {
			t.Errorf("expected to stay on TrackListView, got %d", m.view)
		}
	})

	t.Run("pass can be declined", func(t *testing.T) {
		m := newTestModel(&fakeStore{}, &fakeRunner{}, nil)

		m.Update(keyPress("p"))
		if m.view != ConfirmView {
			t.Fatalf("expected ConfirmView, got %d", m.view)
		}
		m.Update(keyPress("n"))
		if m.view != TrackListView {
			t.Errorf("expected TrackListView, got %d", m.view)
		}
	})

	t.Run("confirmed pass reports results and dispatches", func(t *testing.T) {
		track := models.Track{ID: "C", Title: "Fresh", Position: 3}
		runner := &fakeRunner{result: &tasks.PassResult{
			Pass:       &models.Pass{Sequence: 7, Fetched: 3, New: 1, Existing: 2},
			Baseline:   "2024-01-01T00:00:00Z",
			Actionable: []models.Result{models.NewTrackResult(track)},
		}}
		dispatcher := &fakeDispatcher{}
		m := newTestModel(&fakeStore{}, runner, dispatcher)

		m.Update(keyPress("p"))
		_, cmd := m.Update(keyPress("y"))
		if m.view != PassView {
			t.Fatalf("expected PassView, got %d", m.view)
		}
		drain(t, m, cmd)

		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %d", m.view)
		}
		if dispatcher.calls != 1 {
			t.Errorf("expected one dispatch, got %d", dispatcher.calls)
		}

		view := m.View()
		for _, want := range []string{"Pass #7", "new 1", "Delivered: 1 sent, 0 failed"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in view, got %q", want, view)
			}
		}
		if n := len(m.resultList.Items()); n != 1 {
			t.Errorf("expected 1 actionable item, got %d", n)
		}
	})

	t.Run("failed pass", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		m := newTestModel(&fakeStore{}, &fakeRunner{err: errors.New("rate limited")}, dispatcher)

		m.Update(keyPress("p"))
		_, cmd := m.Update(keyPress("y"))
		drain(t, m, cmd)

		if !strings.Contains(m.View(), "Pass failed: rate limited") {
			t.Errorf("unexpected view: %q", m.View())
		}
		if dispatcher.calls != 0 {
			t.Errorf("failed pass must not dispatch, got %d calls", dispatcher.calls)
		}

		m.Update(keyPress("r"))
		if m.view != TrackListView || m.err != nil {
			t.Errorf("expected reset to TrackListView, got view %d err %v", m.view, m.err)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := newTestModel(&fakeStore{}, nil, nil)

		_, cmd := m.Update(keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
