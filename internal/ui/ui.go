package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	ConflictView
	ConfirmView
	PassView
	ResultView
)

// TrackBrowser reads the stored snapshot. See [repositories.TrackRepository].
type TrackBrowser interface {
	List(ctx context.Context) ([]models.StoredTrack, error)
	FindTitleConflicts(ctx context.Context, title string, excludeAddedAt *string) ([]models.Track, error)
}

// PassRunner runs a single pass. See [tasks.PassRunner].
type PassRunner interface {
	Run(ctx context.Context, playlistID string, progress chan<- tasks.ProgressUpdate) (*tasks.PassResult, error)
}

// Dispatcher delivers notices for a finished pass. See [tasks.Dispatcher].
type Dispatcher interface {
	Dispatch(ctx context.Context, results []models.Result, progress chan<- tasks.ProgressUpdate) (*tasks.DispatchReport, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	store      TrackBrowser
	runner     PassRunner
	dispatcher Dispatcher
	playlistID string

	width        int
	height       int
	trackList    list.Model
	conflictList list.Model
	resultList   list.Model
	tracks       []models.StoredTrack
	selected     *models.Track

	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.PassResult
	report       *tasks.DispatchReport
	err          error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model. dispatcher may be nil, in which case passes run without notifying.
func NewModel(ctx context.Context, store TrackBrowser, runner PassRunner, dispatcher Dispatcher, playlistID string) *Model {
	newList := func(title string) list.Model {
		l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
		l.Title = title
		return l
	}

	return &Model{
		ctx:          ctx,
		view:         TrackListView,
		store:        store,
		runner:       runner,
		dispatcher:   dispatcher,
		playlistID:   playlistID,
		trackList:    newList("Stored Tracks"),
		conflictList: newList("Possible Duplicates"),
		resultList:   newList("Actionable Tracks"),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by loading the stored snapshot.
func (m *Model) Init() tea.Cmd {
	return m.loadTracks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.trackList, &m.conflictList, &m.resultList} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConflictView:
			return m.handleConflictKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case PassView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTracksLoaded:
		data := msg.data.(tracksLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.tracks = data.tracks
		items := make([]list.Item, len(data.tracks))
		for i, t := range data.tracks {
			items[i] = trackItem{track: t.Track}
		}
		m.trackList.Title = fmt.Sprintf("Stored Tracks (%d)", len(items))
		return m, m.trackList.SetItems(items)

	case MsgConflictsLoaded:
		data := msg.data.(conflictsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.selected = &data.track
		m.conflictList.Title = fmt.Sprintf("Possible duplicates of '%s'", data.track.Title)
		m.view = ConflictView
		return m, m.conflictList.SetItems(trackItems(data.conflicts))

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgPassComplete:
		data := msg.data.(passComplete)
		m.result = data.result
		m.report = data.report
		m.err = data.err
		m.view = ResultView
		m.progressChan = nil
		m.doneChan = nil

		var cmd tea.Cmd
		if m.result != nil {
			items := make([]list.Item, len(m.result.Actionable))
			for i, r := range m.result.Actionable {
				items[i] = resultItem{result: r}
			}
			cmd = m.resultList.SetItems(items)
		}
		return m, cmd
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to reload, q to quit", m.err))
	}

	switch m.view {
	case TrackListView:
		return m.renderTrackList()
	case ConflictView:
		return m.renderConflicts()
	case ConfirmView:
		return m.renderConfirm()
	case PassView:
		return m.renderPass()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.err = nil
		return m, m.loadTracks()
	case key.Matches(msg, m.keys.pass):
		if m.runner != nil && m.err == nil {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			return m, m.loadConflicts(item.track)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConflictKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = TrackListView
		m.selected = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.conflictList, cmd = m.conflictList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = PassView
		return m, m.startPass()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload), key.Matches(msg, m.keys.back):
		m.view = TrackListView
		m.result = nil
		m.report = nil
		m.err = nil
		return m, m.loadTracks()
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case ConflictView:
		m.conflictList, cmd = m.conflictList.Update(msg)
	case ResultView:
		m.resultList, cmd = m.resultList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadTracks() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.store.List(m.ctx)
		return tracksLoadedMsg(tracks, err)
	}
}

func (m *Model) loadConflicts(track models.Track) tea.Cmd {
	return func() tea.Msg {
		conflicts, err := m.store.FindTitleConflicts(m.ctx, track.Title, track.AddedAt)
		return conflictsLoadedMsg(track, conflicts, err)
	}
}

// startPass runs the pass in the background. The outcome is delivered on doneChan before progressChan closes.
func (m *Model) startPass() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done
	m.progress = tasks.ProgressUpdate{}

	go func() {
		defer close(progress)

		result, err := m.runner.Run(m.ctx, m.playlistID, progress)
		if err != nil || m.dispatcher == nil || len(result.Actionable) == 0 {
			done <- passCompleteMsg(result, nil, err)
			return
		}

		report, err := m.dispatcher.Dispatch(m.ctx, result.Actionable, progress)
		done <- passCompleteMsg(result, report, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.reload, m.keys.quit}
	if m.runner != nil {
		helpKeys = []key.Binding{m.keys.enter, m.keys.pass, m.keys.reload, m.keys.quit}
	}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConflicts() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if len(m.conflictList.Items()) == 0 && m.selected != nil {
		title := styles.title.Render(fmt.Sprintf("No stored track conflicts with '%s'", m.selected.Title))
		return fmt.Sprintf("%s\n\n%s", title, helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.conflictList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Run a pass against playlist '%s'?", m.playlistID))
	info := fmt.Sprintf("\nStored tracks: %d\n", len(m.tracks))
	if m.dispatcher != nil {
		info += styles.warn.Render("New tracks and conflicts will be sent to every configured sink.") + "\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderPass() string {
	title := styles.title.Render("Running Pass")

	var phase string
	switch m.progress.Phase {
	case tasks.BeginPass:
		phase = "Capturing baseline..."
	case tasks.FetchPage:
		phase = fmt.Sprintf("Fetching playlist (page %d)", m.progress.Step)
	case tasks.ClassifyTracks:
		phase = fmt.Sprintf("Classifying tracks (%d)", m.progress.Step)
	case tasks.PurgeTracks:
		phase = "Removing tracks no longer in the playlist..."
	case tasks.DispatchNotices:
		phase = "Sending notices..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Pass failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	if m.result == nil || m.result.Pass == nil {
		return styles.err.Render("No result available\n\nPress r to go back, q to quit")
	}

	p := m.result.Pass
	title := styles.ok.Render(fmt.Sprintf("✓ Pass #%d Complete!", p.Sequence))

	var b strings.Builder
	fmt.Fprintf(&b, "\nBaseline: %s", m.result.Baseline)
	fmt.Fprintf(&b, "\nFetched: %d (new %d, conflicts %d, existing %d, backfilled %d)", p.Fetched, p.New, p.Conflicts, p.Existing, p.Backfilled)
	fmt.Fprintf(&b, "\nPurged: %d", p.Purged)
	if m.report != nil {
		line := fmt.Sprintf("\nDelivered: %d sent, %d failed", m.report.Sent(), m.report.Failed())
		if m.report.Failed() > 0 || len(m.report.SinkErrors) > 0 {
			line = styles.warn.Render(line)
		}
		b.WriteString(line)
	}

	body := ""
	if len(m.result.Actionable) > 0 {
		body = "\n\n" + m.resultList.View()
	}

	helpKeys := []key.Binding{m.keys.reload, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, b.String(), body, helpView)
}
