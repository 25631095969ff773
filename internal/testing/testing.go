// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spotdiff/internal/formatter"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/services"
)

var (
	_ services.PlaylistSource = (*MockSource)(nil)
	_ services.UserProfiles   = (*MockProfiles)(nil)
	_ services.Sink           = (*MockSink)(nil)
)

// NewTrack builds a track contributed by addedBy at addedAt. Empty strings become nil pointers.
func NewTrack(id, title string, position int, addedAt, addedBy string) models.Track {
	t := models.Track{
		ID:        id,
		Position:  position,
		URL:       "https://open.spotify.com/track/" + id,
		Title:     title,
		AlbumName: "Album " + title,
		Artists:   "Artist",
	}
	if addedAt != "" {
		t.AddedAt = &addedAt
	}
	if addedBy != "" {
		t.AddedByID = &addedBy
	}
	return t
}

// MockSource is a test double for [services.PlaylistSource] serving Tracks in pages.
//
// A non-nil Err is returned in place of the page starting at FailAtOffset.
type MockSource struct {
	Tracks       []models.Track
	Err          error
	FailAtOffset int
	Requests     []int
}

func (m *MockSource) PlaylistTracks(ctx context.Context, playlistID string, pageSize int, fn func([]models.Track) error) error {
	if pageSize <= 0 {
		pageSize = services.DefaultPageSize
	}

	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Requests = append(m.Requests, offset)

		if m.Err != nil && offset >= m.FailAtOffset {
			return m.Err
		}

		end := min(offset+pageSize, len(m.Tracks))
		var page []models.Track
		if offset < len(m.Tracks) {
			page = m.Tracks[offset:end]
		}

		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

// MockProfiles is a test double for [services.UserProfiles].
type MockProfiles struct {
	Names map[string]string
	Err   error
	Calls []string
}

func (m *MockProfiles) DisplayName(ctx context.Context, userID string) (string, error) {
	m.Calls = append(m.Calls, userID)
	if m.Err != nil {
		return "", m.Err
	}
	name, ok := m.Names[userID]
	if !ok {
		return "", errors.New("no such user: " + userID)
	}
	return name, nil
}

// MockSink is a test double for [services.Sink] that records every delivered notice per target.
type MockSink struct {
	SinkName    string
	TargetIDs   []string
	TargetsErr  error
	FailTargets map[string]error

	mu   sync.Mutex
	Sent map[string][]*formatter.Notice
}

// NewMockSink creates a sink with the given destinations.
func NewMockSink(name string, targets ...string) *MockSink {
	return &MockSink{SinkName: name, TargetIDs: targets, FailTargets: map[string]error{}, Sent: map[string][]*formatter.Notice{}}
}

func (m *MockSink) Name() string { return m.SinkName }

func (m *MockSink) Targets(ctx context.Context) ([]services.Target, error) {
	if m.TargetsErr != nil {
		return nil, m.TargetsErr
	}
	targets := make([]services.Target, len(m.TargetIDs))
	for i, id := range m.TargetIDs {
		targets[i] = services.Target{ID: id, Label: id}
	}
	return targets, nil
}

func (m *MockSink) Send(ctx context.Context, target services.Target, notice *formatter.Notice) error {
	if err := m.FailTargets[target.ID]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent[target.ID] = append(m.Sent[target.ID], notice)
	return nil
}

// Count returns how many notices target received.
func (m *MockSink) Count(target string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent[target])
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
