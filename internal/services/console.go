package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spotdiff/internal/formatter"
)

// ConsoleSink writes notices to a terminal. It backs dry runs, where nothing is posted remotely.
type ConsoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	label lipgloss.Style
	muted lipgloss.Style
}

// NewConsoleSink creates a sink writing to w, defaulting to [os.Stdout].
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{
		w:     w,
		label: lipgloss.NewStyle().Bold(true),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
	}
}

// Name returns the sink name
func (c *ConsoleSink) Name() string {
	return "Console"
}

// Targets returns the writer as the only destination.
func (c *ConsoleSink) Targets(context.Context) ([]Target, error) {
	return []Target{{ID: "stdout", Label: "console"}}, nil
}

// Send renders notice as a bordered block.
func (c *ConsoleSink) Send(_ context.Context, _ Target, notice *formatter.Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintln(c.w, c.Render(notice))
	return err
}

// Render returns the styled block for notice without writing it.
func (c *ConsoleSink) Render(notice *formatter.Notice) string {
	accent := lipgloss.Color(fmt.Sprintf("#%06X", notice.Color))

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(accent).Render(notice.Title))

	for _, f := range notice.Fields {
		if f.Name == formatter.BlankValue {
			b.WriteString("\n")
			continue
		}
		value := f.Value
		if value == formatter.BlankValue {
			value = ""
		}
		fmt.Fprintf(&b, "\n%s %s", c.label.Render(f.Name+":"), value)
	}

	if notice.Thumbnail != "" {
		fmt.Fprintf(&b, "\n%s", c.muted.Render(notice.Thumbnail))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)

	return box.Render(b.String())
}
