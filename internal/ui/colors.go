package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spotdiff/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Outcome returns the style used to label results with outcome o.
func (p *Palette) Outcome(o models.Outcome) lipgloss.Style {
	switch o {
	case models.OutcomeNewTrack:
		return p.ok
	case models.OutcomeConflict:
		return p.warn
	default:
		return p.help
	}
}

// Title renders s as a heading for CLI output.
func Title(s string) string { return styles.title.Render(s) }

// OK renders s as a success line.
func OK(s string) string { return styles.ok.Render(s) }

// Warn renders s as a warning line.
func Warn(s string) string { return styles.warn.Render(s) }

// Err renders s as an error line.
func Err(s string) string { return styles.err.Render(s) }

// Muted renders s as secondary text.
func Muted(s string) string { return styles.help.Render(s) }

// OutcomeLabel renders the name of o in its outcome color.
func OutcomeLabel(o models.Outcome) string { return styles.Outcome(o).Render(o.String()) }
