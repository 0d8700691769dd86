package views

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"todoapp/internal/status"
)

// Renderer writes a Model as plain text, one row per line.
type Renderer struct {
	writer    io.Writer
	showIDs   bool
	emptyHint string
}

// NewRenderer creates a new plain-text renderer
func NewRenderer(writer io.Writer) *Renderer {
	return &Renderer{writer: writer, showIDs: true}
}

// WithIDs toggles the id column.
func (r *Renderer) WithIDs(show bool) *Renderer {
	r.showIDs = show
	return r
}

// WithEmptyHint replaces the empty-state text.
func (r *Renderer) WithEmptyHint(hint string) *Renderer {
	r.emptyHint = hint
	return r
}

// Render writes the rows followed by the status line
func (r *Renderer) Render(m Model) {
	if m.Empty {
		hint := r.emptyHint
		if hint == "" {
			hint = EmptyStateText
		}
		_, _ = fmt.Fprintln(r.writer, hint)
	} else {
		idWidth := 0
		if r.showIDs {
			for _, row := range m.Rows {
				if n := utf8.RuneCountInString(row.ID); n > idWidth {
					idWidth = n
				}
			}
		}
		for _, row := range m.Rows {
			_, _ = fmt.Fprintln(r.writer, r.formatRow(row, idWidth))
		}
	}

	if line := FormatStatus(m.Status); line != "" {
		_, _ = fmt.Fprintln(r.writer)
		_, _ = fmt.Fprintln(r.writer, line)
	}
}

func (r *Renderer) formatRow(row Row, idWidth int) string {
	box := "[ ]"
	if row.Done {
		box = "[x]"
	}
	if !r.showIDs {
		return fmt.Sprintf("  %s %s", box, row.Title)
	}
	pad := strings.Repeat(" ", idWidth-utf8.RuneCountInString(row.ID))
	return fmt.Sprintf("  %s%s  %s %s", row.ID, pad, box, row.Title)
}

// FormatStatus renders a status as text. Animated kinds get a "~" prefix in
// place of a spinner.
func FormatStatus(s status.Status) string {
	if s.Text == "" {
		return ""
	}
	if s.Kind.Animated() {
		return "~ " + s.Text
	}
	return s.Text
}
