// Package views turns a task list into plain display data: sort order,
// completion summary and rows. Presentation adapters render the result.
package views

import (
	"todoapp/backend"
	"todoapp/internal/status"
)

// Texts shown by the list renderer.
const (
	SyncingText    = "Syncing..."
	AllClearText   = "All clear!"
	EmptyStateText = "No tasks yet. Add one above!"
	DefaultLocale  = "en"
)

// Row is one task as displayed. Title is the display text; the record the
// row was built from is kept as is.
type Row struct {
	ID    string
	Title string
	Done  bool

	source backend.Task
}

// Task returns the record the row was built from.
func (r Row) Task() backend.Task {
	return r.source
}

// Model is the view-model of the whole list.
type Model struct {
	Rows       []Row
	Empty      bool
	DoneCount  int
	TotalCount int
	Status     status.Status
}
