package views

import (
	"fmt"

	"todoapp/backend"
	"todoapp/internal/status"
)

// Summarize returns the status line for a list with done of total tasks completed.
func Summarize(done, total int) status.Status {
	switch {
	case total == 0:
		return status.Status{Text: AllClearText, Kind: status.KindSuccess}
	case done == total:
		return status.Status{Text: fmt.Sprintf("All %d done!", total), Kind: status.KindSuccess}
	default:
		return status.Status{Text: fmt.Sprintf("%d/%d completed", done, total), Kind: status.KindNone}
	}
}

// Build renders tasks into a Model. An empty list yields the empty state with no rows.
func Build(tasks []backend.Task, locale string) Model {
	if len(tasks) == 0 {
		return Model{Empty: true, Status: Summarize(0, 0)}
	}

	sorted := SortTasks(tasks, locale)
	m := Model{
		Rows:       make([]Row, 0, len(sorted)),
		TotalCount: len(sorted),
	}
	for _, t := range sorted {
		if t.Done {
			m.DoneCount++
		}
		m.Rows = append(m.Rows, Row{ID: t.ID, Title: t.DisplayTitle(), Done: t.Done, source: t})
	}
	m.Status = Summarize(m.DoneCount, m.TotalCount)
	return m
}
