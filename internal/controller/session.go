package controller

import (
	"sync"

	"todoapp/backend"
)

// Session is the per-controller client state: the create guard and the
// edit guard. Commands run on their own goroutines, so access is locked.
type Session struct {
	mu       sync.Mutex
	creating bool
	editing  *backend.Task
}

// Creating reports whether a create call is in flight.
func (s *Session) Creating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creating
}

// Editing returns the task being edited, if any.
func (s *Session) Editing() (backend.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return backend.Task{}, false
	}
	return *s.editing, true
}

// EditingID returns the id of the task being edited, or "".
func (s *Session) EditingID() string {
	t, _ := s.Editing()
	return t.ID
}

func (s *Session) beginCreate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creating {
		return false
	}
	s.creating = true
	return true
}

func (s *Session) endCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
}

func (s *Session) beginEdit(task backend.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing != nil {
		return false
	}
	s.editing = &task
	return true
}

func (s *Session) endEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = nil
}

func (s *Session) isEditing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing != nil
}
