// Package fakeapi provides an in-memory /api/todos server with failure
// injection for client tests.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"todoapp/backend"
)

// Request is one request seen by the server.
type Request struct {
	Method string
	Path   string
	Body   string
}

// Server is a fake todo API.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	tasks     []backend.Task
	nextID    int
	failNext  int
	failAll   bool
	failCode  int
	override  map[string]string
	requests  []Request
	onRequest func(Request)
}

// New starts a fake API and closes it when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{failCode: http.StatusInternalServerError, override: map[string]string{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Seed replaces the stored tasks. Tasks without an ID get one.
func (s *Server) Seed(tasks ...backend.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	for _, t := range tasks {
		if t.ID == "" {
			s.nextID++
			t.ID = strconv.Itoa(s.nextID)
		}
		s.tasks = append(s.tasks, t)
	}
}

// Tasks returns a copy of the stored tasks.
func (s *Server) Tasks() []backend.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Task(nil), s.tasks...)
}

// FailNext makes the next n requests answer with the failure status.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// FailAll makes every request fail until called with false.
func (s *Server) FailAll(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = fail
}

// SetFailureStatus sets the status code used for injected failures.
func (s *Server) SetFailureStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCode = code
}

// Override answers "METHOD /path" with a raw 200 body instead of the fake store.
func (s *Server) Override(method, path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override[method+" "+path] = body
}

// OnRequest registers a hook called, outside the lock, for every request.
func (s *Server) OnRequest(fn func(Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRequest = fn
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns the number of requests received so far.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&raw)
	req := Request{Method: r.Method, Path: r.URL.Path, Body: string(raw)}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	hook := s.onRequest
	fail := s.failAll || s.failNext > 0
	if s.failNext > 0 {
		s.failNext--
	}
	code := s.failCode
	body, overridden := s.override[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if fail {
		writeJSON(w, code, map[string]string{"error": "injected failure"})
		return
	}
	if overridden {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
		return
	}

	s.route(w, r.Method, r.URL.Path, raw)
}

func (s *Server) route(w http.ResponseWriter, method, path string, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "/api/health" && method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
		return
	}

	if path == "/api/todos" {
		switch method {
		case http.MethodGet:
			tasks := append([]backend.Task{}, s.tasks...)
			writeJSON(w, http.StatusOK, tasks)
		case http.MethodPost:
			var in struct {
				Title string `json:"title"`
			}
			_ = json.Unmarshal(raw, &in)
			title, err := backend.NormalizeTitle(in.Title)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			s.nextID++
			t := backend.Task{ID: strconv.Itoa(s.nextID), Title: title}
			s.tasks = append(s.tasks, t)
			writeJSON(w, http.StatusCreated, t)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, ok := strings.CutPrefix(path, "/api/todos/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Todo not found"})
		return
	}

	switch method {
	case http.MethodPut:
		var in struct {
			Title string `json:"title"`
			Done  bool   `json:"done"`
		}
		_ = json.Unmarshal(raw, &in)
		title, err := backend.NormalizeTitle(in.Title)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.tasks[idx].Title = title
		s.tasks[idx].Done = in.Done
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case http.MethodDelete:
		s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
