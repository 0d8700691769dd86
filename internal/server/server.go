// Package server is the reference /api/todos HTTP server the client talks to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"todoapp/backend"
	"todoapp/internal/shutdown"
	"todoapp/internal/utils"
)

// ShutdownTimeout bounds how long in-flight requests may take to drain.
const ShutdownTimeout = 10 * time.Second

// maxBodyBytes caps request bodies; titles are short.
const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the body of health and update replies.
type StatusResponse struct {
	Status string `json:"status"`
}

type createRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type updateRequest struct {
	Title *string `json:"title"`
	Done  *bool   `json:"done"`
}

type handler struct {
	store backend.Store
}

// NewHandler builds the router serving /api/health and /api/todos from store.
// An empty origins list allows any origin.
func NewHandler(store backend.Store, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h := &handler{store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  utils.GetLogger().StandardLog(),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/todos", h.listTasks)
		r.Post("/todos", h.createTask)
		r.Put("/todos/{id}", h.updateTask)
		r.Delete("/todos/{id}", h.deleteTask)
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		utils.Warnf("health check failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "OK"})
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		writeStoreError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	task, err := h.store.CreateTask(r.Context(), req.Title)
	if err != nil {
		writeStoreError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, "update", err)
		return
	}
	if req.Title != nil {
		check := createRequest{Title: strings.TrimSpace(*req.Title)}
		if err := validate.Struct(&check); err != nil {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		task.Title = check.Title
	}
	if req.Done != nil {
		task.Done = *req.Done
	}

	if _, err := h.store.UpdateTask(r.Context(), *task); err != nil {
		writeStoreError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func validationMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "'required'"):
		return "title is required"
	case strings.Contains(msg, "'max'"):
		return fmt.Sprintf("title exceeds %d characters", backend.MaxTitleLength)
	}
	return msg
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, backend.ErrInvalidTask):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		utils.Errorf("%s failed: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Warnf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// Run opens the configured store and serves until ctx is done or the
// process receives SIGINT or SIGTERM.
func Run(ctx context.Context, cfg *Config) error {
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		utils.GetLogger().Base().SetLevel(lvl)
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return err
	}

	mgr := shutdown.NewManagerWithParent(ctx)
	mgr.NotifySignals()
	return Serve(mgr, ln, store, cfg.Origins())
}

// Serve handles requests on ln until mgr shuts down, then drains
// connections and closes store.
func Serve(mgr *shutdown.Manager, ln net.Listener, store backend.Store, origins []string) error {
	srv := &http.Server{
		Handler:           NewHandler(store, origins),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          utils.GetLogger().StandardLog(),
	}

	mgr.RegisterCleanup("store", func(context.Context) error {
		return store.Close()
	})
	mgr.RegisterCleanup("http", srv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		utils.Infof("listening on %s", ln.Addr())
		serveErr <- srv.Serve(ln)
	}()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		mgr.Shutdown()
	case <-mgr.Done():
		utils.Infof("shutting down (%s)", mgr.Reason())
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return errors.Join(err, mgr.Wait(ctx))
}
