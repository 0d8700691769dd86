// Package sqlite implements backend.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
	"todoapp/backend"
	"todoapp/internal/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements backend.Store using SQLite
type Store struct {
	db *sql.DB
}

// New opens the database at path and applies pending migrations.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// migrate runs the embedded goose migrations
func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		utils.Debugf("sqlite: applied migration %s in %s", r.Source.Path, r.Duration)
	}
	return nil
}

// ListTasks returns every task in creation order
func (s *Store) ListTasks(ctx context.Context) ([]backend.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, done FROM todos ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tasks := []backend.Task{}
	for rows.Next() {
		var t backend.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Done); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask returns the task with the given ID or backend.ErrNotFound
func (s *Store) GetTask(ctx context.Context, id string) (*backend.Task, error) {
	var t backend.Task
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, done FROM todos WHERE id = ?", id,
	).Scan(&t.ID, &t.Title, &t.Done)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", backend.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a new, not yet done task
func (s *Store) CreateTask(ctx context.Context, title string) (*backend.Task, error) {
	title, err := backend.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	t := backend.Task{ID: backend.GenerateID(), Title: title}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO todos (id, title, done, created_at, updated_at) VALUES (?, ?, 0, ?, ?)",
		t.ID, t.Title, now, now,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask replaces the title and done flag of an existing task
func (s *Store) UpdateTask(ctx context.Context, task backend.Task) (*backend.Task, error) {
	title, err := backend.NormalizeTitle(task.Title)
	if err != nil {
		return nil, err
	}
	task.Title = title

	res, err := s.db.ExecContext(ctx,
		"UPDATE todos SET title = ?, done = ?, updated_at = ? WHERE id = ?",
		task.Title, task.Done, time.Now().UTC().Format(time.RFC3339Nano), task.ID,
	)
	if err != nil {
		return nil, err
	}
	if err := checkRowsAffected(res, task.ID); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, id)
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", backend.ErrNotFound, id)
	}
	return nil
}
