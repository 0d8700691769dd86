// Package postgres implements backend.Store on PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"todoapp/backend"
	"todoapp/internal/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements backend.Store using PostgreSQL
type Store struct {
	db *sql.DB
}

// New connects to the database at dsn and applies pending migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		utils.Debugf("postgres: applied migration %s in %s", r.Source.Path, r.Duration)
	}
	return nil
}

// ListTasks returns every task in creation order
func (s *Store) ListTasks(ctx context.Context) ([]backend.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, done FROM todos ORDER BY seq")
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []backend.Task{}
	for rows.Next() {
		var t backend.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Done); err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, t)
	}
	return tasks, MapError(rows.Err())
}

// GetTask returns the task with the given ID or backend.ErrNotFound
func (s *Store) GetTask(ctx context.Context, id string) (*backend.Task, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", backend.ErrNotFound, id)
	}

	var t backend.Task
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, done FROM todos WHERE id = $1", id,
	).Scan(&t.ID, &t.Title, &t.Done)
	if err != nil {
		return nil, MapError(err)
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
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO todos (id, title, done) VALUES ($1, $2, FALSE)",
		t.ID, t.Title,
	)
	if err != nil {
		return nil, MapError(err)
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

	if !validID(task.ID) {
		return nil, fmt.Errorf("%w: %s", backend.ErrNotFound, task.ID)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE todos SET title = $1, done = $2, updated_at = NOW() WHERE id = $3",
		task.Title, task.Done, task.ID,
	)
	if err != nil {
		return nil, MapError(err)
	}
	if err := CheckRowsAffected(res, task.ID); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", backend.ErrNotFound, id)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = $1", id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(res, id)
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// validID reports whether id can be compared against the uuid column.
// Anything else cannot exist in the table.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
