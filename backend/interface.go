package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the longest title, in characters, a task may carry.
const MaxTitleLength = 200

// UntitledLabel is displayed for tasks whose title is empty.
const UntitledLabel = "Untitled task"

var (
	// ErrNotFound is returned by stores when no task has the given ID.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidTask is returned when a task violates the title rules.
	ErrInvalidTask = errors.New("invalid task")
)

// Task represents a todo item as exchanged over /api/todos
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// DisplayTitle returns the title, or a placeholder when it is empty
func (t Task) DisplayTitle() string {
	if t.Title == "" {
		return UntitledLabel
	}
	return t.Title
}

// UnmarshalJSON accepts the id as either a JSON string or a number.
// Other fields fall back to their zero values when absent.
func (t *Task) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID    json.RawMessage `json:"id"`
		Title *string         `json:"title"`
		Done  *bool           `json:"done"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*t = Task{}
	id := bytes.TrimSpace(wire.ID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
	case id[0] == '"':
		if err := json.Unmarshal(id, &t.ID); err != nil {
			return fmt.Errorf("invalid task id: %w", err)
		}
	default:
		t.ID = string(id)
	}
	if wire.Title != nil {
		t.Title = *wire.Title
	}
	if wire.Done != nil {
		t.Done = *wire.Done
	}
	return nil
}

// Store defines the persistence interface behind the /api/todos server
type Store interface {
	ListTasks(ctx context.Context) ([]Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	CreateTask(ctx context.Context, title string) (*Task, error)
	UpdateTask(ctx context.Context, task Task) (*Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Connection management
	Ping(ctx context.Context) error
	Close() error
}

// NormalizeTitle trims the title and checks it against the length rules.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTask, MaxTitleLength)
	}
	return title, nil
}

// GenerateID generates a unique identifier using UUID v4.
func GenerateID() string {
	return uuid.New().String()
}
