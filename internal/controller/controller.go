// Package controller implements the list view controller: refresh, create,
// toggle, in-place edit and delete, independent of how the list is drawn.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"todoapp/backend"
	"todoapp/internal/status"
	"todoapp/internal/utils"
	"todoapp/internal/views"
)

// Status texts set by the controller.
const (
	AddingText     = "Adding..."
	SavingText     = "Saving..."
	SaveFailedText = "Save failed - changes discarded"
)

var (
	// ErrEmptyTitle is returned when a title is blank after trimming.
	ErrEmptyTitle = errors.New("title is empty")
	// ErrTitleTooLong is returned when a title exceeds backend.MaxTitleLength.
	ErrTitleTooLong = fmt.Errorf("title exceeds %d characters", backend.MaxTitleLength)
	// ErrCreateInFlight is returned when a create is submitted while another runs.
	ErrCreateInFlight = errors.New("a create is already in progress")
	// ErrEditInProgress is returned when another task is already being edited.
	ErrEditInProgress = errors.New("another task is being edited")
	// ErrNotEditing is returned by CommitEdit when no edit is active.
	ErrNotEditing = errors.New("no task is being edited")
)

// API is the subset of the remote client the controller needs.
type API interface {
	ListTasks(ctx context.Context) ([]backend.Task, error)
	CreateTask(ctx context.Context, title string) (*backend.Task, error)
	UpdateTask(ctx context.Context, task backend.Task) (*backend.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Result is the outcome of a render cycle.
type Result struct {
	Model views.Model
	// Rendered is false when the cycle was skipped or aborted; the caller
	// keeps showing the previous list.
	Rendered bool
	// Cancelled is set by CommitEdit when the edit ended without a save.
	Cancelled bool
}

// Controller dispatches user actions to the API and rebuilds the list.
type Controller struct {
	api     API
	status  status.Sink
	locale  string
	session *Session
}

// New creates a Controller. A nil sink discards status updates.
func New(api API, sink status.Sink, locale string) *Controller {
	if sink == nil {
		sink = status.Discard
	}
	return &Controller{
		api:     api,
		status:  sink,
		locale:  locale,
		session: &Session{},
	}
}

// Session exposes the controller's session state.
func (c *Controller) Session() *Session {
	return c.session
}

// Refresh fetches the list and rebuilds the view-model. It does nothing
// while an edit is active, and aborts without a model if the fetch fails
// or an edit started while it was in flight.
func (c *Controller) Refresh(ctx context.Context) (Result, error) {
	if c.session.isEditing() {
		utils.Debugf("refresh skipped: edit in progress")
		return Result{}, nil
	}

	c.status.Set(views.SyncingText, status.KindLoading)

	tasks, err := c.api.ListTasks(ctx)
	if err != nil {
		return Result{}, err
	}
	if c.session.isEditing() {
		utils.Debugf("refresh aborted: edit started during fetch")
		return Result{}, nil
	}

	m := views.Build(tasks, c.locale)
	c.status.Set(m.Status.Text, m.Status.Kind)
	return Result{Model: m, Rendered: true}, nil
}

// rerender runs the refresh that follows a successful action. Its failure
// does not fail the action.
func (c *Controller) rerender(ctx context.Context) Result {
	r, err := c.Refresh(ctx)
	if err != nil {
		utils.Debugf("refresh after action failed: %v", err)
		return Result{}
	}
	return r
}

// ValidateTitle trims title and checks it locally.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > backend.MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// Create adds a task. Invalid titles and concurrent submissions are
// rejected without a network call. On error the caller keeps its input.
func (c *Controller) Create(ctx context.Context, title string) (Result, error) {
	title, err := ValidateTitle(title)
	if err != nil {
		return Result{}, err
	}
	if !c.session.beginCreate() {
		return Result{}, ErrCreateInFlight
	}

	c.status.Set(AddingText, status.KindLoading)
	_, err = c.api.CreateTask(ctx, title)
	c.session.endCreate()
	if err != nil {
		return Result{}, err
	}

	utils.Debugf("created task %q", title)
	return c.rerender(ctx), nil
}

// Toggle flips the done flag of task.
func (c *Controller) Toggle(ctx context.Context, task backend.Task) (Result, error) {
	task.Done = !task.Done
	if _, err := c.api.UpdateTask(ctx, task); err != nil {
		return Result{}, err
	}
	utils.Debugf("toggled task %s to done=%v", task.ID, task.Done)
	return c.rerender(ctx), nil
}

// Delete removes the task with the given id.
func (c *Controller) Delete(ctx context.Context, id string) (Result, error) {
	if err := c.api.DeleteTask(ctx, id); err != nil {
		return Result{}, err
	}
	utils.Debugf("deleted task %s", id)
	return c.rerender(ctx), nil
}

// StartEdit puts task into edit mode. Only one task may be edited at a time.
func (c *Controller) StartEdit(task backend.Task) error {
	if !c.session.beginEdit(task) {
		return ErrEditInProgress
	}
	utils.Debugf("editing task %s", task.ID)
	return nil
}

// CancelEdit leaves edit mode without a network call.
func (c *Controller) CancelEdit() {
	c.session.endEdit()
}

// CommitEdit saves input as the edited task's new title. A blank or
// unchanged title cancels the edit. A failed save clears edit mode and
// reports SaveFailedText; the previous title stays on screen.
func (c *Controller) CommitEdit(ctx context.Context, input string) (Result, error) {
	orig, ok := c.session.Editing()
	if !ok {
		return Result{}, ErrNotEditing
	}

	title := strings.TrimSpace(input)
	if title == "" || title == orig.Title {
		c.session.endEdit()
		return Result{Cancelled: true}, nil
	}
	if utf8.RuneCountInString(title) > backend.MaxTitleLength {
		return Result{}, ErrTitleTooLong
	}

	c.status.Set(SavingText, status.KindLoading)
	_, err := c.api.UpdateTask(ctx, backend.Task{ID: orig.ID, Title: title, Done: orig.Done})
	c.session.endEdit()
	if err != nil {
		if ctx.Err() == nil {
			utils.Warnf("saving task %s failed: %v", orig.ID, err)
			c.status.Set(SaveFailedText, status.KindError)
		}
		return Result{}, err
	}

	return c.rerender(ctx), nil
}
