// Package tui provides a terminal user interface for the task list.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todoapp/backend"
	"todoapp/internal/controller"
	"todoapp/internal/status"
	"todoapp/internal/utils"
	"todoapp/internal/views"
)

const (
	// DefaultRefreshInterval is the period of the background refresh.
	DefaultRefreshInterval = 30 * time.Second
	// DefaultRemoveDelay is how long a deleted row is shown as removing.
	DefaultRemoveDelay = 200 * time.Millisecond
)

// Focus indicates which part of the screen receives keys
type Focus int

const (
	FocusList Focus = iota
	FocusInput
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeEdit
	ModeHelp
	ModeConfirmDelete
)

// Options configures the TUI.
type Options struct {
	// Context bounds every API call; it is cancelled on quit.
	Context context.Context
	// RefreshInterval for the periodic refresh. Default: 30s
	RefreshInterval time.Duration
	// RemoveDelay of the delete transition. Default: 200ms
	RemoveDelay time.Duration
}

// Model represents the TUI state
type Model struct {
	ctrl    *controller.Controller
	display *status.Display
	ctx     context.Context
	cancel  context.CancelFunc

	refreshInterval time.Duration
	removeDelay     time.Duration

	// Data
	rows     []views.Row
	empty    bool
	loaded   bool
	removing map[string]bool

	// confirming is the task the delete dialog asks about, fixed when the
	// dialog opens.
	confirming *backend.Task

	// Selection
	cursor int
	focus  Focus

	// Mode and input
	mode      Mode
	newInput  textinput.Model
	editInput textinput.Model
	saving    bool
	spinner   spinner.Model

	// UI dimensions
	width  int
	height int

	// Styles
	titleStyle     lipgloss.Style
	selectedStyle  lipgloss.Style
	completedStyle lipgloss.Style
	removingStyle  lipgloss.Style
	helpStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	buttonStyle    lipgloss.Style
	disabledStyle  lipgloss.Style
	statusStyles   map[status.Kind]lipgloss.Style
}

// Message types
type refreshedMsg struct {
	result controller.Result
	err    error
}

type createdMsg struct {
	result controller.Result
	err    error
}

type editDoneMsg struct {
	result controller.Result
	err    error
}

type actionDoneMsg struct {
	id     string
	result controller.Result
	err    error
}

type removeMsg struct {
	id string
}

type tickMsg struct{}

// New creates a new TUI model
func New(ctrl *controller.Controller, display *status.Display, opts Options) *Model {
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	removeDelay := opts.RemoveDelay
	if removeDelay <= 0 {
		removeDelay = DefaultRemoveDelay
	}

	ni := textinput.New()
	ni.Placeholder = "What needs to be done?"
	ni.CharLimit = backend.MaxTitleLength

	ei := textinput.New()
	ei.CharLimit = backend.MaxTitleLength

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &Model{
		ctrl:            ctrl,
		display:         display,
		ctx:             ctx,
		cancel:          cancel,
		refreshInterval: refresh,
		removeDelay:     removeDelay,
		removing:        map[string]bool{},
		focus:           FocusList,
		mode:            ModeNormal,
		newInput:        ni,
		editInput:       ei,
		spinner:         sp,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		completedStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		removingStyle: lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("203")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		buttonStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),
		disabledStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Background(lipgloss.Color("237")).
			Padding(0, 1),
		statusStyles: map[status.Kind]lipgloss.Style{
			status.KindNone:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
			status.KindLoading:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			status.KindConnecting: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			status.KindError:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			status.KindSuccess:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		},
	}
}

// Init initializes the TUI
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.scheduleRefresh(), m.spinner.Tick)
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		r, err := m.ctrl.Refresh(m.ctx)
		return refreshedMsg{r, err}
	}
}

// scheduleRefresh arms the next periodic refresh. It is re-armed on every
// tick whether or not the refresh runs.
func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *Model) createTask(title string) tea.Cmd {
	return func() tea.Msg {
		r, err := m.ctrl.Create(m.ctx, title)
		return createdMsg{r, err}
	}
}

func (m *Model) toggleTask(task backend.Task) tea.Cmd {
	return func() tea.Msg {
		r, err := m.ctrl.Toggle(m.ctx, task)
		return actionDoneMsg{id: task.ID, result: r, err: err}
	}
}

func (m *Model) deleteTask(id string) tea.Cmd {
	return func() tea.Msg {
		r, err := m.ctrl.Delete(m.ctx, id)
		return actionDoneMsg{id: id, result: r, err: err}
	}
}

func (m *Model) commitEdit(value string) tea.Cmd {
	m.saving = true
	return func() tea.Msg {
		r, err := m.ctrl.CommitEdit(m.ctx, value)
		return editDoneMsg{r, err}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		cmds := []tea.Cmd{m.scheduleRefresh()}
		if m.mode != ModeEdit {
			cmds = append(cmds, m.refresh())
		}
		return m, tea.Batch(cmds...)

	case refreshedMsg:
		m.handleResult(msg.result, msg.err)
		return m, nil

	case createdMsg:
		if msg.err == nil {
			m.newInput.Reset()
		}
		m.handleResult(msg.result, msg.err)
		return m, nil

	case actionDoneMsg:
		delete(m.removing, msg.id)
		m.handleResult(msg.result, msg.err)
		return m, nil

	case removeMsg:
		return m, m.deleteTask(msg.id)

	case editDoneMsg:
		m.saving = false
		if errors.Is(msg.err, controller.ErrTitleTooLong) {
			return m, nil
		}
		m.mode = ModeNormal
		m.editInput.Blur()
		m.handleResult(msg.result, msg.err)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}

		switch m.mode {
		case ModeEdit:
			return m.handleEditMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeConfirmDelete:
			return m.handleConfirmDeleteMode(msg)
		}

		if m.focus == FocusInput {
			return m.handleInputFocus(msg)
		}
		return m.handleListFocus(msg)
	}

	return m, nil
}

// handleResult applies a controller result. Failures keep the current list;
// the API client has already updated the status line.
func (m *Model) handleResult(r controller.Result, err error) {
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			utils.Debugf("tui: %v", err)
		}
		return
	}
	if !r.Rendered {
		return
	}
	m.rows = r.Model.Rows
	m.empty = r.Model.Empty
	m.loaded = true
	if m.confirming != nil {
		m.followConfirming()
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// followConfirming moves the cursor to the task awaiting delete
// confirmation, or closes the dialog when a refresh removed it.
func (m *Model) followConfirming() {
	for i, row := range m.rows {
		if row.ID == m.confirming.ID {
			m.cursor = i
			return
		}
	}
	m.closeConfirm()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m *Model) selected() (backend.Task, bool) {
	if len(m.rows) == 0 || m.cursor >= len(m.rows) {
		return backend.Task{}, false
	}
	return m.rows[m.cursor].Task(), true
}

func (m *Model) focusInput() (tea.Model, tea.Cmd) {
	m.focus = FocusInput
	return m, m.newInput.Focus()
}

func (m *Model) handleListFocus(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()

	case "tab", "a", "i":
		return m.focusInput()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil

	case " ", "x", "c":
		if task, ok := m.selected(); ok && !m.removing[task.ID] {
			return m, m.toggleTask(task)
		}
		return m, nil

	case "e", "enter":
		task, ok := m.selected()
		if !ok || m.removing[task.ID] {
			return m, nil
		}
		if err := m.ctrl.StartEdit(task); err != nil {
			return m, nil
		}
		m.mode = ModeEdit
		m.editInput.SetValue(task.Title)
		m.editInput.CursorEnd()
		return m, m.editInput.Focus()

	case "d":
		if task, ok := m.selected(); ok && !m.removing[task.ID] {
			m.confirming = &task
			m.mode = ModeConfirmDelete
		}
		return m, nil

	case "r":
		return m, m.refresh()

	case "?":
		m.mode = ModeHelp
		return m, nil
	}

	return m, nil
}

func (m *Model) handleInputFocus(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if m.ctrl.Session().Creating() {
			return m, nil
		}
		if _, err := controller.ValidateTitle(m.newInput.Value()); err != nil {
			return m, nil
		}
		return m, m.createTask(m.newInput.Value())

	case tea.KeyEsc, tea.KeyTab:
		m.focus = FocusList
		m.newInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.newInput, cmd = m.newInput.Update(msg)
	return m, cmd
}

func (m *Model) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.saving {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter, tea.KeyTab:
		// Tab moves focus away from the editor, which commits like Enter.
		return m, m.commitEdit(m.editInput.Value())

	case tea.KeyEsc:
		m.ctrl.CancelEdit()
		m.mode = ModeNormal
		m.editInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

func (m *Model) handleHelpMode(_ tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	return m, nil
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		task := m.confirming
		m.closeConfirm()
		if task == nil {
			return m, nil
		}
		m.removing[task.ID] = true
		id := task.ID
		return m, tea.Tick(m.removeDelay, func(time.Time) tea.Msg {
			return removeMsg{id: id}
		})

	case "n", "N", "esc":
		m.closeConfirm()
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		m.closeConfirm()
	}
	return m, nil
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeHelp:
		return m.renderHelpDialog()
	case ModeConfirmDelete:
		return m.renderConfirmDeleteDialog()
	}

	var b strings.Builder
	b.WriteString(m.titleStyle.Render("Todo"))
	b.WriteString("\n\n")
	b.WriteString(m.renderInputLine())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(m.width-2, 10)))
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m *Model) renderInputLine() string {
	cursor := " "
	if m.focus == FocusInput && m.mode == ModeNormal {
		cursor = ">"
	}

	button := m.buttonStyle.Render("Add")
	if m.ctrl.Session().Creating() {
		button = m.disabledStyle.Render("Adding...")
	}
	return cursor + " " + m.newInput.View() + "  " + button
}

func (m *Model) renderStatusLine() string {
	current := m.display.Current()
	if current.Text == "" {
		return ""
	}
	style := m.statusStyles[current.Kind]
	text := style.Render(current.Text)
	if current.Kind.Animated() {
		return m.spinner.View() + " " + text
	}
	return text
}

func (m *Model) renderList() string {
	if !m.loaded {
		return ""
	}
	if m.empty {
		return m.helpStyle.Render(views.EmptyStateText) + "\n"
	}

	editingID := m.ctrl.Session().EditingID()
	var b strings.Builder
	for i, row := range m.rows {
		cursor := " "
		if i == m.cursor && m.focus == FocusList {
			cursor = ">"
		}

		box := "[ ]"
		if row.Done {
			box = "[✓]"
		}

		var text string
		switch {
		case m.mode == ModeEdit && row.ID == editingID:
			text = m.editInput.View()
		case m.removing[row.ID]:
			text = m.removingStyle.Render(row.Title)
		case row.Done:
			text = m.completedStyle.Render(row.Title)
		case i == m.cursor && m.focus == FocusList:
			text = m.selectedStyle.Render(row.Title)
		default:
			text = row.Title
		}

		b.WriteString(cursor + " " + box + " " + text + "\n")
	}
	return b.String()
}

func (m *Model) renderHelpLine() string {
	var help string
	switch {
	case m.mode == ModeEdit:
		help = "enter: save  esc: cancel"
	case m.focus == FocusInput:
		help = "enter: add  esc: back to list"
	default:
		help = "a: add  space: toggle  e: edit  d: delete  r: refresh  ?: help  q: quit"
	}
	return m.helpStyle.Render(help)
}

func (m *Model) renderHelpDialog() string {
	help := `Help - Key Bindings

Navigation:
  j/↓    Move down
  k/↑    Move up
  Tab    Switch focus between input/list

Actions:
  a      Add new task
  space  Toggle task completion
  e      Edit selected task (enter saves, esc cancels)
  d      Delete task (with confirm)
  r      Refresh now

General:
  ?      Show this help
  q      Quit

Press any key to close`

	dialog := m.dialogStyle.Render(help)
	return m.centerDialog(dialog)
}

func (m *Model) closeConfirm() {
	m.mode = ModeNormal
	m.confirming = nil
}

func (m *Model) renderConfirmDeleteDialog() string {
	title := ""
	if m.confirming != nil {
		title = m.confirming.DisplayTitle()
	}
	dialog := m.dialogStyle.Render(
		"Delete \"" + title + "\"?\n\n" +
			m.helpStyle.Render("y: yes  n: no"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) centerDialog(dialog string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
