package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"todoapp/backend"
	"todoapp/backend/remote"
	"todoapp/internal/config"
	"todoapp/internal/controller"
	"todoapp/internal/retry"
	"todoapp/internal/server"
	"todoapp/internal/status"
	"todoapp/internal/tui"
	"todoapp/internal/utils"
	"todoapp/internal/views"
)

// Version is set at build time
var Version = "dev"

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds application configuration
type Config struct {
	NoPrompt   bool
	Verbose    bool
	ConfigPath string          // Path to config file (for testing)
	BackendURL string          // Overrides every other backend_url source (for testing)
	Sleep      retry.SleepFunc // Retry pause (for testing)
	Stdin      io.Reader       // Prompt input (for testing)
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewTodoApp(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			if cfg != nil && cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// NewTodoApp creates the root command with injectable IO
func NewTodoApp(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "todoapp",
		Short:   "A task list client for the /api/todos service",
		Long:    "todoapp shows and edits the task list served by a todo API, in a terminal UI or as one-shot commands.",
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal(stdout) {
				return runTUI(cmd, stdout, cfg)
			}
			return runList(cmd, stdout, stderr, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("backend-url", "", "Origin of the todo API (overrides config and environment)")
	cmd.PersistentFlags().String("config", "", "Path to the config file")

	cmd.AddCommand(newTUICmd(stdout, cfg))
	cmd.AddCommand(newListCmd(stdout, stderr, cfg))
	cmd.AddCommand(newAddCmd(stdout, stderr, cfg))
	cmd.AddCommand(newToggleCmd(stdout, stderr, cfg))
	cmd.AddCommand(newEditCmd(stdout, stderr, cfg))
	cmd.AddCommand(newDeleteCmd(stdout, stderr, cfg))
	cmd.AddCommand(newHealthCmd(stdout, stderr, cfg))
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd(stdout, cfg))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// app bundles the client side objects one command needs.
type app struct {
	conf    *config.Config
	client  *remote.Client
	display *status.Display
	ctrl    *controller.Controller
	stats   *retry.Stats
}

// loadConfig resolves the client config from file, environment and flags.
func loadConfig(cmd *cobra.Command, cfg *Config) (*config.Config, string, error) {
	if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
		cfg.NoPrompt = true
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}

	path := cfg.ConfigPath
	if flagPath, _ := cmd.Flags().GetString("config"); flagPath != "" {
		path = flagPath
	}
	if path == "" {
		path = config.DefaultPath()
	}

	conf, err := config.Load(path)
	if err != nil {
		return nil, path, utils.ErrInvalidConfig(path, err)
	}

	backendURL, _ := cmd.Flags().GetString("backend-url")
	conf.ApplyFlags(backendURL, cfg.Verbose)
	if cfg.BackendURL != "" {
		conf.BackendURL = cfg.BackendURL
	}

	if err := conf.Validate(); err != nil {
		return nil, path, utils.ErrInvalidConfig(path, err)
	}

	utils.SetVerboseMode(conf.Logging.Verbose)
	return conf, path, nil
}

// newApp builds the API client and controller. Connectivity statuses are
// echoed to statusOut when it is non-nil.
func newApp(cmd *cobra.Command, cfg *Config, statusOut io.Writer) (*app, error) {
	conf, _, err := loadConfig(cmd, cfg)
	if err != nil {
		return nil, err
	}

	display := status.NewDisplay()
	if statusOut != nil {
		display.OnChange(statusPrinter(statusOut))
	}

	stats := retry.NewStats()
	client := remote.New(remote.Config{
		BaseURL:    conf.GetBackendURL(),
		MaxRetries: conf.GetMaxRetries(),
		RetryDelay: conf.GetRetryDelay(),
		Sleep:      cfg.Sleep,
		Timeout:    conf.GetRequestTimeout(),
		Status:     display,
		Stats:      stats,
	})
	utils.Debugf("using backend %s", client.BaseURL())

	return &app{
		conf:    conf,
		client:  client,
		display: display,
		ctrl:    controller.New(client, display, conf.GetLocale()),
		stats:   stats,
	}, nil
}

// logRetryStats reports the client's retry counters at debug level.
func (a *app) logRetryStats() {
	last := "never"
	if t := a.stats.LastRetryTime(); !t.IsZero() {
		last = t.Format(time.RFC3339)
	}
	utils.Debugf("retry stats: %d succeeded, %d retries, %d exhausted, last retry %s",
		a.stats.SuccessCount(), a.stats.RetryCount(), a.stats.ExhaustedCount(), last)
}

// statusPrinter writes connecting and failure statuses as plain lines.
// Routine statuses are left out so scripted output stays clean.
func statusPrinter(w io.Writer) func(status.Status) {
	r := lipgloss.NewRenderer(w)
	styles := map[status.Kind]lipgloss.Style{
		status.KindConnecting: r.NewStyle().Foreground(lipgloss.Color("214")),
		status.KindError:      r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
	return func(s status.Status) {
		style, ok := styles[s.Kind]
		if !ok {
			return
		}
		_, _ = fmt.Fprintln(w, style.Render(views.FormatStatus(s)))
	}
}

// userError turns controller and client errors into errors with suggestions.
func (a *app) userError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, remote.ErrUnavailable):
		return utils.ErrBackendOffline(a.client.BaseURL(), err.Error())
	case errors.Is(err, controller.ErrEmptyTitle):
		return utils.ErrEmptyTitle()
	case errors.Is(err, controller.ErrTitleTooLong):
		return utils.ErrTitleTooLong(backend.MaxTitleLength)
	}
	return err
}

// findTask looks id up in a fresh copy of the list.
func (a *app) findTask(ctx context.Context, id string) (backend.Task, error) {
	r, err := a.ctrl.Refresh(ctx)
	if err != nil {
		return backend.Task{}, a.userError(err)
	}
	for _, row := range r.Model.Rows {
		if row.ID == id {
			return row.Task(), nil
		}
	}
	return backend.Task{}, utils.ErrTaskNotFound(id)
}

func newTUICmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, stdout, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func runTUI(cmd *cobra.Command, stdout io.Writer, cfg *Config) error {
	a, err := newApp(cmd, cfg, nil)
	if err != nil {
		return err
	}
	defer a.logRetryStats()

	// Log lines would corrupt the full-screen view.
	bl, err := utils.NewBackgroundLoggerWithEnabled(a.conf.IsBackgroundLoggingEnabled(), a.conf.GetLogFile())
	if err != nil {
		utils.Debugf("background logging disabled: %v", err)
	}
	defer bl.Close()

	model := tui.New(a.ctrl, a.display, tui.Options{
		Context:         cmd.Context(),
		RefreshInterval: a.conf.GetRefreshInterval(),
	})

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithOutput(stdout), tea.WithContext(cmd.Context())}
	if cfg.Stdin != nil {
		opts = append(opts, tea.WithInput(cfg.Stdin))
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func newListCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print the task list",
		Long:    "Print the task list sorted with incomplete tasks first, followed by the completion summary.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, stdout, stderr, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func runList(cmd *cobra.Command, stdout, stderr io.Writer, cfg *Config) error {
	a, err := newApp(cmd, cfg, stderr)
	if err != nil {
		return err
	}
	defer a.logRetryStats()

	r, err := a.ctrl.Refresh(cmd.Context())
	if err != nil {
		return a.userError(err)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return outputListJSON(r.Model, stdout)
	}

	views.NewRenderer(stdout).WithIDs(true).WithEmptyHint("No tasks yet. Add one with: todoapp add <title>").Render(r.Model)
	if cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
	}
	return nil
}

func newAddCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Long:  "Create a task. Multiple arguments are joined with spaces.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cfg, stderr)
			if err != nil {
				return err
			}
			defer a.logRetryStats()

			title := strings.Join(args, " ")
			r, err := a.ctrl.Create(cmd.Context(), title)
			if err != nil {
				return a.userError(err)
			}
			title = strings.TrimSpace(title)
			return outputAction(cmd, stdout, cfg, "add", fmt.Sprintf("Added: %s", title), backend.Task{Title: title}, r)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newToggleCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between done and not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cfg, stderr)
			if err != nil {
				return err
			}
			defer a.logRetryStats()

			task, err := a.findTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r, err := a.ctrl.Toggle(cmd.Context(), task)
			if err != nil {
				return a.userError(err)
			}

			task.Done = !task.Done
			msg := "Marked not done: " + task.DisplayTitle()
			if task.Done {
				msg = "Marked done: " + task.DisplayTitle()
			}
			return outputAction(cmd, stdout, cfg, "toggle", msg, task, r)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newEditCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <title>",
		Short: "Rename a task",
		Long:  "Rename a task. A blank or unchanged title leaves the task as it is.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cfg, stderr)
			if err != nil {
				return err
			}
			defer a.logRetryStats()

			task, err := a.findTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.ctrl.StartEdit(task); err != nil {
				return err
			}

			r, err := a.ctrl.CommitEdit(cmd.Context(), strings.Join(args[1:], " "))
			if err != nil {
				a.ctrl.CancelEdit()
				return a.userError(err)
			}
			if r.Cancelled {
				return outputAction(cmd, stdout, cfg, "edit", "No changes: "+task.DisplayTitle(), task, r)
			}

			task.Title = strings.TrimSpace(strings.Join(args[1:], " "))
			return outputAction(cmd, stdout, cfg, "edit", "Renamed: "+task.Title, task, r)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newDeleteCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cfg, stderr)
			if err != nil {
				return err
			}
			defer a.logRetryStats()

			task, err := a.findTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !cfg.NoPrompt {
				stdin := cfg.Stdin
				if stdin == nil {
					stdin = os.Stdin
				}
				prompt := fmt.Sprintf("Delete task %q?", task.DisplayTitle())
				if !utils.PromptYesNoWithReader(prompt, stdin, stdout) {
					_, _ = fmt.Fprintln(stdout, "Cancelled")
					return nil
				}
			}

			r, err := a.ctrl.Delete(cmd.Context(), task.ID)
			if err != nil {
				return a.userError(err)
			}
			return outputAction(cmd, stdout, cfg, "delete", "Deleted: "+task.DisplayTitle(), task, r)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newHealthCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend answers",
		Long:  "Call GET /api/health on the configured backend, retrying like every other command.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cfg, stderr)
			if err != nil {
				return err
			}
			defer a.logRetryStats()

			state, err := a.client.Health(cmd.Context())
			if err != nil {
				return a.userError(err)
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return writeJSONLine(stdout, healthResponse{
					Backend: a.client.BaseURL(),
					Status:  state,
					Retries: a.stats.RetryCount(),
					Result:  ResultInfoOnly,
				})
			}
			_, _ = fmt.Fprintf(stdout, "Backend %s: %s\n", a.client.BaseURL(), state)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference /api/todos server",
		Long: "Run the reference /api/todos server. Settings come from flags or TODOAPP_SERVER_* " +
			"environment variables (ADDR, DATABASE, CORS_ORIGINS, LOG_LEVEL).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				utils.SetVerboseMode(true)
			}
			srvCfg, err := server.LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), srvCfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	server.BindFlags(cmd.Flags())
	return cmd
}

func newConfigCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the client configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, path)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print the documented sample config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprint(stdout, config.GetSampleConfig())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, path, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			backendURL := conf.GetBackendURL()
			if backendURL == "" {
				backendURL = remote.DefaultBaseURL
			}
			_, _ = fmt.Fprintf(stdout, "Configuration OK: %s\nBackend: %s\n", path, backendURL)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	return configCmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(stdout, "todoapp %s\n", Version)
			return nil
		},
	}
}

// JSON output structures
type taskJSON struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type listTasksResponse struct {
	Tasks   []taskJSON `json:"tasks"`
	Count   int        `json:"count"`
	Summary string     `json:"summary"`
	Result  string     `json:"result"`
}

type actionResponse struct {
	Action  string   `json:"action"`
	Task    taskJSON `json:"task"`
	Summary string   `json:"summary,omitempty"`
	Result  string   `json:"result"`
}

type healthResponse struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Retries int64  `json:"retries"`
	Result  string `json:"result"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

// outputListJSON outputs the sorted list in JSON format
func outputListJSON(m views.Model, stdout io.Writer) error {
	tasks := make([]taskJSON, 0, len(m.Rows))
	for _, row := range m.Rows {
		t := row.Task()
		tasks = append(tasks, taskJSON{ID: t.ID, Title: t.Title, Done: t.Done})
	}

	return writeJSONLine(stdout, listTasksResponse{
		Tasks:   tasks,
		Count:   len(tasks),
		Summary: m.Status.Text,
		Result:  ResultInfoOnly,
	})
}

// outputAction reports a completed action as text or JSON.
func outputAction(cmd *cobra.Command, stdout io.Writer, cfg *Config, action, message string, task backend.Task, r controller.Result) error {
	summary := ""
	if r.Rendered {
		summary = r.Model.Status.Text
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSONLine(stdout, actionResponse{
			Action:  action,
			Task:    taskJSON{ID: task.ID, Title: task.Title, Done: task.Done},
			Summary: summary,
			Result:  ResultActionCompleted,
		})
	}

	_, _ = fmt.Fprintln(stdout, message)
	if summary != "" {
		_, _ = fmt.Fprintln(stdout, summary)
	}
	if cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
	}
	return nil
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	_ = writeJSONLine(stdout, errorResponse{
		Error:  err.Error(),
		Code:   1,
		Result: ResultError,
	})
}

func writeJSONLine(w io.Writer, v any) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, string(jsonBytes))
	return nil
}
