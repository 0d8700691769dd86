package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"todoapp/backend"
	"todoapp/internal/testutil"
	"todoapp/internal/testutil/fakeapi"
	"todoapp/internal/utils"
)

type listOutput struct {
	Tasks []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Done  bool   `json:"done"`
	} `json:"tasks"`
	Count   int    `json:"count"`
	Summary string `json:"summary"`
	Result  string `json:"result"`
}

func listJSON(t *testing.T, cli *testutil.CLITest) listOutput {
	t.Helper()
	var out listOutput
	stdout := cli.MustExecute("--json", "list")
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	return out
}

func TestAddListToggleRoundTrip(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("add", "Buy", "milk")
	testutil.AssertContains(t, stdout, "Added: Buy milk")
	testutil.AssertContains(t, stdout, "0/1 completed")
	testutil.AssertResultCode(t, stdout, "ACTION_COMPLETED")

	out := listJSON(t, cli)
	if out.Count != 1 || len(out.Tasks) != 1 {
		t.Fatalf("expected exactly one task, got %+v", out)
	}
	task := out.Tasks[0]
	if task.Title != "Buy milk" || task.Done {
		t.Errorf("unexpected task %+v", task)
	}
	if out.Result != "INFO_ONLY" {
		t.Errorf("unexpected result code %q", out.Result)
	}

	stdout = cli.MustExecute("toggle", task.ID)
	testutil.AssertContains(t, stdout, "Marked done: Buy milk")
	testutil.AssertContains(t, stdout, "All 1 done!")

	out = listJSON(t, cli)
	if !out.Tasks[0].Done || out.Summary != "All 1 done!" {
		t.Errorf("expected task done after toggle, got %+v", out)
	}

	cli.MustExecute("toggle", task.ID)
	if listJSON(t, cli).Tasks[0].Done {
		t.Error("second toggle should clear done")
	}
}

func TestListPlainOutput(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "No tasks yet")
	testutil.AssertContains(t, stdout, "All clear!")

	cli.MustExecute("add", "Walk dog")
	cli.MustExecute("add", "Buy milk")

	stdout = cli.MustExecute("list")
	buy := strings.Index(stdout, "[ ] Buy milk")
	walk := strings.Index(stdout, "[ ] Walk dog")
	if buy < 0 || walk < 0 || buy > walk {
		t.Errorf("expected sorted rows, got:\n%s", stdout)
	}
	testutil.AssertContains(t, stdout, "0/2 completed")
}

func TestAddValidation(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("add", "   ")
	testutil.AssertContains(t, stderr, "task title is empty")
	testutil.AssertContains(t, stderr, "Suggestion:")

	_, stderr = cli.ExecuteAndFail("add", strings.Repeat("a", 201))
	testutil.AssertContains(t, stderr, "exceeds 200 characters")

	if out := listJSON(t, cli); out.Count != 0 {
		t.Errorf("invalid titles must not be created, got %+v", out)
	}
}

func TestEditRenamesTask(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	id := listJSON(t, cli).Tasks[0].ID

	stdout := cli.MustExecute("edit", id, "Buy", "oat", "milk")
	testutil.AssertContains(t, stdout, "Renamed: Buy oat milk")

	out := listJSON(t, cli)
	if out.Tasks[0].Title != "Buy oat milk" || out.Tasks[0].Done {
		t.Errorf("unexpected task after edit: %+v", out.Tasks[0])
	}

	stdout = cli.MustExecute("edit", id, "Buy oat milk")
	testutil.AssertContains(t, stdout, "No changes")
}

func TestDeleteWithPrompt(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	id := listJSON(t, cli).Tasks[0].ID

	cli.SetStdin("n\n")
	stdout := cli.MustExecute("delete", id)
	testutil.AssertContains(t, stdout, `Delete task "Buy milk"? (y/n)`)
	testutil.AssertContains(t, stdout, "Cancelled")

	cli.Config().NoPrompt = true
	if listJSON(t, cli).Count != 1 {
		t.Fatal("declined delete must keep the task")
	}

	cli.SetStdin("y\n")
	stdout = cli.MustExecute("delete", id)
	testutil.AssertContains(t, stdout, "Deleted: Buy milk")

	cli.Config().NoPrompt = true
	if listJSON(t, cli).Count != 0 {
		t.Error("task should be gone")
	}
}

func TestUnknownIDSuggestsList(t *testing.T) {
	cli := testutil.NewCLITest(t)

	for _, args := range [][]string{{"toggle", "nope"}, {"delete", "nope"}, {"edit", "nope", "x"}} {
		stdout, stderr := cli.ExecuteAndFail(args...)
		testutil.AssertContains(t, stderr, "task not found: nope")
		testutil.AssertContains(t, stderr, "todoapp list")
		testutil.AssertResultCode(t, stdout, "ERROR")
	}
}

func TestBackendOffline(t *testing.T) {
	api := fakeapi.New(t)
	api.FailAll(true)
	cli := testutil.NewCLITestWithBackendURL(t, api.URL)

	_, stderr := cli.ExecuteAndFail("list")
	testutil.AssertContains(t, stderr, "Connecting to backend... (attempt 1/10)")
	testutil.AssertContains(t, stderr, "Connecting to backend... (attempt 10/10)")
	testutil.AssertContains(t, stderr, "Connection failed - Backend unavailable")
	testutil.AssertContains(t, stderr, "is unavailable")
	testutil.AssertContains(t, stderr, "Suggestion:")

	if got := api.RequestCount(); got != 11 {
		t.Errorf("expected 11 attempts, got %d", got)
	}
}

func TestBackendRefusedSuggestsServe(t *testing.T) {
	cli := testutil.NewCLITestWithBackendURL(t, "http://127.0.0.1:1")
	cli.SetFullConfig("retry:\n  max_retries: 1\nlogging:\n  background_enabled: false\n")

	_, stderr := cli.ExecuteAndFail("list")
	testutil.AssertContains(t, stderr, "todoapp serve")
}

func TestHealth(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("-y", "health")
	testutil.AssertContains(t, stdout, ": OK")
	testutil.AssertResultCode(t, stdout, "INFO_ONLY")
}

func TestHealthJSONCountsRetries(t *testing.T) {
	api := fakeapi.New(t)
	api.FailNext(2)
	cli := testutil.NewCLITestWithBackendURL(t, api.URL)

	stdout := cli.MustExecute("--json", "health")
	var out struct {
		Backend string `json:"backend"`
		Status  string `json:"status"`
		Retries int64  `json:"retries"`
		Result  string `json:"result"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &out); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	if out.Backend != api.URL || out.Status != "OK" || out.Retries != 2 || out.Result != "INFO_ONLY" {
		t.Errorf("unexpected health output %+v", out)
	}
}

func TestHealthBackendOffline(t *testing.T) {
	api := fakeapi.New(t)
	api.FailAll(true)
	cli := testutil.NewCLITestWithBackendURL(t, api.URL)

	_, stderr := cli.ExecuteAndFail("health")
	testutil.AssertContains(t, stderr, "is unavailable")
	if got := api.RequestCount(); got != 11 {
		t.Errorf("expected 11 attempts, got %d", got)
	}
}

func TestVerboseLogsRetryStats(t *testing.T) {
	var buf bytes.Buffer
	utils.GetLogger().SetOutput(&buf)
	t.Cleanup(func() {
		utils.GetLogger().SetOutput(os.Stderr)
		utils.SetVerboseMode(false)
	})

	api := fakeapi.New(t)
	api.FailNext(2)
	cli := testutil.NewCLITestWithBackendURL(t, api.URL)

	cli.MustExecute("--verbose", "list")
	logs := buf.String()
	testutil.AssertContains(t, logs, "retry stats: 1 succeeded, 2 retries, 0 exhausted")
	testutil.AssertNotContains(t, logs, "last retry never")
}

func TestQuietRunSkipsRetryStats(t *testing.T) {
	var buf bytes.Buffer
	utils.GetLogger().SetOutput(&buf)
	t.Cleanup(func() { utils.GetLogger().SetOutput(os.Stderr) })

	cli := testutil.NewCLITest(t)
	cli.MustExecute("list")
	testutil.AssertNotContains(t, buf.String(), "retry stats")
}

func TestJSONErrorOutput(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout, _ := cli.ExecuteAndFail("--json", "toggle", "missing")
	var out struct {
		Error  string `json:"error"`
		Code   int    `json:"code"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &out); err != nil {
		t.Fatalf("invalid JSON error output: %v\n%s", err, stdout)
	}
	if out.Code != 1 || out.Result != "ERROR" || !strings.Contains(out.Error, "missing") {
		t.Errorf("unexpected error output %+v", out)
	}
}

func TestActionJSON(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("--json", "add", "Buy milk")
	var out struct {
		Action string `json:"action"`
		Task   struct {
			Title string `json:"title"`
		} `json:"task"`
		Summary string `json:"summary"`
		Result  string `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	if out.Action != "add" || out.Task.Title != "Buy milk" || out.Summary != "0/1 completed" || out.Result != "ACTION_COMPLETED" {
		t.Errorf("unexpected action output %+v", out)
	}
}

func TestBackendURLFlag(t *testing.T) {
	api := fakeapi.New(t)
	api.Seed(backend.Task{Title: "Walk dog"})

	cli := testutil.NewCLITestWithBackendURL(t, "")
	stdout := cli.MustExecute("--backend-url", api.URL, "list")
	testutil.AssertContains(t, stdout, "[ ] Walk dog")
}

func TestInvalidConfig(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetFullConfig("retry:\n  max_retries: 0\n  delay: nope\n")

	_, stderr := cli.ExecuteAndFail("config", "validate")
	testutil.AssertContains(t, stderr, "invalid configuration in "+cli.ConfigPath())
	testutil.AssertContains(t, stderr, "todoapp config sample")
}

func TestConfigCommands(t *testing.T) {
	cli := testutil.NewCLITest(t)

	testutil.AssertContains(t, cli.MustExecute("config", "path"), cli.ConfigPath())
	testutil.AssertContains(t, cli.MustExecute("config", "sample"), "backend_url")
	testutil.AssertContains(t, cli.MustExecute("config", "validate"), "Configuration OK")
}

func TestVersion(t *testing.T) {
	cli := testutil.NewCLITest(t)
	testutil.AssertContains(t, cli.MustExecute("version"), "todoapp dev")
}

func TestDefaultCommandListsWhenNotATerminal(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")

	testutil.AssertContains(t, cli.MustExecute(), "[ ] Buy milk")
}

func TestStoreSeesCLIWrites(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")

	tasks, err := cli.Store().ListTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("unexpected stored tasks %+v", tasks)
	}
}
