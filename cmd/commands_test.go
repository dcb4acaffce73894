package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/server"
	"github.com/desertthunder/scribe/internal/shared"
	tu "github.com/desertthunder/scribe/internal/testing"
)

const (
	testUser     = "neo"
	testPassword = "script-chairman-fondly-yippee"
)

// harness drives the CLI against an in-process backend.
type harness struct {
	runner *Runner
	out    *bytes.Buffer
	srv    *httptest.Server
}

func newHarness(t *testing.T, opts server.Options) *harness {
	t.Helper()

	opts.Username, opts.Password = testUser, testPassword
	if opts.Secret == "" {
		opts.Secret = tu.TestSecret
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	srv := httptest.NewServer(server.NewBackend(opts, log.New(io.Discard)))
	t.Cleanup(srv.Close)

	config := shared.DefaultConfig()
	config.Stream.RateLimit = 0
	config.Stream.IdleTimeout = shared.Duration{Duration: 5 * time.Second}

	out := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		BaseURL:    srv.URL,
		DB:         tu.NewTestDB(t),
		Logger:     log.New(io.Discard),
		Output:     out,
		Input:      strings.NewReader(""),
		HTTPClient: srv.Client(),
	})
	return &harness{runner: runner, out: out, srv: srv}
}

// run executes one command line on a fresh root command and returns its output.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	h.out.Reset()

	app := &cli.Command{
		Name:      "scribe",
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Commands:  h.runner.register(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := app.Run(ctx, append([]string{"scribe"}, args...))
	return h.out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", strings.Join(args, " "), err)
	}
	return out
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.mustRun(t, "auth", "login", "-u", testUser, "-p", testPassword)
}

// restart drops the wired client stack, as a new process would, keeping the database.
func (h *harness) restart() {
	h.runner.env = nil
}

func TestAuthCommands(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		h := newHarness(t, server.Options{})

		out := h.mustRun(t, "auth", "login", "-u", testUser, "-p", testPassword)
		if out != "✓ Logged in as neo\n" {
			t.Errorf("unexpected output %q", out)
		}
		if !h.runner.env.session.State().Authenticated {
			t.Error("expected session to be authenticated")
		}
	})

	t.Run("prompts for password", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.runner.input = strings.NewReader(testPassword + "\n")

		out := h.mustRun(t, "auth", "login", "-u", testUser)
		if !strings.Contains(out, "Logged in as neo") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t, server.Options{})

		_, err := h.run(t, "auth", "login", "-u", testUser, "-p", "wrong")
		if !errors.Is(err, shared.ErrLoginRejected) {
			t.Fatalf("expected ErrLoginRejected, got %v", err)
		}
		if !strings.Contains(shared.Message(err), shared.MsgBadCredentials) {
			t.Errorf("expected server message, got %q", shared.Message(err))
		}
		if exitCode(err) != 1 {
			t.Errorf("expected exit code 1, got %d", exitCode(err))
		}
	})

	t.Run("status", func(t *testing.T) {
		h := newHarness(t, server.Options{})

		out := h.mustRun(t, "auth", "status")
		if !strings.Contains(out, "Session: ✗ Not logged in") {
			t.Errorf("expected anonymous session, got %q", out)
		}
		if !strings.Contains(out, "Service: ✓ Healthy") {
			t.Errorf("expected healthy service, got %q", out)
		}

		h.login(t)
		h.restart()

		out = h.mustRun(t, "auth", "status")
		if !strings.Contains(out, "Session: ✓ Logged in as neo") {
			t.Errorf("expected restored session, got %q", out)
		}
		if !strings.Contains(out, "Expires: ") {
			t.Errorf("expected expiry line, got %q", out)
		}
	})

	t.Run("status with backend down", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.srv.Close()

		out, err := h.run(t, "auth", "status")
		if err == nil {
			t.Fatal("expected health check error")
		}
		if !strings.Contains(out, "Service: ✗ Unavailable") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("logout", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)
		h.restart()

		if out := h.mustRun(t, "auth", "logout"); out != "✓ Logged out neo\n" {
			t.Errorf("unexpected output %q", out)
		}

		h.restart()
		if out := h.mustRun(t, "auth", "logout"); out != "Not logged in\n" {
			t.Errorf("expected second logout to be a no-op, got %q", out)
		}
	})
}

func TestTextCommands(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		h := newHarness(t, server.Options{})

		_, err := h.run(t, "text", "summarize", "Streaming works. Really.")
		if !shared.IsAuthError(err) {
			t.Fatalf("expected auth error, got %v", err)
		}
		if exitCode(err) != 2 {
			t.Errorf("expected exit code 2, got %d", exitCode(err))
		}
	})

	t.Run("streams output", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)

		out := h.mustRun(t, "text", "summarize", "Streaming works. Really.")
		if out != "Streaming works.\n" {
			t.Errorf("unexpected output %q", out)
		}

		out = h.mustRun(t, "text", "paraphrase", "Hello there")
		if out != "In other words, hello there\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("after restart", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)
		h.restart()

		out := h.mustRun(t, "text", "paraphrase", "Hello there")
		if out != "In other words, hello there\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("translate", func(t *testing.T) {
		h := newHarness(t, server.Options{Framed: true})
		h.login(t)

		out := h.mustRun(t, "text", "translate", "--to", "spanish", "hello world")
		if out != "hola mundo\n" {
			t.Errorf("unexpected output %q", out)
		}

		_, err := h.run(t, "text", "translate", "--to", "klingon", "hello")
		if err == nil {
			t.Error("expected error for unsupported language")
		}
	})

	t.Run("selection", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)

		out := h.mustRun(t, "text", "paraphrase", "--select", "0:5", "Hello world")
		if out != "In other words, hello\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("stdin and file input", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)

		h.runner.input = strings.NewReader("Hello there\n")
		if out := h.mustRun(t, "text", "paraphrase"); out != "In other words, hello there\n" {
			t.Errorf("unexpected stdin output %q", out)
		}

		path := filepath.Join(t.TempDir(), "input.txt")
		if err := os.WriteFile(path, []byte("Hello file"), 0644); err != nil {
			t.Fatal(err)
		}
		if out := h.mustRun(t, "text", "paraphrase", "--file", path); out != "In other words, hello file\n" {
			t.Errorf("unexpected file output %q", out)
		}

		if _, err := h.run(t, "text", "paraphrase", "--file", path+".missing"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		h := newHarness(t, server.Options{})

		h.runner.input = strings.NewReader("\n")
		if _, err := h.run(t, "text", "expand"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		// Whitespace is still text and reaches the client, which then needs a login.
		h.runner.input = strings.NewReader("   \n")
		if _, err := h.run(t, "text", "expand"); !shared.IsAuthError(err) {
			t.Errorf("expected whitespace to reach the client, got %v", err)
		}
	})

	t.Run("json", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)

		out := h.mustRun(t, "text", "expand", "--json", "Go")

		var export formatter.RunExport
		if err := json.Unmarshal([]byte(out), &export); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out, err)
		}
		if export.Output != "Go To put it in more detail, go" {
			t.Errorf("unexpected output %q", export.Output)
		}
		if export.Status != "completed" {
			t.Errorf("expected completed status, got %q", export.Status)
		}
		if export.Sequence != 1 {
			t.Errorf("expected the recorded sequence, got %d", export.Sequence)
		}
	})

	t.Run("export", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)

		path := filepath.Join(t.TempDir(), "runs", "summary.md")
		h.mustRun(t, "text", "summarize", "--output", path, "One. Two.")

		content := tu.MustReadFile(t, path)
		if !strings.HasPrefix(content, "# Summarize") {
			t.Errorf("expected markdown export, got %q", content)
		}
		if !strings.Contains(content, "One.") {
			t.Errorf("expected output in export, got %q", content)
		}
	})

	t.Run("stream failure", func(t *testing.T) {
		h := newHarness(t, server.Options{FailWith: "Model overloaded", FailAfter: 1})
		h.login(t)

		out, err := h.run(t, "text", "paraphrase", "Hello there")
		if !errors.Is(err, shared.ErrStreamFailed) {
			t.Fatalf("expected ErrStreamFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "Model overloaded") {
			t.Errorf("expected server message in error, got %v", err)
		}
		if exitCode(err) != 1 {
			t.Errorf("expected exit code 1, got %d", exitCode(err))
		}
		if !strings.HasPrefix(out, "In ") {
			t.Errorf("expected partial output before failure, got %q", out)
		}

		records, err := h.runner.env.runs.List(nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 || records[0].ErrorText() != "Model overloaded" {
			t.Errorf("expected one failed run in history, got %+v", records)
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	h := newHarness(t, server.Options{})

	if out := h.mustRun(t, "history", "list"); out != "No runs recorded yet\n" {
		t.Errorf("expected empty history, got %q", out)
	}

	h.login(t)
	h.mustRun(t, "text", "summarize", "First run. Ignored.")
	h.mustRun(t, "text", "translate", "--to", "spanish", "hello world")

	t.Run("list", func(t *testing.T) {
		out := h.mustRun(t, "history", "list")
		if !strings.Contains(out, "History (2)") {
			t.Errorf("expected two runs, got %q", out)
		}
		if !strings.Contains(out, "Translate → Spanish") {
			t.Errorf("expected translate label, got %q", out)
		}
		if strings.Index(out, "#2") > strings.Index(out, "#1") {
			t.Errorf("expected newest first, got %q", out)
		}
	})

	t.Run("list json", func(t *testing.T) {
		out := h.mustRun(t, "history", "list", "--json")

		var exports []formatter.RunExport
		if err := json.Unmarshal([]byte(out), &exports); err != nil {
			t.Fatalf("expected JSON, got %q: %v", out, err)
		}
		if len(exports) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(exports))
		}
		if exports[0].Output != "hola mundo" {
			t.Errorf("expected newest run first, got %q", exports[0].Output)
		}
	})

	t.Run("list by kind", func(t *testing.T) {
		out := h.mustRun(t, "history", "list", "--kind", "summarize", "--csv")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and one row, got %q", out)
		}
		if !strings.HasPrefix(lines[0], "Sequence,") {
			t.Errorf("expected CSV header, got %q", lines[0])
		}

		if _, err := h.run(t, "history", "list", "--kind", "shout"); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("show", func(t *testing.T) {
		if out := h.mustRun(t, "history", "show", "#1"); out != "First run.\n" {
			t.Errorf("unexpected text export %q", out)
		}

		out := h.mustRun(t, "history", "show", "--format", "markdown", "2")
		if !strings.HasPrefix(out, "# Translate to Spanish") {
			t.Errorf("unexpected markdown export %q", out)
		}

		if _, err := h.run(t, "history", "show", "9"); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
		if _, err := h.run(t, "history", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("show to file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "run.json")

		out := h.mustRun(t, "history", "show", "--format", "json", "--output", path, "1")
		if !strings.Contains(out, "Exported run #1") {
			t.Errorf("unexpected output %q", out)
		}
		tu.AssertFileExists(t, path)
	})

	t.Run("delete", func(t *testing.T) {
		if out := h.mustRun(t, "history", "delete", "1"); out != "✓ Deleted run #1\n" {
			t.Errorf("unexpected output %q", out)
		}
		if !strings.Contains(h.mustRun(t, "history", "list"), "History (1)") {
			t.Error("expected one run after delete")
		}
	})

	t.Run("clear", func(t *testing.T) {
		if out := h.mustRun(t, "history", "clear"); out != "✓ Cleared 1 runs\n" {
			t.Errorf("unexpected output %q", out)
		}
		if out := h.mustRun(t, "history", "list"); out != "No runs recorded yet\n" {
			t.Errorf("expected empty history, got %q", out)
		}
	})
}

func TestAPICommands(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		h := newHarness(t, server.Options{})

		_, err := h.run(t, "api", "get", "/health")
		if exitCode(err) != 2 {
			t.Errorf("expected auth exit code, got %d (%v)", exitCode(err), err)
		}
	})

	t.Run("get", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)

		out := h.mustRun(t, "api", "get", "/health")
		if out != "OK\n" {
			t.Errorf("expected health body, got %q", out)
		}

		// The stream route only accepts the Bearer header here, the API client has no jar.
		out = h.mustRun(t, "api", "get", "/api/text/summarize?text=Hi.")
		if !strings.Contains(out, "data: Hi.") || !strings.Contains(out, "event: done") {
			t.Errorf("expected raw event stream, got %q", out)
		}
	})

	t.Run("post", func(t *testing.T) {
		h := newHarness(t, server.Options{})
		h.login(t)

		out := h.mustRun(t, "api", "post", "--data", `{"text":"Hi."}`, "/api/text/paraphrase")
		if !strings.Contains(out, "event: done") {
			t.Errorf("expected raw event stream, got %q", out)
		}

		if _, err := h.run(t, "api", "post", "--data", "{", "/api/text/paraphrase"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}

		_, err := h.run(t, "api", "post", "--data", `{"text":""}`, "/api/text/paraphrase")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	wd := tu.MustGetwd(t)
	tu.MustChdir(t, dir)
	t.Cleanup(func() { os.Chdir(wd) })

	runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: &bytes.Buffer{}})
	app := &cli.Command{Name: "scribe", Commands: runner.register()}

	if err := app.Run(context.Background(), []string{"scribe", "setup", "-c", "config.toml"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "scribe.db"))

	out := runner.output.(*bytes.Buffer)
	if !strings.Contains(out.String(), "✓ Setup complete") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := app.Run(context.Background(), []string{"scribe", "setup", "--reset"}); err != nil {
		t.Fatalf("unexpected error on reset: %v", err)
	}
	if !strings.Contains(out.String(), "(schema v0)") {
		t.Errorf("expected schema version in output, got %q", out.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"not implemented", shared.ErrNotImplemented, 0},
		{"unauthenticated", shared.NewDisplayError(shared.ErrUnauthenticated, shared.MsgAuthRequired), 2},
		{"wrapped invalid token", fmt.Errorf("run: %w", shared.ErrInvalidToken), 2},
		{"stream failure", shared.NewDisplayError(shared.ErrStreamFailed, "boom"), 1},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
