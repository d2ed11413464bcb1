package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/model"
)

// parseScrapeFlags returns a scrape command with args parsed into its flags.
func parseScrapeFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := NewScrapeCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults match config defaults", func(t *testing.T) {
		t.Parallel()

		cfgFile := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(cfgFile, []byte("sites: {}\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		cmd := parseScrapeFlags(t, "-c", cfgFile)
		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		def := config.NewConfig()
		if cfg.MaxDepth != def.MaxDepth || cfg.MaxAttempts != def.MaxAttempts ||
			cfg.Workers != def.Workers || cfg.Format != def.Format ||
			cfg.KeywordPolicy != def.KeywordPolicy || cfg.DBDir != def.DBDir {
			t.Errorf("defaults differ: %+v", cfg)
		}
		if !cfg.SaveToDB {
			t.Error("sessions should be saved by default")
		}
		if len(cfg.Targets) != 1 {
			t.Errorf("unexpected targets %v", cfg.Targets)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgFile := filepath.Join(dir, "site.yaml")
		if err := os.WriteFile(cfgFile, []byte("sites:\n  docs.example.com:\n    depth: 4\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		cmd := parseScrapeFlags(t,
			"-i", "pricing", "-d", "0", "-p", "10", "-w", "1", "-b", "3",
			"--attempts", "5", "--backoff", "constant", "--session-timeout", "1m",
			"--keywords", "heuristic", "--keyword-policy", "required",
			"--passages", "--merge", "-f", "markdown", "-o", "out.md",
			"--save=false", "--db-dir", dir, "-c", cfgFile,
		)
		cfg, err := buildConfig(cmd, []string{"https://docs.example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Instructions != "pricing" || cfg.MaxDepth != 0 || cfg.MaxPages != 10 ||
			cfg.Workers != 1 || cfg.BatchSize != 3 || cfg.MaxAttempts != 5 ||
			cfg.Backoff != config.BackoffConstant || cfg.SessionTimeout != time.Minute {
			t.Errorf("crawl flags not applied: %+v", cfg)
		}
		if cfg.KeywordSource != config.KeywordSourceHeuristic || cfg.KeywordPolicy != config.KeywordPolicyRequired {
			t.Errorf("keyword flags not applied: %+v", cfg)
		}
		if !cfg.Passages || !cfg.Merge || cfg.Format != "markdown" || cfg.OutputFile != "out.md" {
			t.Errorf("output flags not applied: %+v", cfg)
		}
		if cfg.SaveToDB || cfg.DBDir != dir {
			t.Errorf("database flags not applied: %+v", cfg)
		}
		if d := cfg.SiteConfig("docs.example.com").Depth; d == nil || *d != 4 {
			t.Errorf("site config not loaded: %v", d)
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := parseScrapeFlags(t, "-c", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := buildConfig(cmd, []string{"https://example.com/"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestSecretsOf(t *testing.T) {
	t.Setenv("SITESCRIBE_TEST_KEY", "sk-test-0123456789abcdef")

	cfg := config.NewConfig()
	cfg.APIKeyEnv = "SITESCRIBE_TEST_KEY"
	cfg.SiteConfigs = &config.File{
		Defaults: config.SiteConfig{Headers: map[string]string{"X-Token": "header-secret"}},
		Sites: map[string]config.SiteConfig{
			"example.com": {Cookie: "sid=cookie-secret"},
		},
	}

	secrets := strings.Join(secretsOf(cfg), "|")
	for _, want := range []string{"sk-test-0123456789abcdef", "header-secret", "sid=cookie-secret"} {
		if !strings.Contains(secrets, want) {
			t.Errorf("secrets missing %q", want)
		}
	}
}

func TestCollectDocuments(t *testing.T) {
	t.Parallel()

	failed := model.NewSession("https://b.example/", "", 1)
	failed.Documents = []model.Document{{ID: "ignored"}}
	failed.Fail(errors.New("boom"))

	ok1 := model.NewSession("https://a.example/", "", 1)
	ok1.Documents = []model.Document{{ID: "a1"}, {ID: "a2"}}
	ok2 := model.NewSession("https://c.example/", "", 1)
	ok2.Documents = []model.Document{{ID: "c1"}}

	sessions := []*model.Session{ok1, failed, nil, ok2}
	docs := collectDocuments(sessions)

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if got := strings.Join(ids, ","); got != "a1,a2,c1" {
		t.Errorf("documents = %s, want a1,a2,c1", got)
	}
	if got := countFailed(sessions); got != 2 {
		t.Errorf("countFailed() = %d, want 2", got)
	}
}

// newDocsSite serves a two-page site; only the home page mentions pricing.
func newDocsSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><title>Acme</title></head><body>
			<h1>Pricing</h1><p>The pro plan costs 10 dollars a month.</p>
			<a href="/careers">Careers</a></body></html>`)
	})
	mux.HandleFunc("/careers", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body><h1>Jobs</h1><p>We are hiring engineers.</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

// The CLI tests below replace the default slog logger, so they do not run
// in parallel.

func TestScrapeCmd_EndToEnd(t *testing.T) {
	srv := newDocsSite(t)
	dir := t.TempDir()
	outFile := filepath.Join(dir, "out", "docs.json")

	_, stderr, err := execute(t, "scrape",
		"-i", "Find the pricing plans",
		"-d", "1",
		"--keywords", "heuristic",
		"--db-dir", dir,
		"-o", outFile,
		srv.URL+"/",
	)
	if err != nil {
		t.Fatalf("scrape failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stderr, "1 documents from 2 pages") {
		t.Errorf("unexpected summary: %s", stderr)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	var docs []model.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatalf("output is not a JSON document array: %v\n%s", err, data)
	}
	if len(docs) != 1 || docs[0].Title != "Acme" {
		t.Fatalf("unexpected documents %+v", docs)
	}

	// The session was recorded and can be listed and shown.
	stdout, _, err := execute(t, "history", "--db-dir", dir, "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var entries []historyEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, stdout)
	}
	if len(entries) != 1 || entries[0].Documents != 1 || entries[0].Status != "ok" {
		t.Fatalf("unexpected history %+v", entries)
	}

	stdout, _, err = execute(t, "show", "--db-dir", dir, entries[0].ID[:8])
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"SITESCRIBE SESSION", srv.URL + "/", "pricing"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("show output missing %q", want)
		}
	}
}

func TestScrapeCmd_WritesStdoutWithoutSaving(t *testing.T) {
	srv := newDocsSite(t)
	dir := t.TempDir()

	stdout, stderr, err := execute(t, "scrape",
		"-d", "0", "-f", "text", "--keywords", "heuristic",
		"--save=false", "--db-dir", dir,
		srv.URL+"/",
	)
	if err != nil {
		t.Fatalf("scrape failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "The pro plan costs 10 dollars a month.") {
		t.Errorf("stdout missing document content: %s", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "sitescribe.db")); !os.IsNotExist(err) {
		t.Errorf("database should not be created with --save=false, stat err = %v", err)
	}
}

func TestScrapeCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "no targets",
			args: []string{"scrape", "--save=false"},
			want: "configuration error",
		},
		{
			name: "unknown format",
			args: []string{"scrape", "--save=false", "-f", "xml", "https://example.com/"},
			want: "configuration error",
		},
		{
			name: "invalid seed fails its session",
			args: []string{"scrape", "--save=false", "--keywords", "heuristic", "example.com"},
			want: "1 of 1 sessions failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestHistoryCmd_NoDatabase(t *testing.T) {
	stdout, _, err := execute(t, "history", "--db-dir", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "No sessions recorded yet.") {
		t.Errorf("unexpected output: %s", stdout)
	}
}

func TestShowCmd_UnknownSession(t *testing.T) {
	srv := newDocsSite(t)
	dir := t.TempDir()

	if _, _, err := execute(t, "scrape", "-d", "0", "--keywords", "heuristic", "--db-dir", dir, "-o", filepath.Join(dir, "o.json"), srv.URL+"/"); err != nil {
		t.Fatalf("scrape failed: %v", err)
	}

	_, _, err := execute(t, "show", "--db-dir", dir, "zzzz")
	if err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Errorf("expected session not found, got %v", err)
	}

	stdout, _, err := execute(t, "history", "--db-dir", dir)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(stdout, fmt.Sprintf("Sessions (%d)", 1)) {
		t.Errorf("unexpected history output: %s", stdout)
	}
}
