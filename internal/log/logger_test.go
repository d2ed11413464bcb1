package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("console only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, closer, err := NewLogger(Options{Console: &buf, JSON: true})
		if err != nil {
			t.Fatalf("NewLogger() error = %v", err)
		}
		defer closer.Close()

		logger.Info("hidden")
		logger.Warn("shown", "api_key", "abc")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("info should be filtered: %s", out)
		}
		if !strings.Contains(out, `"msg":"shown"`) {
			t.Errorf("expected JSON warn record: %s", out)
		}
		if strings.Contains(out, `"abc"`) {
			t.Errorf("api_key leaked: %s", out)
		}
	})

	t.Run("file receives debug records", func(t *testing.T) {
		t.Parallel()

		var console bytes.Buffer
		path := filepath.Join(t.TempDir(), "logs", "sitescribe.log")
		logger, closer, err := NewLogger(Options{
			Console: &console,
			File:    path,
			Secrets: []string{"s3cr3t-cookie"},
		})
		if err != nil {
			t.Fatalf("NewLogger() error = %v", err)
		}

		logger.Debug("page fetched", "url", "https://example.com/", "cookie_value", "x")
		logger.Info("header", "value", "s3cr3t-cookie")
		if err := closer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if console.Len() != 0 {
			t.Errorf("console should stay quiet, got %s", console.String())
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		content := string(data)
		if !strings.Contains(content, "page fetched") {
			t.Errorf("debug record missing from file: %s", content)
		}
		if strings.Contains(content, "s3cr3t-cookie") {
			t.Errorf("secret leaked into file: %s", content)
		}
	})

	t.Run("nil console discards", func(t *testing.T) {
		t.Parallel()

		logger, _, err := NewLogger(Options{Verbose: true})
		if err != nil {
			t.Fatalf("NewLogger() error = %v", err)
		}
		logger.Info("nowhere")
	})
}

func TestNewLogger_FansOutToConsoleAndFile(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "sitescribe.log")
	logger, closer, err := NewLogger(Options{Console: &console, File: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger = logger.With("seed", "https://example.com/").WithGroup("crawl")
	logger.Info("level done", "depth", 1)
	logger.Warn("page budget reached", "max_pages", 5)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	consoleOut := console.String()
	if strings.Contains(consoleOut, "level done") {
		t.Errorf("console got an info record: %s", consoleOut)
	}
	for _, want := range []string{"page budget reached", "seed=https://example.com/", "crawl.max_pages=5"} {
		if !strings.Contains(consoleOut, want) {
			t.Errorf("console missing %q: %s", want, consoleOut)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	fileOut := string(data)
	for _, want := range []string{`"msg":"level done"`, `"msg":"page budget reached"`, `"seed":"https://example.com/"`, `"crawl":{"depth":1}`} {
		if !strings.Contains(fileOut, want) {
			t.Errorf("file missing %q: %s", want, fileOut)
		}
	}
}
