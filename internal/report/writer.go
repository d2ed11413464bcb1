package report

import (
	"fmt"
	"io"

	"github.com/nao1215/sitescribe/internal/model"
)

// Writer defines the interface for result output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteDocuments outputs a document sequence.
	// Returns the number of bytes written and any error encountered.
	WriteDocuments(docs []model.Document) (int, error)

	// WriteSession outputs a full session report.
	WriteSession(session *model.Session) (int, error)
}

// Format names accepted by New.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// New returns the Writer for format.
// JSON output is pretty-printed and tagged with version.
func New(format string, output io.Writer, version string) (Writer, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatText:
		return NewTextWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// sessionStatus describes how a session ended.
func sessionStatus(s *model.Session) string {
	switch {
	case s.Failed():
		return "Error - " + s.ErrorMessage
	case s.Truncated:
		return "Partial (budget reached)"
	default:
		return "Complete"
	}
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
