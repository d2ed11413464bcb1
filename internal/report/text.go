package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
)

// lineWidth is the width of section rules.
const lineWidth = 70

// TextWriter outputs human-readable plain text.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type TextWriter struct {
	baseWriter

	// verbose adds the failure messages to session reports.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteDocuments outputs the documents separated by rules.
func (w *TextWriter) WriteDocuments(docs []model.Document) (int, error) {
	var sb strings.Builder
	w.writeDocuments(&sb, docs)
	return io.WriteString(w.output, sb.String())
}

// WriteSession outputs a session summary followed by its documents.
func (w *TextWriter) WriteSession(s *model.Session) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", lineWidth) + "\n")
	sb.WriteString("                        SITESCRIBE SESSION\n")
	sb.WriteString(strings.Repeat("=", lineWidth) + "\n\n")

	fmt.Fprintf(&sb, "Session:      %s\n", s.ID)
	fmt.Fprintf(&sb, "Seed URL:     %s\n", s.SeedURL)
	if s.Instructions != "" {
		fmt.Fprintf(&sb, "Instructions: %s\n", s.Instructions)
	}
	fmt.Fprintf(&sb, "Keywords:     %s\n", orDash(s.Keywords.String()))
	fmt.Fprintf(&sb, "Max Depth:    %d\n", s.MaxDepth)
	fmt.Fprintf(&sb, "Started:      %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration:     %s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Status:       %s\n\n", sessionStatus(s))

	writeRule(&sb, "CRAWL SUMMARY")
	st := s.Stats
	fmt.Fprintf(&sb, "  Pages fetched:  %d\n", st.PagesFetched)
	fmt.Fprintf(&sb, "  Relevant pages: %d\n", st.PagesRelevant)
	fmt.Fprintf(&sb, "  Non-HTML pages: %d\n", st.PagesSkipped)
	fmt.Fprintf(&sb, "  Failed pages:   %d\n", st.PagesFailed)
	fmt.Fprintf(&sb, "  Links dropped:  %d\n", st.LinksDropped)
	fmt.Fprintf(&sb, "  Documents:      %d\n\n", len(s.Documents))

	if len(s.Failures) > 0 {
		writeRule(&sb, "SKIPPED PAGES")
		for _, f := range s.Failures {
			fmt.Fprintf(&sb, "  [%s] %s (attempts: %d)\n", f.Kind, f.URL, f.Attempts)
			if w.verbose && f.Message != "" {
				fmt.Fprintf(&sb, "      %s\n", f.Message)
			}
		}
		sb.WriteString("\n")
	}

	writeRule(&sb, "DOCUMENTS")
	w.writeDocuments(&sb, s.Documents)

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeDocuments(sb *strings.Builder, docs []model.Document) {
	if len(docs) == 0 {
		sb.WriteString("No relevant content was found.\n")
		return
	}
	for i, d := range docs {
		if i > 0 {
			sb.WriteString(strings.Repeat("-", lineWidth) + "\n")
		}
		fmt.Fprintf(sb, "# %s\n", orDash(d.Title))
		fmt.Fprintf(sb, "URL: %s (depth %d)\n\n", d.URL, d.Depth)
		if d.Content != "" {
			sb.WriteString(d.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
}

func writeRule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", lineWidth) + "\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", lineWidth) + "\n\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
