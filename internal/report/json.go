package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitescribe/internal/model"
)

// JSONWriter outputs results in JSON format.
// Documents are written as a bare JSON array so that downstream loaders can
// consume the output without unwrapping it.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version is recorded in session reports.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the version recorded in session reports.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteDocuments outputs docs as a JSON array. A nil slice is written as [].
func (w *JSONWriter) WriteDocuments(docs []model.Document) (int, error) {
	if docs == nil {
		docs = []model.Document{}
	}
	return w.writeJSON(docs)
}

// SessionReport wraps a session with output metadata.
//
// Design decision: We wrap the session rather than adding a version field to
// model.Session because the version describes the output, not the crawl.
type SessionReport struct {
	// Version is the sitescribe version that wrote this report.
	Version string `json:"version,omitempty"`

	// Duration is the session wall-clock time in seconds.
	Duration float64 `json:"duration_seconds"`

	// Session is the full session.
	Session *model.Session `json:"session"`
}

// WriteSession outputs the session wrapped in a SessionReport.
func (w *JSONWriter) WriteSession(session *model.Session) (int, error) {
	return w.writeJSON(&SessionReport{
		Version:  w.version,
		Duration: session.Duration().Seconds(),
		Session:  session,
	})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
