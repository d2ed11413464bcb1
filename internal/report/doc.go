// Package report formats scrape results for output.
//
// This package contains writers for different output formats:
//   - JSONWriter: structured JSON for downstream retrieval pipelines
//   - MarkdownWriter: documents and session summaries for humans
//   - TextWriter: plain text for terminal display
//
// Every writer can output a bare document sequence (the scrape result) or
// a full session (keywords, stats, failures and documents).
//
// Design decision: We separate report writing from the data structures
// (which are in the model package). This allows adding new output formats
// without modifying the core data structures.
package report
