// Package keyword turns a free-text instruction into a model.KeywordSet.
//
// A Source is consulted exactly once per session, before any page is
// fetched. Two sources are provided:
//
//   - OpenAI: an OpenAI-compatible chat completions client that asks the
//     model for a comma-separated keyword list
//   - Heuristic: an offline source that keeps the significant words of the
//     instruction
//
// # Unavailable sources
//
// Resolve applies a Policy when the source fails or is not configured:
//
//   - PolicyFallback logs a warning and returns an empty set, which makes
//     the relevance filter accept every page
//   - PolicyRequired returns an error wrapping ErrUnavailable so the caller
//     can fail the session before the first fetch
//
// An empty instruction never reaches the source; it means "extract
// everything" and resolves to an empty set under both policies.
package keyword
