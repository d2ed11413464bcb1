package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() for programmatic handling while still getting readable messages.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one seed URL")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page budget is negative.
	// Use 0 for an unbounded crawl.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMaxAttempts is returned when the attempt count is not positive.
	// A value of 1 disables retries.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidBackoff is returned for an unknown backoff policy or negative delays.
	ErrInvalidBackoff = errors.New("invalid backoff: policy must be exponential or constant with non-negative delays")

	// ErrInvalidTimeout is returned when the request timeout is not positive
	// or the session timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: request timeout must be positive and session timeout non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidKeywordSource is returned for an unknown keyword source.
	ErrInvalidKeywordSource = errors.New("invalid keyword source: must be auto, llm or heuristic")

	// ErrInvalidKeywordPolicy is returned for an unknown keyword policy.
	ErrInvalidKeywordPolicy = errors.New("invalid keyword policy: must be fallback or required")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid format: must be json, markdown or text")
)
