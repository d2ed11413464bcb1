package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies why a fetch failed.
type FailureKind int

const (
	// KindTransient marks failures that may succeed on retry:
	// network errors, timeouts and server overload.
	KindTransient FailureKind = iota + 1

	// KindPermanent marks failures that will not change on retry:
	// malformed URLs and client errors such as 403 or 404.
	KindPermanent
)

// String returns the lowercase name of the kind.
func (k FailureKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Crawler errors.
var (
	// ErrTransient matches every FetchError of kind KindTransient.
	ErrTransient = errors.New("transient fetch failure")

	// ErrPermanent matches every FetchError of kind KindPermanent.
	ErrPermanent = errors.New("permanent fetch failure")

	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL")

	// ErrInvalidSeedURL is returned by Crawl when the seed is not a well-formed
	// absolute http(s) URL. It is a session-level error.
	ErrInvalidSeedURL = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidMaxDepth is returned by Crawl for a negative depth.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrUnexpectedStatus wraps HTTP responses that are not successful.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrOffSiteRedirect is returned when a redirect leaves the host of the
	// requested URL. The redirect target is never fetched.
	ErrOffSiteRedirect = errors.New("redirect to another host")

	// ErrExtractionDegraded is returned by Extract when only part of the
	// markup could be read. The returned record is still usable.
	ErrExtractionDegraded = errors.New("content extraction degraded")
)

// FetchError describes a URL that could not be fetched.
// It matches ErrTransient or ErrPermanent with errors.Is, depending on Kind,
// as well as the underlying cause.
type FetchError struct {
	// URL is the URL that failed.
	URL string

	// StatusCode is the last HTTP status observed, or 0 when no response arrived.
	StatusCode int

	// Kind is the failure classification.
	Kind FailureKind

	// Attempts is how many times the fetch was tried.
	Attempts int

	// Err is the last observed error.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %v", e.URL, e.Kind, e.Attempts, e.Err)
}

// Unwrap returns the kind sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	kindErr := ErrPermanent
	if e.Kind == KindTransient {
		kindErr = ErrTransient
	}
	if e.Err == nil {
		return []error{kindErr}
	}
	return []error{kindErr, e.Err}
}

// IsRetryableStatus reports whether an HTTP status code is worth retrying.
// Server errors are retried, and so are the client errors that signal a
// temporary condition (request timeout, too early, too many requests).
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

// classifyError returns the kind of a transport-level error.
// Invalid URLs and off-site redirects never succeed; every other transport
// error (connection refused, DNS failure, timeout, reset) may.
func classifyError(err error) FailureKind {
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrOffSiteRedirect) {
		return KindPermanent
	}
	return KindTransient
}

// classifyStatus returns the kind of an unsuccessful HTTP status.
func classifyStatus(code int) FailureKind {
	if IsRetryableStatus(code) {
		return KindTransient
	}
	return KindPermanent
}
