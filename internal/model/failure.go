package model

// FetchFailure records a page that was skipped because it could not be fetched.
// Failures never abort a session; they are reported alongside the documents.
type FetchFailure struct {
	// URL is the normalized URL that failed.
	URL string `json:"url"`

	// Depth is the number of hops from the seed URL.
	Depth int `json:"depth"`

	// Kind is "transient" or "permanent".
	Kind string `json:"kind"`

	// StatusCode is the last HTTP status observed, or 0 for network errors.
	StatusCode int `json:"status_code,omitempty"`

	// Attempts is how many times the fetch was tried.
	Attempts int `json:"attempts"`

	// Message is the last error message.
	Message string `json:"message"`
}
