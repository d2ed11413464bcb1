package model

import (
	"time"

	"github.com/google/uuid"
)

// CrawlStats summarizes the work done by one crawl.
type CrawlStats struct {
	// PagesFetched counts successful fetches, relevant or not.
	PagesFetched int `json:"pages_fetched"`

	// PagesRelevant counts fetched pages that passed the relevance filter.
	PagesRelevant int `json:"pages_relevant"`

	// PagesFailed counts pages skipped after their fetch failed.
	PagesFailed int `json:"pages_failed"`

	// PagesSkipped counts fetched pages that were not HTML.
	PagesSkipped int `json:"pages_skipped"`

	// LinksDropped counts discovered links rejected by domain or pattern policy.
	LinksDropped int `json:"links_dropped"`
}

// Session is the aggregate state of one scrape call.
// It is created at the start of the call and owned by that call only;
// nothing in a Session is shared with other sessions.
type Session struct {
	// ID uniquely identifies the session, e.g. in the history database.
	ID string `json:"id"`

	// SeedURL is the absolute URL the crawl started from.
	SeedURL string `json:"seed_url"`

	// Instructions is the free-text instruction the keywords were derived from.
	Instructions string `json:"instructions,omitempty"`

	// MaxDepth is the maximum number of hops followed from the seed.
	MaxDepth int `json:"max_depth"`

	// Keywords is the keyword set used for relevance filtering.
	Keywords KeywordSet `json:"keywords"`

	// Records holds the relevant content records in discovery order.
	// It is not serialized; Documents carry the same content.
	Records []*ContentRecord `json:"-"`

	// Documents is the synthesized output.
	Documents []Document `json:"documents"`

	// Failures lists pages skipped because their fetch failed.
	Failures []FetchFailure `json:"failures,omitempty"`

	// Stats summarizes the crawl.
	Stats CrawlStats `json:"stats"`

	// Truncated is set when a page or time budget stopped the crawl early.
	// The documents are then a partial but consistent result.
	Truncated bool `json:"truncated"`

	// StartedAt and FinishedAt bound the session.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Steps lists the pipeline steps that ran.
	Steps []string `json:"steps,omitempty"`

	// Error is the session-level failure, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a string for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewSession creates a session for the given seed.
func NewSession(seedURL, instructions string, maxDepth int) *Session {
	return &Session{
		ID:           uuid.NewString(),
		SeedURL:      seedURL,
		Instructions: instructions,
		MaxDepth:     maxDepth,
		Records:      make([]*ContentRecord, 0),
		Documents:    make([]Document, 0),
		Failures:     make([]FetchFailure, 0),
		StartedAt:    time.Now(),
	}
}

// Fail records a session-level error.
func (s *Session) Fail(err error) {
	if err == nil {
		return
	}
	s.Error = err
	s.ErrorMessage = err.Error()
}

// Failed reports whether the session ended with a session-level error.
func (s *Session) Failed() bool {
	return s.Error != nil || s.ErrorMessage != ""
}

// Duration returns how long the session ran. It is zero until FinishedAt is set.
func (s *Session) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
