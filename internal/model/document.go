package model

import "time"

// ContentSeparator joins headings and paragraphs into Document.Content.
const ContentSeparator = "\n\n"

// Document is the synthesized unit of output. Each Document is built from
// exactly one relevant ContentRecord, unless documents were merged per host.
type Document struct {
	// ID is a stable content hash of URL and Content.
	ID string `json:"id"`

	// URL is the page the content was extracted from. For merged documents
	// it is the URL of the first page of the host.
	URL string `json:"url"`

	// Title is the page title; empty when the page had none.
	Title string `json:"title,omitempty"`

	// Content is the page headings followed by its paragraphs, joined
	// with ContentSeparator.
	Content string `json:"content"`

	// Headings repeats the page headings for consumers that chunk by section.
	Headings []string `json:"headings,omitempty"`

	// Language is the ISO 639-1 code of the detected content language.
	// Empty when detection was not reliable.
	Language string `json:"language,omitempty"`

	// Depth is the number of hops between the seed URL and this page.
	Depth int `json:"depth"`

	// Sources lists every page URL merged into this document.
	// It is only set for merged documents.
	Sources []string `json:"sources,omitempty"`

	// ExtractedAt is when the document was synthesized.
	ExtractedAt time.Time `json:"extracted_at"`
}
