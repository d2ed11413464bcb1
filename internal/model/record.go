package model

import "strings"

// ContentRecord is the normalized content of a single fetched page.
// It is produced by the content extractor and is not modified afterwards.
//
// An empty Title means the page had no title element. A record whose
// content fields are all empty is valid; it is what a page without any
// recognizable markup produces.
type ContentRecord struct {
	// SourceURL is the normalized URL the markup was fetched from.
	SourceURL string `json:"source_url"`

	// Title is the text of the first <title> element.
	Title string `json:"title,omitempty"`

	// Headings holds the text of every h1-h6 element in document order.
	Headings []string `json:"headings"`

	// Paragraphs holds the trimmed, non-empty text of every <p> element
	// in document order.
	Paragraphs []string `json:"paragraphs"`

	// Links holds the distinct absolute URLs of all hyperlinks on the page,
	// in order of first appearance.
	Links []string `json:"links"`

	// Depth is the number of hops from the seed URL to this page.
	Depth int `json:"depth"`
}

// HasTitle reports whether the page declared a title.
func (r *ContentRecord) HasTitle() bool {
	return r.Title != ""
}

// IsEmpty reports whether the record carries no textual content.
// Links are not considered content.
func (r *ContentRecord) IsEmpty() bool {
	return !r.HasTitle() && len(r.Headings) == 0 && len(r.Paragraphs) == 0
}

// Text joins the title, headings and paragraphs into a single body of text
// separated by newlines. The result is what relevance filtering inspects.
func (r *ContentRecord) Text() string {
	parts := make([]string, 0, 1+len(r.Headings)+len(r.Paragraphs))
	if r.HasTitle() {
		parts = append(parts, r.Title)
	}
	parts = append(parts, r.Headings...)
	parts = append(parts, r.Paragraphs...)
	return strings.Join(parts, "\n")
}
