package crawler

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/sitescribe/internal/model"
)

// Extract turns raw markup into a ContentRecord.
//
// It never fails on malformed markup: golang.org/x/net/html builds a tree
// from any input the way browsers do, and whatever title, headings,
// paragraphs and links it could recover are returned. The record is never
// nil. A non-nil error wraps ErrExtractionDegraded and means the input
// could only be read partially; the record still holds what was read.
//
// Design decision: We parse with x/net/html and query with goquery rather
// than walking nodes by hand because:
//  1. CSS selectors keep each field a one-line query
//  2. goquery returns matches in document order, which the record requires
//  3. The same parser is used for <base href> resolution
func Extract(r io.Reader, sourceURL string) (*model.ContentRecord, error) {
	rec := &model.ContentRecord{
		SourceURL:  sourceURL,
		Headings:   make([]string, 0),
		Paragraphs: make([]string, 0),
		Links:      make([]string, 0),
	}

	// Keep whatever was read before a read error.
	data, readErr := io.ReadAll(r)

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return rec, fmt.Errorf("%w: %w", ErrExtractionDegraded, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	base := resolveBase(doc, sourceURL)

	rec.Title = collapseSpace(doc.Find("title").First().Text())

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			rec.Headings = append(rec.Headings, text)
		}
	})

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			rec.Paragraphs = append(rec.Paragraphs, text)
		}
	})

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := resolveLink(base, href)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		rec.Links = append(rec.Links, link)
	})

	if readErr != nil {
		return rec, fmt.Errorf("%w: %w", ErrExtractionDegraded, readErr)
	}
	return rec, nil
}

// resolveBase returns the URL relative links resolve against: the
// document's <base href> when present, otherwise sourceURL.
// It returns nil when neither is usable; only absolute links survive then.
func resolveBase(doc *goquery.Document, sourceURL string) *url.URL {
	base, err := url.Parse(sourceURL)
	if err != nil || !base.IsAbs() {
		base = nil
	}

	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return base
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	if base == nil {
		if ref.IsAbs() {
			return ref
		}
		return nil
	}
	return base.ResolveReference(ref)
}

// resolveLink resolves href against base into an absolute URL.
// Non-navigational links (javascript:, mailto:, tel:, data:, bare "#")
// and unparsable hrefs yield "".
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return ""
	}
	return u.String()
}

// collapseSpace trims s and collapses inner whitespace runs to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
