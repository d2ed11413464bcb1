package synth

import (
	"slices"

	"github.com/nao1215/sitescribe/internal/crawler"
	"github.com/nao1215/sitescribe/internal/model"
)

// MergeByHost merges the documents of each host into a single document.
//
// Hosts appear in the order of their first document, and within a host the
// documents are concatenated in their original order. The merged document
// takes its URL, title and ExtractedAt from the first page of the host, its
// depth is the smallest depth of the merged pages, and Sources lists every
// merged page URL.
func MergeByHost(docs []model.Document) []model.Document {
	order := make([]string, 0)
	groups := make(map[string][]model.Document)
	for _, d := range docs {
		host := crawler.Host(d.URL)
		if _, ok := groups[host]; !ok {
			order = append(order, host)
		}
		groups[host] = append(groups[host], d)
	}

	merged := make([]model.Document, 0, len(order))
	for _, host := range order {
		merged = append(merged, mergeGroup(groups[host]))
	}
	return merged
}

func mergeGroup(group []model.Document) model.Document {
	first := group[0]
	out := model.Document{
		URL:         first.URL,
		Title:       first.Title,
		Depth:       first.Depth,
		ExtractedAt: first.ExtractedAt,
		Sources:     make([]string, 0, len(group)),
	}

	contents := make([]string, 0, len(group))
	for _, d := range group {
		if out.Title == "" {
			out.Title = d.Title
		}
		out.Depth = min(out.Depth, d.Depth)
		out.Headings = append(out.Headings, d.Headings...)
		out.Sources = append(out.Sources, d.Sources...)
		if len(d.Sources) == 0 {
			out.Sources = append(out.Sources, d.URL)
		}
		if d.Content != "" {
			contents = append(contents, d.Content)
		}
	}
	out.Sources = slices.Compact(out.Sources)

	out.Content = JoinContent(nil, contents)
	out.ID = DocumentID(out.URL, out.Content)
	out.Language = DetectLanguage(out.Title + " " + out.Content)
	return out
}
