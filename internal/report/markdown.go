package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitescribe/internal/model"
)

// MarkdownWriter outputs results in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteDocuments outputs one section per document.
func (w *MarkdownWriter) WriteDocuments(docs []model.Document) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Documents")
	md.PlainText("")
	w.writeDocuments(md, docs)
	return len(md.String()), md.Build()
}

// WriteSession outputs a session summary followed by its documents.
func (w *MarkdownWriter) WriteSession(session *model.Session) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, session)
	w.writeStats(md, session)
	w.writeFailures(md, session)

	md.H2("Documents")
	md.PlainText("")
	w.writeDocuments(md, session.Documents)

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Session) {
	md.H1("Scrape Session")
	md.PlainText("")

	keywords := s.Keywords.String()
	if keywords == "" {
		keywords = "(none, every page is relevant)"
	}
	instructions := s.Instructions
	if instructions == "" {
		instructions = "-"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + s.ID + "`"},
			{"Seed URL", s.SeedURL},
			{"Instructions", instructions},
			{"Keywords", keywords},
			{"Max Depth", strconv.Itoa(s.MaxDepth)},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"Status", sessionStatus(s)},
		},
	})
	md.PlainText("")

	switch {
	case s.Failed():
		md.Cautionf("The session failed: %s", s.ErrorMessage)
		md.PlainText("")
	case s.Truncated:
		md.Warningf("A page or time budget stopped the crawl after %d fetched page(s); the documents are a partial result.",
			s.Stats.PagesFetched)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeStats(md *markdown.Markdown, s *model.Session) {
	st := s.Stats
	md.H2("Crawl Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages fetched", strconv.Itoa(st.PagesFetched)},
			{"Relevant pages", strconv.Itoa(st.PagesRelevant)},
			{"Non-HTML pages", strconv.Itoa(st.PagesSkipped)},
			{"Failed pages", strconv.Itoa(st.PagesFailed)},
			{"Links dropped", strconv.Itoa(st.LinksDropped)},
			{"**Documents**", "**" + strconv.Itoa(len(s.Documents)) + "**"},
		},
	})
	md.PlainText("")

	if st.PagesFetched+st.PagesFailed > 0 {
		w.writePieChart(md, st)
	}
}

// writePieChart writes a mermaid pie chart of page outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, st model.CrawlStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	irrelevant := st.PagesFetched - st.PagesRelevant - st.PagesSkipped
	for _, slice := range []struct {
		label string
		n     int
	}{
		{"Relevant", st.PagesRelevant},
		{"Not relevant", irrelevant},
		{"Non-HTML", st.PagesSkipped},
		{"Failed", st.PagesFailed},
	} {
		if slice.n > 0 {
			chart.LabelAndIntValue(slice.label, uint64(slice.n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *model.Session) {
	if len(s.Failures) == 0 {
		return
	}

	md.H2("Skipped Pages")
	md.PlainText("")

	rows := make([][]string, len(s.Failures))
	for i, f := range s.Failures {
		status := "-"
		if f.StatusCode != 0 {
			status = strconv.Itoa(f.StatusCode)
		}
		rows[i] = []string{
			truncateString(f.URL, 60),
			f.Kind,
			status,
			strconv.Itoa(f.Attempts),
			truncateString(f.Message, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Status", "Attempts", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDocuments(md *markdown.Markdown, docs []model.Document) {
	if len(docs) == 0 {
		md.Note("No relevant content was found.")
		md.PlainText("")
		return
	}

	for _, d := range docs {
		title := d.Title
		if title == "" {
			title = d.URL
		}
		md.H3(title)
		md.PlainText("")

		meta := []string{"URL: " + d.URL, "Depth: " + strconv.Itoa(d.Depth)}
		if d.Language != "" {
			meta = append(meta, "Language: "+d.Language)
		}
		if len(d.Sources) > 1 {
			meta = append(meta, "Merged pages: "+strconv.Itoa(len(d.Sources)))
		}
		md.BulletList(meta...)
		md.PlainText("")

		for _, block := range strings.Split(d.Content, model.ContentSeparator) {
			if block != "" {
				md.PlainText(block)
				md.PlainText("")
			}
		}
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [sitescribe](https://github.com/nao1215/sitescribe)*")
}
