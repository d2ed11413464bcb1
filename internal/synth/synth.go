package synth

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/relevance"
)

// languageSampleWords bounds how much text is handed to language detection.
const languageSampleWords = 200

// Option configures Synthesize.
type Option func(*options)

type options struct {
	passages bool
	keywords model.KeywordSet
	now      func() time.Time
}

// WithPassages keeps only the paragraphs that mention one of keywords.
// Headings are always kept. With an empty keyword set every paragraph is kept.
func WithPassages(keywords model.KeywordSet) Option {
	return func(o *options) {
		o.passages = true
		o.keywords = keywords
	}
}

// WithClock sets the time source used for ExtractedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Synthesize builds one Document per record, preserving order.
// Nil records are skipped.
func Synthesize(records []*model.ContentRecord, opts ...Option) []model.Document {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	docs := make([]model.Document, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		docs = append(docs, build(rec, o))
	}
	return docs
}

func build(rec *model.ContentRecord, o *options) model.Document {
	paragraphs := rec.Paragraphs
	if o.passages {
		paragraphs = relevance.MatchingPassages(rec, o.keywords)
	}

	content := JoinContent(rec.Headings, paragraphs)
	return model.Document{
		ID:          DocumentID(rec.SourceURL, content),
		URL:         rec.SourceURL,
		Title:       rec.Title,
		Content:     content,
		Headings:    append([]string(nil), rec.Headings...),
		Language:    DetectLanguage(rec.Title + " " + content),
		Depth:       rec.Depth,
		ExtractedAt: o.now().UTC(),
	}
}

// JoinContent joins headings then paragraphs with model.ContentSeparator.
func JoinContent(headings, paragraphs []string) string {
	blocks := make([]string, 0, len(headings)+len(paragraphs))
	blocks = append(blocks, headings...)
	blocks = append(blocks, paragraphs...)
	return strings.Join(blocks, model.ContentSeparator)
}

// DocumentID returns the hex SHA3-256 of url and content.
// The same page with the same content always gets the same ID.
func DocumentID(url, content string) string {
	h := sha3.New256()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when the text
// is empty or detection is not reliable.
func DetectLanguage(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if len(words) > languageSampleWords {
		words = words[:languageSampleWords]
	}
	info := whatlanggo.Detect(strings.Join(words, " "))
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
