// Package synth turns relevant content records into output documents.
//
// Synthesis is a pure reshaping step: it performs no I/O and no filtering.
// Every record becomes exactly one Document, in the order the records were
// given, so the output order is the crawl's discovery order.
//
// Document content is the page headings followed by its paragraphs, joined
// with model.ContentSeparator. The separator is part of the output contract;
// consumers split on it to recover the individual blocks.
package synth
