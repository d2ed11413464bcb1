// Package model defines the core data structures used throughout sitescribe.
//
// This package contains the following main types:
//   - ContentRecord: Normalized content extracted from one fetched page
//   - KeywordSet: Case-folded keywords derived from a user instruction
//   - Document: The synthesized unit of output for retrieval pipelines
//   - Session: The aggregate state and result of one scrape call
//   - FetchFailure: A page that was skipped after its fetch failed
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, relevance filter, synthesizer, pipeline, database
// and report packages all use these types.
//
// The models are designed to be serializable to JSON for export and
// database storage.
package model
