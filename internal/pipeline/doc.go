// Package pipeline runs a scrape session as a sequence of steps.
//
// A session goes through three stages: resolving the instruction into a
// keyword set, crawling the site with that keyword set, and synthesizing
// the relevant records into documents. Each stage is a Step that receives
// the session and fills in its part of it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. Every stage gets the same cancellation check and logging
// 2. Variants (passage filtering, per-host merging) are step options, not branches
// 3. Tests can run a single step against a hand-built session
//
// BatchProcessor runs independent sessions for several seeds concurrently
// with errgroup. Sessions share nothing: each gets its own pipeline.
package pipeline
