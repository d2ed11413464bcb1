// Package database provides SQLite-based storage for sitescribe sessions.
//
// The Store keeps the history of scrape sessions so that their documents
// can be listed and exported again without re-crawling:
//   - sessions: seed, instructions, keywords, stats and outcome
//   - documents: the synthesized output of each session, in order
//   - failures: the pages each session skipped
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets `history` read while a scrape is writing
package database
