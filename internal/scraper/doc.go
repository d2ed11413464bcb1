// Package scraper is the caller-facing entry point of sitescribe.
//
// A Client turns a seed URL and a free-text instruction into a sequence of
// documents. Each call runs one independent session:
//
//  1. the seed URL is checked, so a bad seed fails before any network call
//  2. the keyword source derives a keyword set from the instruction
//  3. the crawler walks the seed's host breadth-first and keeps the
//     relevant pages
//  4. the synthesizer turns the kept pages into documents
//
// Sessions share nothing but the Client's configuration, so one Client can
// serve concurrent calls. ScrapeAll runs several seeds at once and, when a
// Store is attached, saves every finished session to the history database.
//
// # Usage
//
//	client, err := scraper.New(config.NewConfig())
//	if err != nil {
//	    return err
//	}
//	docs, err := client.Scrape(ctx, "https://example.com/", "Find the pricing and FAQ pages", 2)
package scraper
