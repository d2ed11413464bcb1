// Package main provides the entry point for the sitescribe CLI.
//
// sitescribe crawls a website from a seed URL, keeps the pages that are
// relevant to a plain-language instruction and writes them out as
// structured documents ready for a retrieval pipeline.
//
// Usage:
//
//	sitescribe scrape -i "Find pricing and FAQs" https://example.com/
//	sitescribe history
//	sitescribe show <session-id>
//
// See --help for all available options.
package main

// main is the entry point for sitescribe.
func main() {
	Execute()
}
