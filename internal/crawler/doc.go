// Package crawler implements the crawl-and-filter core of sitescribe.
//
// # Components
//
//   - Extract: markup to model.ContentRecord, never failing on bad HTML
//   - Fetcher / HTTPFetcher: one HTTP round-trip per URL
//   - RetryFetcher / Backoff: the retry policy around a Fetcher
//   - Spider: breadth-first traversal with a visited set, depth bound,
//     same-host containment, page and time budgets
//
// # Traversal
//
// The frontier is processed one depth level at a time. URLs are checked
// against and added to the visited set when they are enqueued, not when they
// are fetched, so no URL is ever fetched twice and the frontier holds no
// duplicates. A task with no remaining depth is fetched but its links are not
// followed. Links to other hosts, non-http(s) links and links excluded by
// ignore/follow patterns are dropped silently and only counted.
//
// Fetches within a level run on a bounded errgroup; results are folded in
// discovery order by a single goroutine, so the output order is the BFS
// discovery order for any worker count.
//
// # Failures
//
// Every failure is classified as transient (network errors, timeouts, 5xx,
// 408, 425, 429) or permanent (invalid URL, other 4xx). Transient failures
// are retried with backoff up to the attempt limit. A page that still fails
// is recorded as a model.FetchFailure and skipped; it never aborts the crawl.
//
// # Usage
//
//	client, _ := crawler.NewHTTPClient(crawler.WithClientTimeout(10 * time.Second))
//	spider := crawler.NewSpider(crawler.NewHTTPFetcher(client), crawler.WithWorkers(5))
//	res, err := spider.Crawl(ctx, "https://example.com", 2, keywords)
package crawler
