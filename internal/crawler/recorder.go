package crawler

// Recorder receives crawl events for metrics collection.
// Implementations must be safe for concurrent use; fetch events are
// reported from worker goroutines.
type Recorder interface {
	// PageFetched is called once per successfully fetched page.
	PageFetched(statusCode int)

	// FetchRetried is called before every retry.
	FetchRetried()

	// FetchFailed is called once per skipped page with the failure kind name.
	FetchFailed(kind string)

	// LinkDropped is called for each discovered link rejected by policy.
	LinkDropped()
}

type nopRecorder struct{}

func (nopRecorder) PageFetched(int)    {}
func (nopRecorder) FetchRetried()      {}
func (nopRecorder) FetchFailed(string) {}
func (nopRecorder) LinkDropped()       {}
