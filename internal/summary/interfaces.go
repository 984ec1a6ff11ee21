package summary

import (
	"context"
	"io"
	"time"
)

// Store persists summary records.
type Store interface {
	Create(ctx context.Context, url string, createdAt time.Time) (Summary, error)
	Get(ctx context.Context, id int64) (Summary, error)
	List(ctx context.Context) ([]Summary, error)
	Update(ctx context.Context, id int64, url, text string) (Summary, error)
	Delete(ctx context.Context, id int64) (Summary, error)
	// CompleteSummary stores the generated text; it only applies while the
	// record is still pending.
	CompleteSummary(ctx context.Context, id int64, text string) error
	FailSummary(ctx context.Context, id int64, errText string) error
	Ping(ctx context.Context) error
}

// Queue provides enqueue/dequeue semantics for summarization tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
}

// Enqueuer is the narrow view of the queue used by request handlers.
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns raw HTML into readable article text.
type Extractor interface {
	Extract(pageURL string, body []byte) (Article, error)
}

// Summarizer condenses article text.
type Summarizer interface {
	Summarize(ctx context.Context, article Article) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes lifecycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, event Event) (string, error)
}

// Hasher fingerprints archived pages.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// RenderDetector decides whether a fetched page needs a headless render.
type RenderDetector interface {
	ShouldRender(resp FetchResponse) bool
}

// HostLimiter paces requests to the same origin host.
type HostLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// RetryPolicy decides whether and when a failed task is retried.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
