package summary

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound is returned by stores when no record matches the id.
var ErrNotFound = errors.New("summary not found")

// ErrNotPending is returned when background results arrive for a record
// that already left the pending state.
var ErrNotPending = errors.New("summary is no longer pending")

// Status represents the lifecycle state of a summary record.
type Status string

// Status values persisted alongside each record.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Summary is the persisted record holding a URL and its generated summary.
type Summary struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	Summary      string    `json:"summary"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Task is a unit of background work: summarize the article at URL and write
// the result into the record identified by SummaryID.
type Task struct {
	SummaryID int64  `json:"summary_id"`
	URL       string `json:"url"`
	Attempt   int    `json:"attempt"`
	Submitted int64  `json:"submitted"`
}

// FetchRequest captures everything needed to fetch an article.
type FetchRequest struct {
	SummaryID   int64
	URL         string
	UseHeadless bool
}

// FetchResponse is the raw page returned by a Fetcher.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Article is the readable content extracted from a fetched page.
type Article struct {
	Title   string
	Text    string
	Excerpt string
}

// Event is published once a record leaves the pending state.
type Event struct {
	SummaryID int64  `json:"summary_id"`
	URL       string `json:"url"`
	Status    Status `json:"status"`
	BlobURI   string `json:"blob_uri,omitempty"`
	// ContentHash is the hex SHA-256 of the archived page body.
	ContentHash string    `json:"content_sha256,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatusError reports a non-2xx response from the article origin.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Permanent reports whether retrying the fetch is pointless.
func (e *StatusError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// ErrNoContent is returned when no readable text could be extracted.
var ErrNoContent = errors.New("no readable content found")

// ErrRobotsDisallowed is returned when robots.txt forbids fetching the article.
var ErrRobotsDisallowed = errors.New("robots.txt disallows fetching this url")
