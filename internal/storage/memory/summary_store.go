package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

// SummaryStore is a map-backed summary.Store for development and tests.
type SummaryStore struct {
	mu      sync.RWMutex
	records map[int64]summary.Summary
	nextID  int64
}

// NewSummaryStore constructs an empty SummaryStore.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{records: make(map[int64]summary.Summary)}
}

// Create stores a pending record under the next id.
func (s *SummaryStore) Create(_ context.Context, url string, createdAt time.Time) (summary.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := summary.Summary{
		ID:        s.nextID,
		URL:       url,
		Status:    summary.StatusPending,
		CreatedAt: createdAt.UTC(),
	}
	s.records[rec.ID] = rec
	return rec, nil
}

// Get returns the record with the given id.
func (s *SummaryStore) Get(_ context.Context, id int64) (summary.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return summary.Summary{}, summary.ErrNotFound
	}
	return rec, nil
}

// List returns all records ordered by id.
func (s *SummaryStore) List(_ context.Context) ([]summary.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]summary.Summary, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update overwrites url and summary and marks the record completed.
func (s *SummaryStore) Update(_ context.Context, id int64, url, text string) (summary.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return summary.Summary{}, summary.ErrNotFound
	}
	rec.URL = url
	rec.Summary = text
	rec.Status = summary.StatusCompleted
	rec.ErrorMessage = ""
	s.records[id] = rec
	return rec, nil
}

// Delete removes the record and returns it.
func (s *SummaryStore) Delete(_ context.Context, id int64) (summary.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return summary.Summary{}, summary.ErrNotFound
	}
	delete(s.records, id)
	return rec, nil
}

// CompleteSummary writes generated text to a pending record.
func (s *SummaryStore) CompleteSummary(_ context.Context, id int64, text string) error {
	return s.finish(id, func(rec *summary.Summary) {
		rec.Summary = text
		rec.Status = summary.StatusCompleted
	})
}

// FailSummary marks a pending record failed.
func (s *SummaryStore) FailSummary(_ context.Context, id int64, errText string) error {
	return s.finish(id, func(rec *summary.Summary) {
		rec.Status = summary.StatusFailed
		rec.ErrorMessage = errText
	})
}

func (s *SummaryStore) finish(id int64, apply func(*summary.Summary)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return summary.ErrNotFound
	}
	if rec.Status != summary.StatusPending {
		return fmt.Errorf("summary %d: %w", id, summary.ErrNotPending)
	}
	apply(&rec)
	s.records[id] = rec
	return nil
}

// Ping always succeeds.
func (s *SummaryStore) Ping(context.Context) error {
	return nil
}
