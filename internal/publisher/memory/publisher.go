// Package memory records published events for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

// Publisher stores published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []summary.Event
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, event summary.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []summary.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]summary.Event, len(p.events))
	copy(out, p.events)
	return out
}
