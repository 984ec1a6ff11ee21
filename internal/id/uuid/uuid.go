// Package uuid generates request identifiers.
package uuid

import (
	"github.com/google/uuid"
)

const maxInboundLen = 128

// Generator creates time-ordered request IDs.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string, or a random v4 if the v7 clock read fails.
func (Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Accept reports whether a client supplied request ID can be echoed back:
// non-empty, at most 128 bytes and limited to [A-Za-z0-9._-].
func Accept(id string) bool {
	if id == "" || len(id) > maxInboundLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
