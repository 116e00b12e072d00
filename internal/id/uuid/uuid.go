// Package uuid generates request identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// Generator issues time-ordered request IDs.
type Generator struct{}

// New creates a Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUIDv7 string. If the v7 source fails it falls back to a
// random v4 so a request is never left without an ID.
func (Generator) NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
