// Package uuid generates the time-ordered identifiers brrbot uses to correlate log
// lines for a single HTTP request or command invocation.
// It wraps github.com/google/uuid and sets version 7 as the default.
package uuid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID
type UUID = uuid.UUID

// UUID7 generates a new UUIDv7. Returns uuid.Nil if generation fails.
func UUID7() UUID {
	uuidv7, _ := uuid.NewV7()
	return uuidv7
}

// NewRandom returns a new random UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// CorrelationID returns a UUIDv7 string, falling back to a timestamp-based
// identifier when the random source is unavailable.
func CorrelationID() string {
	u, err := NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
