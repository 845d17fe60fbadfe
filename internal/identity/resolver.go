// Package identity derives durable record ids used for deduplication.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Separator joins batch id and source id in composite record ids.
const Separator = ":"

// Identity is the resolved id pair of one record.
type Identity struct {
	ID       string
	SourceID *string // nil when the row carried no identifier
}

// Resolver builds record identities. NewID generates ids for rows without a
// source identifier; nil means uuid.NewString.
type Resolver struct {
	NewID func() string
}

// Resolve trims rawSourceID; an empty result is treated as absent. With a
// source id the record id is batchID + Separator + sourceID, so importing the
// same batch again collides on the primary key. Without one the id is random.
func (r Resolver) Resolve(batchID, rawSourceID string) Identity {
	sourceID := strings.TrimSpace(rawSourceID)
	if sourceID == "" {
		return Identity{ID: r.newID()}
	}
	return Identity{
		ID:       batchID + Separator + sourceID,
		SourceID: &sourceID,
	}
}

func (r Resolver) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}
