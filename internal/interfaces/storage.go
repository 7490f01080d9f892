package interfaces

import (
	"context"

	"github.com/ternarybob/jobsync/internal/models"
)

// JobStore persists the tracked-job set so it survives process restarts.
// The set is stored as a single JSON array under one key; the key is removed
// when the set becomes empty.
type JobStore interface {
	// Load returns the persisted tracked set. Malformed stored data is
	// discarded and treated as an empty set, never returned as an error.
	Load(ctx context.Context) ([]*models.TrackedJob, error)

	// Save writes the full tracked set, replacing any previous value.
	// An empty set removes the storage key entirely.
	Save(ctx context.Context, jobs []*models.TrackedJob) error

	// Clear removes the storage key.
	Clear(ctx context.Context) error
}
