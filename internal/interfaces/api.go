package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/jobsync/internal/models"
)

// ErrJobNotFound is returned when the backend no longer has a record for a run.
var ErrJobNotFound = errors.New("job not found")

// JobAPI is the external REST/query layer consumed by the engine. It is out of
// scope for this module and specified only at its interface.
type JobAPI interface {
	// GetJob fetches one run's current status by run ID.
	// Returns ErrJobNotFound when the backend record no longer exists.
	GetJob(ctx context.Context, runID string) (*models.RunStatusMessage, error)

	// GetQueueStats fetches the aggregate queue statistics snapshot.
	GetQueueStats(ctx context.Context) (*models.QueueStats, error)
}
