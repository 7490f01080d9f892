package badger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
)

// trackedSetKey is the single storage key for the tracked-job set.
const trackedSetKey = "tracked_jobs"

// trackedSetRecord holds the serialized tracked set as one JSON array.
type trackedSetRecord struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStorage implements the JobStore interface for Badger. The tracked set is
// written as a single JSON array under one key so a restart restores exactly
// what the previous session saw.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStore {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// Load returns the persisted tracked set. Malformed stored data is discarded
// and treated as an empty set; corruption is never surfaced to the caller.
func (s *JobStorage) Load(ctx context.Context) ([]*models.TrackedJob, error) {
	var record trackedSetRecord
	err := s.db.Store().Get(trackedSetKey, &record)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read tracked job set - starting empty")
		return nil, nil
	}

	var jobs []*models.TrackedJob
	if err := json.Unmarshal(record.Data, &jobs); err != nil {
		s.logger.Warn().Err(err).Msg("Discarding malformed tracked job set")
		if delErr := s.db.Store().Delete(trackedSetKey, &trackedSetRecord{}); delErr != nil && delErr != badgerhold.ErrNotFound {
			s.logger.Warn().Err(delErr).Msg("Failed to delete malformed tracked job set")
		}
		return nil, nil
	}

	valid := make([]*models.TrackedJob, 0, len(jobs))
	for _, job := range jobs {
		if job == nil || job.Validate() != nil {
			continue
		}
		valid = append(valid, job)
	}

	s.logger.Debug().Int("count", len(valid)).Msg("Loaded tracked job set")
	return valid, nil
}

// Save writes the full tracked set, replacing any previous value. An empty
// set removes the storage key entirely.
func (s *JobStorage) Save(ctx context.Context, jobs []*models.TrackedJob) error {
	if len(jobs) == 0 {
		return s.Clear(ctx)
	}

	data, err := json.Marshal(jobs)
	if err != nil {
		return err
	}

	record := trackedSetRecord{
		Key:       trackedSetKey,
		Data:      data,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(trackedSetKey, &record); err != nil {
		return err
	}

	return nil
}

// Clear removes the storage key.
func (s *JobStorage) Clear(ctx context.Context) error {
	err := s.db.Store().Delete(trackedSetKey, &trackedSetRecord{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	return err
}
