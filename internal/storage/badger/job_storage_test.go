package badger

import (
	"context"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/jobsync/internal/models"
)

func newTestStorage(t *testing.T) (*JobStorage, *BadgerDB) {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Options = badgerdb.DefaultOptions(tmpDir).WithLogger(nil)

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	logger := arbor.NewLogger()
	return NewJobStorage(db, logger).(*JobStorage), db
}

func TestJobSetRoundTrip(t *testing.T) {
	storage, _ := newTestStorage(t)
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	jobs := []*models.TrackedJob{
		{
			RunID:        "run-1",
			JobType:      "extraction",
			DisplayName:  "Quarterly report",
			ResourceType: "document",
			ResourceID:   "doc-42",
			Status:       models.JobStatusRunning,
			StartedAt:    started,
			Progress: &models.JobProgress{
				Phase:   "extracting",
				Current: 3,
				Total:   10,
				Percent: 30,
				Unit:    "pages",
			},
		},
		{
			RunID:       "run-2",
			JobType:     models.JobTypeDeletion,
			DisplayName: "Old source",
			Status:      models.JobStatusPending,
			StartedAt:   started,
			ConfigID:    "cfg-7",
			ConfigType:  "source",
		},
	}

	require.NoError(t, storage.Save(ctx, jobs))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]*models.TrackedJob{}
	for _, j := range loaded {
		byID[j.RunID] = j
	}

	first := byID["run-1"]
	require.NotNil(t, first)
	assert.Equal(t, "extraction", first.JobType)
	assert.Equal(t, "Quarterly report", first.DisplayName)
	assert.Equal(t, models.JobStatusRunning, first.Status)
	assert.True(t, first.StartedAt.Equal(started))
	require.NotNil(t, first.Progress)
	assert.Equal(t, "extracting", first.Progress.Phase)
	assert.Equal(t, 3, first.Progress.Current)
	assert.Equal(t, 10, first.Progress.Total)

	second := byID["run-2"]
	require.NotNil(t, second)
	assert.Equal(t, models.JobTypeDeletion, second.JobType)
	assert.Equal(t, "cfg-7", second.ConfigID)
	assert.Equal(t, "source", second.ConfigType)
}

func TestJobSetEmptySaveRemovesKey(t *testing.T) {
	storage, db := newTestStorage(t)
	ctx := context.Background()

	jobs := []*models.TrackedJob{
		{RunID: "run-1", JobType: "scrape", Status: models.JobStatusRunning, StartedAt: time.Now()},
	}
	require.NoError(t, storage.Save(ctx, jobs))

	// Saving an empty set must remove the storage key entirely
	require.NoError(t, storage.Save(ctx, nil))

	var record trackedSetRecord
	err := db.Store().Get(trackedSetKey, &record)
	assert.Equal(t, badgerhold.ErrNotFound, err)

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestJobSetDiscardsMalformedData(t *testing.T) {
	storage, db := newTestStorage(t)
	ctx := context.Background()

	record := trackedSetRecord{
		Key:       trackedSetKey,
		Data:      []byte("{not valid json"),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Store().Upsert(trackedSetKey, &record))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// Malformed record is deleted, not retried on the next load
	var check trackedSetRecord
	assert.Equal(t, badgerhold.ErrNotFound, db.Store().Get(trackedSetKey, &check))
}

func TestJobSetSkipsInvalidEntries(t *testing.T) {
	storage, _ := newTestStorage(t)
	ctx := context.Background()

	jobs := []*models.TrackedJob{
		{RunID: "run-1", JobType: "scrape", Status: models.JobStatusRunning, StartedAt: time.Now()},
		{RunID: "", JobType: "scrape", Status: models.JobStatusRunning}, // missing run ID
	}
	require.NoError(t, storage.Save(ctx, jobs))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "run-1", loaded[0].RunID)
}
