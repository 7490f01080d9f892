package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
)

func TestGetJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs/r1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"run_id":"r1","run_type":"scrape","status":"completed"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 5*time.Second, arbor.NewLogger())
	run, err := client.GetJob(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", run.RunID)
	assert.Equal(t, models.JobStatusCompleted, run.Status)
}

func TestGetJobNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, arbor.NewLogger())
	_, err := client.GetJob(context.Background(), "ghost")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestGetJobServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, arbor.NewLogger())
	_, err := client.GetJob(context.Background(), "r1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestGetQueueStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/queue/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"queues":{"crawl":{"pending":3,"in_flight":1}},"active_workers":2}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, arbor.NewLogger())
	stats, err := client.GetQueueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Queues["crawl"].Pending)
	assert.Equal(t, 2, stats.ActiveWorkers)
	assert.False(t, stats.Timestamp.IsZero())
}

func TestGetJobMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, arbor.NewLogger())
	_, err := client.GetJob(context.Background(), "r1")
	assert.Error(t, err)
}
