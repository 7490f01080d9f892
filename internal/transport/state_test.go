package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/jobsync/internal/models"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name          string
		current       models.ConnectionStatus
		event         connEvent
		everConnected bool
		want          models.ConnectionStatus
	}{
		{"first dial", models.StatusDisconnected, eventDialStart, false, models.StatusConnecting},
		{"redial after drop", models.StatusDegraded, eventDialStart, true, models.StatusDegraded},
		{"dial succeeds", models.StatusConnecting, eventDialOK, false, models.StatusConnected},
		{"reconnect succeeds", models.StatusDegraded, eventDialOK, true, models.StatusConnected},
		{"fail before first connect", models.StatusConnecting, eventDialFail, false, models.StatusConnecting},
		{"fail after drop", models.StatusDegraded, eventDialFail, true, models.StatusDegraded},
		{"retries exhausted fresh", models.StatusConnecting, eventExhausted, false, models.StatusPolling},
		{"retries exhausted degraded", models.StatusDegraded, eventExhausted, true, models.StatusPolling},
		{"connection dropped", models.StatusConnected, eventDropped, true, models.StatusDegraded},
		{"shutdown", models.StatusConnected, eventShutdown, true, models.StatusDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextStatus(tt.current, tt.event, tt.everConnected)
			assert.Equal(t, tt.want, got)
		})
	}
}
