package transport

import "github.com/ternarybob/jobsync/internal/models"

// connEvent drives the connection state machine.
type connEvent int

const (
	eventDialStart connEvent = iota // a connection attempt begins
	eventDialOK                     // the attempt succeeded
	eventDialFail                   // the attempt failed, retries remain
	eventExhausted                  // the attempt failed and retries are spent
	eventDropped                    // an established connection was lost
	eventShutdown                   // the client is being torn down
)

// nextStatus is the single transition function for the connection state
// machine: disconnected -> connecting -> connected <-> degraded -> polling.
// A dial failure before the first success reports connecting; after a drop it
// reports degraded. Exhausting retries reports polling from any state, and a
// later successful dial returns to connected.
func nextStatus(current models.ConnectionStatus, event connEvent, everConnected bool) models.ConnectionStatus {
	switch event {
	case eventDialStart:
		if everConnected {
			return models.StatusDegraded
		}
		return models.StatusConnecting
	case eventDialOK:
		return models.StatusConnected
	case eventDialFail:
		if everConnected {
			return models.StatusDegraded
		}
		return models.StatusConnecting
	case eventExhausted:
		return models.StatusPolling
	case eventDropped:
		return models.StatusDegraded
	case eventShutdown:
		return models.StatusDisconnected
	}
	return current
}
