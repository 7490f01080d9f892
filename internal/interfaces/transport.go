package interfaces

import (
	"context"

	"github.com/ternarybob/jobsync/internal/models"
)

// TransportCallbacks are invoked by a push transport. OnMessage receives every
// decoded non-heartbeat message; OnConnectionChange fires on every status
// transition; OnFallbackToPolling fires exactly once per failure episode when
// reconnect attempts are exhausted; OnAuthError fires exactly once when the
// transport rejects the token (the transport never retries after it).
type TransportCallbacks struct {
	OnMessage           func(msg models.Message)
	OnConnectionChange  func(status models.ConnectionStatus)
	OnFallbackToPolling func()
	OnAuthError         func(err error)
}

// PushTransport establishes and maintains the push channel. Connect returns
// once the connection loop is running; Disconnect tears it down synchronously
// and leaves no dangling timer.
type PushTransport interface {
	Connect(ctx context.Context, token string, callbacks TransportCallbacks) error
	Disconnect()
	Status() models.ConnectionStatus
}
