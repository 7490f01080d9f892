package models

// ConnectionStatus represents the push-channel connection state. Exactly one
// value holds at a time; StatusPolling activates the polling fallback driver.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDegraded     ConnectionStatus = "degraded"
	StatusPolling      ConnectionStatus = "polling"
)

// IsLive returns true while the push channel is usable or being established.
func (s ConnectionStatus) IsLive() bool {
	return s == StatusConnected || s == StatusConnecting || s == StatusDegraded
}
