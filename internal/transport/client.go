// Package transport maintains the push channel to the backend: it dials,
// decodes the message stream, heartbeats, and walks the reconnect state
// machine, falling back to polling when the channel cannot be kept alive.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
)

const pingFrame = `{"type":"ping"}`

// Options configures the push client.
type Options struct {
	URL               string
	HeartbeatInterval time.Duration
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
	MaxReconnects     int
}

// Client implements interfaces.PushTransport over an injectable Dialer.
type Client struct {
	opts   Options
	dialer Dialer
	clock  interfaces.Clock
	logger arbor.ILogger

	mu        sync.Mutex
	status    models.ConnectionStatus
	callbacks interfaces.TransportCallbacks
	cancel    context.CancelFunc
	done      chan struct{}

	// once-per-failure-episode guards; reset on every successful connect
	fallbackFired bool
	authFired     bool
}

// NewClient creates a push client. The dialer and clock are injectable for
// deterministic tests; production callers pass NewWebSocketDialer and the
// system clock.
func NewClient(opts Options, dialer Dialer, clock interfaces.Clock, logger arbor.ILogger) *Client {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.ReconnectBaseWait <= 0 {
		opts.ReconnectBaseWait = time.Second
	}
	if opts.ReconnectMaxWait <= 0 {
		opts.ReconnectMaxWait = 30 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 5
	}
	return &Client{
		opts:   opts,
		dialer: dialer,
		clock:  clock,
		logger: logger,
		status: models.StatusDisconnected,
	}
}

// Connect starts the connection loop. It returns once the loop is running;
// connection progress is reported through the callbacks.
func (c *Client) Connect(ctx context.Context, token string, callbacks interfaces.TransportCallbacks) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return fmt.Errorf("push transport already connected")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.callbacks = callbacks
	c.fallbackFired = false
	c.authFired = false
	c.mu.Unlock()

	go c.run(runCtx, token)
	return nil
}

// Disconnect synchronously stops the connection loop. No timer or goroutine
// survives the call.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Status returns the current connection status.
func (c *Client) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(status models.ConnectionStatus) {
	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	onChange := c.callbacks.OnConnectionChange
	c.mu.Unlock()

	c.logger.Debug().Str("status", string(status)).Msg("Connection status changed")
	if onChange != nil {
		onChange(status)
	}
}

func (c *Client) run(ctx context.Context, token string) {
	defer close(c.done)

	attempt := 0
	everConnected := false

	for {
		if ctx.Err() != nil {
			c.setStatus(models.StatusDisconnected)
			return
		}

		// While in the polling fallback the status stays put; only a
		// successful dial moves it back to connected.
		if c.Status() != models.StatusPolling {
			c.setStatus(nextStatus(c.Status(), eventDialStart, everConnected))
		}

		conn, err := c.dialer.DialContext(ctx, c.opts.URL, token)
		if err != nil {
			if ctx.Err() != nil {
				c.setStatus(models.StatusDisconnected)
				return
			}
			if errors.Is(err, ErrAuthRejected) {
				c.fireAuthError(err)
				c.setStatus(models.StatusDisconnected)
				return
			}

			attempt++
			c.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max", c.opts.MaxReconnects).
				Msg("Push connection attempt failed")

			if attempt >= c.opts.MaxReconnects && c.Status() != models.StatusPolling {
				c.setStatus(nextStatus(c.Status(), eventExhausted, everConnected))
				c.fireFallback()
			} else if c.Status() != models.StatusPolling {
				c.setStatus(nextStatus(c.Status(), eventDialFail, everConnected))
			}

			select {
			case <-ctx.Done():
				c.setStatus(models.StatusDisconnected)
				return
			case <-c.clock.After(c.backoff(attempt)):
			}
			continue
		}

		attempt = 0
		everConnected = true
		c.resetEpisode()

		sessionID := uuid.New().String()
		c.logger.Info().Str("session_id", sessionID).Msg("Push channel connected")
		c.setStatus(nextStatus(c.Status(), eventDialOK, everConnected))

		// Unblock a pending read when the context ends; Disconnect must not
		// wait out the read deadline.
		readDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-readDone:
			}
		}()

		readErr := c.readLoop(ctx, conn, sessionID)
		close(readDone)
		conn.Close()

		if ctx.Err() != nil {
			c.setStatus(models.StatusDisconnected)
			return
		}
		if errors.Is(readErr, ErrAuthRejected) {
			c.fireAuthError(readErr)
			c.setStatus(models.StatusDisconnected)
			return
		}

		c.logger.Warn().Err(readErr).Str("session_id", sessionID).Msg("Push channel dropped")
		c.setStatus(nextStatus(c.Status(), eventDropped, everConnected))
	}
}

// readLoop consumes frames until the connection drops. Heartbeat pings run on
// a separate goroutine; pong frames are acknowledged here and never surfaced.
func (c *Client) readLoop(ctx context.Context, conn Conn, sessionID string) error {
	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)

	go func() {
		ticker := c.clock.NewTicker(c.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatDone:
				return
			case <-ctx.Done():
				return
			case <-ticker.C():
				if err := conn.WriteMessage([]byte(pingFrame)); err != nil {
					c.logger.Debug().Err(err).Msg("Heartbeat write failed")
					return
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_ = conn.SetReadDeadline(c.clock.Now().Add(2 * c.opts.HeartbeatInterval))
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := models.ParseMessage(data)
		if err != nil {
			c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Dropping undecodable push frame")
			continue
		}

		if msg.MessageType() == models.MessagePong {
			continue
		}

		c.mu.Lock()
		onMessage := c.callbacks.OnMessage
		c.mu.Unlock()
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

// backoff returns the bounded exponential wait for the given attempt number.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.opts.ReconnectBaseWait
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= c.opts.ReconnectMaxWait {
			return c.opts.ReconnectMaxWait
		}
	}
	if wait > c.opts.ReconnectMaxWait {
		wait = c.opts.ReconnectMaxWait
	}
	return wait
}

// fireFallback invokes OnFallbackToPolling exactly once per failure episode.
func (c *Client) fireFallback() {
	c.mu.Lock()
	if c.fallbackFired {
		c.mu.Unlock()
		return
	}
	c.fallbackFired = true
	onFallback := c.callbacks.OnFallbackToPolling
	c.mu.Unlock()

	if onFallback != nil {
		onFallback()
	}
}

// fireAuthError invokes OnAuthError exactly once. Auth rejection is never
// retried locally; it signals the caller to re-authenticate.
func (c *Client) fireAuthError(err error) {
	c.mu.Lock()
	if c.authFired {
		c.mu.Unlock()
		return
	}
	c.authFired = true
	onAuthError := c.callbacks.OnAuthError
	c.mu.Unlock()

	c.logger.Error().Err(err).Msg("Push transport authentication rejected")
	if onAuthError != nil {
		onAuthError(err)
	}
}

// resetEpisode clears the once-per-episode fallback guard after a successful
// connect so a later failure episode can fall back again.
func (c *Client) resetEpisode() {
	c.mu.Lock()
	c.fallbackFired = false
	c.mu.Unlock()
}
