package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ErrAuthRejected signals that the push endpoint rejected the token. The
// transport never retries after it; the caller must re-authenticate.
var ErrAuthRejected = errors.New("push transport: authentication rejected")

// Conn is the subset of a websocket connection the client uses. Injectable so
// the reconnect state machine is testable without real network I/O.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer establishes push connections.
type Dialer interface {
	DialContext(ctx context.Context, url, token string) (Conn, error)
}

// websocketDialer implements Dialer over gorilla/websocket.
type websocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebSocketDialer returns the production dialer.
func NewWebSocketDialer(handshakeTimeout time.Duration) Dialer {
	return &websocketDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

func (d *websocketDialer) DialContext(ctx context.Context, url, token string) (Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrAuthRejected
		}
		return nil, err
	}
	return &websocketConn{conn: conn}, nil
}

type websocketConn struct {
	conn *websocket.Conn
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		// A policy-violation close from the server means the token expired
		// mid-session; surface it as an auth rejection.
		if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			return nil, ErrAuthRejected
		}
		return nil, err
	}
	return data, nil
}

func (c *websocketConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *websocketConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *websocketConn) Close() error {
	return c.conn.Close()
}
