// Package websocket wraps a gorilla websocket connection with the
// thread-safety and bookkeeping the hub needs: serialized writes,
// deadlines, keepalive and send/receive counters.
package websocket

import (
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/tiltring/tiltring/internal/config"
)

// Connection is one client websocket connection.
type Connection struct {
	id     string
	conn   *websocket.Conn
	cfg    config.ServerConfig
	closed int32

	// Metrics
	messagesSent     uint64
	messagesReceived uint64

	// Write mutex to ensure thread-safe writes; the broadcaster and the
	// per-connection ping loop both write.
	writeMu sync.Mutex
}

// New wraps an upgraded websocket connection and assigns it an id.
func New(conn *websocket.Conn, cfg config.ServerConfig) *Connection {
	c := &Connection{
		id:   uuid.NewString(),
		conn: conn,
		cfg:  cfg,
	}

	conn.SetReadLimit(cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	})

	return c
}

// ID returns the connection id, which doubles as the player id.
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr returns the remote network address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SendJSON marshals v and writes it as one text message. Writes are
// serialized and bounded by the configured write timeout.
func (c *Connection) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	return c.Send(data)
}

// Send writes one pre-encoded text message.
func (c *Connection) Send(data []byte) error {
	if c.IsClosed() {
		return errors.New("connection is closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "write message")
	}

	atomic.AddUint64(&c.messagesSent, 1)
	return nil
}

// Ping writes a ping control frame.
func (c *Connection) Ping() error {
	if c.IsClosed() {
		return errors.New("connection is closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// Receive blocks for the next text or binary message.
func (c *Connection) Receive() ([]byte, error) {
	if c.IsClosed() {
		return nil, errors.New("connection is closed")
	}

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, errors.Wrap(err, "read message")
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		atomic.AddUint64(&c.messagesReceived, 1)
		return data, nil
	}
}

// Close closes the underlying socket. Safe to call more than once.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	return c.conn.Close()
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// Stats returns the send/receive counters.
func (c *Connection) Stats() (sent, received uint64) {
	return atomic.LoadUint64(&c.messagesSent), atomic.LoadUint64(&c.messagesReceived)
}
