// Package hub provides connection management for WebSocket clients.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
	"github.com/xiaot623/gogo/nexus/internal/protocol"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	hub  *Hub
	mu   sync.Mutex

	sendMu     sync.Mutex
	sendClosed bool
	// lastVersion is the newest state version queued to this connection.
	lastVersion uint64
}

// outbound is a queued broadcast. version is zero for non-state messages.
type outbound struct {
	data    []byte
	version uint64
}

// Hub manages all WebSocket connections and fans out console updates.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan outbound
	done       chan struct{}

	// lastVersion is the newest snapshot version broadcast so far.
	// Listener callbacks may arrive out of order; versionMu is held from
	// the check until the snapshot is queued.
	versionMu   sync.Mutex
	lastVersion uint64

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan outbound, 256),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				delete(h.connections, id)
				conn.closeSend()
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			logger.Log.WithField("conn_id", conn.ID).Debug("connection registered")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				conn.closeSend()
			}
			h.mu.Unlock()
			logger.Log.WithField("conn_id", conn.ID).Debug("connection unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for id, conn := range h.connections {
				if !conn.trySendVersion(msg.data, msg.version) {
					// Buffer full, close the connection
					logger.Log.WithField("conn_id", id).Warn("connection buffer full, closing")
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a new connection bound to the hub.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   "conn_" + uuid.New().String()[:8],
		Conn: ws,
		Send: make(chan []byte, 256),
		hub:  h,
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast sends a message to every connection.
func (h *Hub) Broadcast(data []byte) {
	h.enqueue(outbound{data: data})
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// BroadcastJSON sends a JSON message to every connection.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// PublishSnapshot broadcasts a state snapshot. Snapshots older than one
// already published are dropped. It is meant to be subscribed to the store.
func (h *Hub) PublishSnapshot(snap state.Snapshot) {
	data, err := json.Marshal(NewStateMessage(snap))
	if err != nil {
		logger.Log.WithError(err).Error("failed to encode state snapshot")
		return
	}

	h.versionMu.Lock()
	defer h.versionMu.Unlock()
	if snap.Version <= h.lastVersion {
		return
	}
	h.lastVersion = snap.Version
	h.enqueue(outbound{data: data, version: snap.Version})
}

// SendSnapshot sends a snapshot to one connection, typically its initial
// state. A snapshot older than one already queued to the connection is
// dropped.
func (h *Hub) SendSnapshot(conn *Connection, snap state.Snapshot) error {
	data, err := json.Marshal(NewStateMessage(snap))
	if err != nil {
		return err
	}
	if !conn.trySendVersion(data, snap.Version) {
		return ErrBufferFull
	}
	return nil
}

// Notify broadcasts an operator notice.
func (h *Hub) Notify(n domain.Notice) {
	msg := protocol.NoticeMessage{
		BaseMessage: protocol.BaseMessage{
			Type:  protocol.TypeNotice,
			Ts:    n.Ts,
			RunID: n.RunID,
		},
		Notice: n,
	}
	if err := h.BroadcastJSON(msg); err != nil {
		logger.Log.WithError(err).Error("failed to encode notice")
	}
}

// NewStateMessage wraps a snapshot for the wire.
func NewStateMessage(snap state.Snapshot) protocol.StateMessage {
	msg := protocol.StateMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.TypeState,
			Ts:   time.Now().UnixMilli(),
		},
		Version: snap.Version,
		State:   snap,
	}
	if snap.Run != nil {
		msg.RunID = snap.Run.RunID
	}
	return msg
}

// SendToConnection sends a message to a specific connection.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	if !conn.trySend(data) {
		return ErrBufferFull
	}
	return nil
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the connection has been unregistered.
func (c *Connection) trySend(data []byte) bool {
	return c.trySendVersion(data, 0)
}

// trySendVersion is trySend for a state message of the given version.
// Versions older than the last one queued are skipped and reported as sent;
// an equal version is resent.
func (c *Connection) trySendVersion(data []byte, version uint64) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	if version != 0 {
		if version < c.lastVersion {
			return true
		}
		c.lastVersion = version
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.Send)
	}
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
