// Package wsclient is a client for the console's live WebSocket endpoint.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/protocol"
)

// Client represents a WebSocket client.
type Client struct {
	conn         *websocket.Conn
	connectionID string
	writeMu      sync.Mutex
}

// Dial connects to the console at addr, e.g. ws://localhost:8088/ws.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// ConnectionID returns the id assigned in the hello handshake.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// Hello performs the handshake. The console answers with hello_ack
// followed by the current state; the state is left for Listen.
func (c *Client) Hello() error {
	msg := protocol.HelloMessage{
		BaseMessage: c.base(protocol.TypeHello),
		ClientMeta:  map[string]string{"client": "nexus-cli"},
	}
	if err := c.write(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read hello_ack: %w", err)
		}
		var base protocol.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			return fmt.Errorf("unmarshal hello_ack: %w", err)
		}

		switch base.Type {
		case protocol.TypeHelloAck:
			var ack protocol.HelloAckMessage
			json.Unmarshal(data, &ack)
			c.connectionID = ack.ConnectionID
			return nil
		case protocol.TypeError:
			var errMsg protocol.ErrorMessage
			json.Unmarshal(data, &errMsg)
			return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
		}
		// State pushed on connect precedes the ack.
	}
}

// StartRun asks the console to start an analysis.
func (c *Client) StartRun(query string) error {
	return c.write(protocol.StartRunMessage{BaseMessage: c.base(protocol.TypeStartRun), Query: query})
}

// Chat sends a copilot message.
func (c *Client) Chat(text string) error {
	return c.write(protocol.ChatMessage{BaseMessage: c.base(protocol.TypeChat), Text: text})
}

// Simulate requests a what-if projection.
func (c *Client) Simulate(sc domain.Scenario) error {
	return c.write(protocol.SimulateMessage{BaseMessage: c.base(protocol.TypeSimulate), Scenario: sc})
}

// Override submits an executive override.
func (c *Client) Override(reason string) error {
	return c.write(protocol.OverrideMessage{BaseMessage: c.base(protocol.TypeOverride), Reason: reason})
}

// Handler receives decoded console messages. Exactly one of the pointer
// arguments is non-nil for known types.
type Handler interface {
	OnState(msg *protocol.StateMessage)
	OnNotice(msg *protocol.NoticeMessage)
	OnRunStarted(msg *protocol.RunStartedMessage)
	OnError(msg *protocol.ErrorMessage)
}

// Listen reads messages until the connection closes or ctx is done.
func (c *Client) Listen(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var base protocol.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			continue
		}

		switch base.Type {
		case protocol.TypeState:
			var msg protocol.StateMessage
			if json.Unmarshal(data, &msg) == nil {
				h.OnState(&msg)
			}
		case protocol.TypeNotice:
			var msg protocol.NoticeMessage
			if json.Unmarshal(data, &msg) == nil {
				h.OnNotice(&msg)
			}
		case protocol.TypeRunStarted:
			var msg protocol.RunStartedMessage
			if json.Unmarshal(data, &msg) == nil {
				h.OnRunStarted(&msg)
			}
		case protocol.TypeError:
			var msg protocol.ErrorMessage
			if json.Unmarshal(data, &msg) == nil {
				h.OnError(&msg)
			}
		}
	}
}

func (c *Client) base(msgType string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:      msgType,
		Ts:        time.Now().UnixMilli(),
		RequestID: "req_" + uuid.New().String()[:8],
	}
}

func (c *Client) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}
