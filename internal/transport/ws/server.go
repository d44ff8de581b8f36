// Package ws provides the live WebSocket endpoint of the console.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/nexus/internal/config"
	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/hub"
	"github.com/xiaot623/gogo/nexus/internal/logger"
	"github.com/xiaot623/gogo/nexus/internal/protocol"
	"github.com/xiaot623/gogo/nexus/internal/service"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	svc      *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service) *Server {
	return &Server{
		cfg: cfg,
		hub: h,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Dashboard clients are served from other origins.
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to upgrade websocket")
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	// Every client starts from the current state.
	s.sendState(conn)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.WithError(err).WithField("conn_id", conn.ID).Warn("websocket error")
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Log.WithError(err).WithField("conn_id", conn.ID).Debug("failed to write message")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeHello:
		s.handleHello(conn, baseMsg)
	case protocol.TypeStartRun:
		s.handleStartRun(conn, data)
	case protocol.TypeChat:
		s.handleChat(conn, data)
	case protocol.TypeSimulate:
		s.handleSimulate(conn, data)
	case protocol.TypeOverride:
		s.handleOverride(conn, data)
	default:
		s.sendError(conn, baseMsg.RequestID, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

func (s *Server) handleHello(conn *hub.Connection, msg protocol.BaseMessage) {
	ack := protocol.HelloAckMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			RequestID: msg.RequestID,
		},
		ConnectionID: conn.ID,
	}
	s.hub.SendJSONToConnection(conn, ack)
	s.sendState(conn)
}

func (s *Server) handleStartRun(conn *hub.Connection, data []byte) {
	var msg protocol.StartRunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid start_run message")
		return
	}

	gen := s.svc.StartRun(msg.Query)
	s.hub.SendJSONToConnection(conn, protocol.RunStartedMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeRunStarted,
			Ts:        time.Now().UnixMilli(),
			RequestID: msg.RequestID,
		},
		Generation: gen,
	})
}

func (s *Server) handleChat(conn *hub.Connection, data []byte) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid chat message")
		return
	}
	s.svc.SendChat(msg.Text)
}

func (s *Server) handleSimulate(conn *hub.Connection, data []byte) {
	var msg protocol.SimulateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid simulate message")
		return
	}

	// Don't block the read loop on the backend.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()
		if _, err := s.svc.RunSimulation(ctx, msg.Scenario); err != nil {
			s.sendActionError(conn, msg.RequestID, err)
		}
	}()
}

func (s *Server) handleOverride(conn *hub.Connection, data []byte) {
	var msg protocol.OverrideMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid override message")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()
		if _, err := s.svc.SubmitOverride(ctx, msg.Reason); err != nil {
			s.sendActionError(conn, msg.RequestID, err)
		}
	}()
}

func (s *Server) sendState(conn *hub.Connection) {
	if err := s.hub.SendSnapshot(conn, s.svc.Store().Snapshot()); err != nil {
		logger.Log.WithError(err).WithField("conn_id", conn.ID).Warn("failed to send state")
	}
}

// sendActionError reports a failed dependent action to the requester.
// Backend failures also reach every client as a notice.
func (s *Server) sendActionError(conn *hub.Connection, requestID string, err error) {
	code := protocol.ErrorCodeBackendFailed
	if errors.Is(err, domain.ErrPrecondition) {
		code = protocol.ErrorCodePrecondition
	}
	s.sendError(conn, requestID, code, err.Error())
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, requestID, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
		},
		Code:    code,
		Message: message,
	}
	s.hub.SendJSONToConnection(conn, errMsg)
}
