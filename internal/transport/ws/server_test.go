package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/nexus/internal/adapter/backend"
	"github.com/xiaot623/gogo/nexus/internal/config"
	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/hub"
	"github.com/xiaot623/gogo/nexus/internal/policy"
	"github.com/xiaot623/gogo/nexus/internal/protocol"
	"github.com/xiaot623/gogo/nexus/internal/repository"
	"github.com/xiaot623/gogo/nexus/internal/service"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

func newTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	cfg := config.Default()
	cfg.ProgressInterval = 5 * time.Millisecond
	cfg.CopilotDelay = time.Millisecond

	journal, err := repository.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	h := hub.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	store := state.New()
	store.Subscribe(h.PublishSnapshot)
	svc := service.New(store, backend.NewMockClient(0), journal, cfg, engine)
	svc.SetNotifier(h)
	t.Cleanup(svc.Close)

	e := echo.New()
	e.GET("/ws", NewServer(cfg, h, svc).HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(msgType string, data []byte) bool) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var base protocol.BaseMessage
		require.NoError(t, json.Unmarshal(data, &base))
		if match(base.Type, data) {
			return
		}
	}
}

func TestInitialStateOnConnect(t *testing.T) {
	conn := newTestServer(t)

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg protocol.StateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, protocol.TypeState, msg.Type)
	require.Len(t, msg.State.Chat, 1)
	assert.Equal(t, state.WelcomeMessage, msg.State.Chat[0].Text)
}

func TestStartRunAndChatOverSocket(t *testing.T) {
	conn := newTestServer(t)

	require.NoError(t, conn.WriteJSON(protocol.StartRunMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeStartRun, RequestID: "r1"},
		Query:       "Analyze VIP churn",
	}))
	readUntil(t, conn, func(msgType string, data []byte) bool {
		if msgType != protocol.TypeRunStarted {
			return false
		}
		var msg protocol.RunStartedMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "r1", msg.RequestID)
		assert.Equal(t, uint64(1), msg.Generation)
		return true
	})

	readUntil(t, conn, func(msgType string, data []byte) bool {
		if msgType != protocol.TypeState {
			return false
		}
		var msg protocol.StateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg.State.Run != nil
	})

	require.NoError(t, conn.WriteJSON(protocol.ChatMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeChat},
		Text:        "summarize",
	}))
	readUntil(t, conn, func(msgType string, data []byte) bool {
		if msgType != protocol.TypeState {
			return false
		}
		var msg protocol.StateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		last := msg.State.Chat[len(msg.State.Chat)-1]
		return last.Role == domain.ChatRoleBot && strings.Contains(last.Text, "VIP")
	})
}

func TestOverrideErrorsAndNotices(t *testing.T) {
	conn := newTestServer(t)

	require.NoError(t, conn.WriteJSON(protocol.OverrideMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeOverride, RequestID: "o1"},
		Reason:      "board",
	}))
	readUntil(t, conn, func(msgType string, data []byte) bool {
		if msgType != protocol.TypeError {
			return false
		}
		var msg protocol.ErrorMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "o1", msg.RequestID)
		assert.Equal(t, protocol.ErrorCodePrecondition, msg.Code)
		return true
	})

	require.NoError(t, conn.WriteJSON(protocol.StartRunMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeStartRun},
		Query:       "q",
	}))
	readUntil(t, conn, func(msgType string, data []byte) bool {
		var msg protocol.StateMessage
		if msgType != protocol.TypeState || json.Unmarshal(data, &msg) != nil {
			return false
		}
		return msg.State.Run != nil
	})

	require.NoError(t, conn.WriteJSON(protocol.OverrideMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeOverride},
		Reason:      "board",
	}))
	readUntil(t, conn, func(msgType string, data []byte) bool {
		if msgType != protocol.TypeNotice {
			return false
		}
		var msg protocol.NoticeMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, domain.NoticeOverridePersisted, msg.Notice.Message)
		return true
	})
}

func TestUnknownMessageType(t *testing.T) {
	conn := newTestServer(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus","request_id":"x"}`)))
	readUntil(t, conn, func(msgType string, data []byte) bool {
		if msgType != protocol.TypeError {
			return false
		}
		var msg protocol.ErrorMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, protocol.ErrorCodeInvalidMessage, msg.Code)
		return true
	})
}
