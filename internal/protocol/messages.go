// Package protocol defines the WebSocket message protocol between the
// console and its live clients.
package protocol

import (
	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

// Message types from client to console
const (
	TypeHello    = "hello"
	TypeStartRun = "start_run"
	TypeChat     = "chat"
	TypeSimulate = "simulate"
	TypeOverride = "override"
)

// Message types from console to client
const (
	TypeHelloAck   = "hello_ack"
	TypeRunStarted = "run_started"
	TypeState      = "state"
	TypeNotice     = "notice"
	TypeError      = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// HelloMessage is sent by a client to receive the current state.
type HelloMessage struct {
	BaseMessage
	ClientMeta map[string]string `json:"client_meta,omitempty"`
}

// HelloAckMessage acknowledges a hello.
type HelloAckMessage struct {
	BaseMessage
	ConnectionID string `json:"connection_id"`
}

// StartRunMessage asks the console to start an analysis.
type StartRunMessage struct {
	BaseMessage
	Query string `json:"query"`
}

// RunStartedMessage carries the generation assigned to a started run.
type RunStartedMessage struct {
	BaseMessage
	Generation uint64 `json:"generation"`
}

// ChatMessage carries a copilot message from the operator.
type ChatMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// SimulateMessage asks for a what-if projection of the active run.
type SimulateMessage struct {
	BaseMessage
	Scenario domain.Scenario `json:"scenario"`
}

// OverrideMessage submits an executive override.
type OverrideMessage struct {
	BaseMessage
	Reason string `json:"reason"`
}

// StateMessage broadcasts a console state snapshot.
type StateMessage struct {
	BaseMessage
	Version uint64         `json:"version"`
	State   state.Snapshot `json:"state"`
}

// NoticeMessage broadcasts a transient operator notice.
type NoticeMessage struct {
	BaseMessage
	Notice domain.Notice `json:"notice"`
}

// ErrorMessage reports a failed client request.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodePrecondition   = "precondition_failed"
	ErrorCodeBackendFailed  = "backend_failed"
)
