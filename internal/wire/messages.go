// Package wire defines the WebSocket protocol for submitting plans.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/relplan/internal/session"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "translate", "execute", "history", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// PlanData is the payload for "translate" and "execute" messages. Plan
// carries a JSON plan object; Source carries a plan as text in Format.
type PlanData struct {
	Plan   json.RawMessage `json:"plan,omitempty"`
	Source string          `json:"source,omitempty"`
	Format string          `json:"format,omitempty"` // "json", "yaml", "cue"
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "sql", "meta", "rows", "done", "history", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// SQLData carries a compiled query.
type SQLData struct {
	Root string `json:"root"`
	SQL  string `json:"sql"`
}

// MetaData is sent before rows to describe the result.
type MetaData struct {
	Root    string   `json:"root"`
	Columns []string `json:"columns"`
	Total   int      `json:"total"`
}

// RowsData carries a batch of result rows.
type RowsData struct {
	Rows []json.RawMessage `json:"rows"`
}

// DoneData signals completion of a request.
type DoneData struct {
	Total   int    `json:"total"`
	Elapsed string `json:"elapsed"`
}

// HistoryData lists the plans compiled in this session.
type HistoryData struct {
	Entries []session.Entry `json:"entries"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Node       string `json:"node,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
