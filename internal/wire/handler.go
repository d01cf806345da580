package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/internal/executor"
	"github.com/matthewbaird/relplan/internal/plan"
	"github.com/matthewbaird/relplan/internal/session"
	"github.com/matthewbaird/relplan/internal/tabulate"
)

const (
	// rowBatchSize controls how many rows are sent per "rows" message.
	rowBatchSize = 50
)

// Handler manages WebSocket connections.
type Handler struct {
	sessions *session.Manager
	executor *executor.Executor
}

// NewHandler creates a WebSocket handler.
func NewHandler(sessions *session.Manager, exec *executor.Executor) *Handler {
	return &Handler{
		sessions: sessions,
		executor: exec,
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warn().Err(err).Msg("wire: websocket accept")
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Create()
	defer h.sessions.Remove(sess.ID)
	ctx := r.Context()

	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: sess.ID},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug().Str("session", sess.ID).Int("status", int(websocket.CloseStatus(err))).Msg("wire: connection closed")
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case "translate":
			h.handleTranslate(ctx, conn, sess, msg)
		case "execute":
			h.handleExecute(ctx, conn, sess, msg)
		case "history":
			h.send(ctx, conn, ServerMessage{
				Type:      "history",
				RequestID: msg.ID,
				Data:      HistoryData{Entries: sess.History()},
			})
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, ErrorData{
				Code:    "UNKNOWN_TYPE",
				Message: fmt.Sprintf("unknown message type: %s", msg.Type),
			})
		}
	}
}

// parse decodes the plan carried by a translate or execute message.
func (h *Handler) parse(msg ClientMessage) (*plan.Plan, error) {
	var data PlanData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, fmt.Errorf("invalid plan data: %w", err)
	}
	switch {
	case len(data.Plan) > 0:
		return h.executor.Parse(data.Plan, plan.FormatJSON)
	case data.Source != "":
		return h.executor.Parse([]byte(data.Source), plan.Format(data.Format))
	default:
		return nil, errors.New("message carries no plan")
	}
}

func (h *Handler) handleTranslate(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	start := time.Now()

	p, err := h.parse(msg)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorFrom(err))
		return
	}
	sql, err := h.executor.Translate(p)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorFrom(err))
		return
	}
	sess.AddHistory(p.Root, sql)

	h.send(ctx, conn, ServerMessage{
		Type:      "sql",
		RequestID: msg.ID,
		Data:      SQLData{Root: p.Root, SQL: sql},
	})
	h.send(ctx, conn, ServerMessage{
		Type:      "done",
		RequestID: msg.ID,
		Data:      DoneData{Elapsed: time.Since(start).String()},
	})
}

func (h *Handler) handleExecute(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	start := time.Now()

	p, err := h.parse(msg)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorFrom(err))
		return
	}
	result, err := h.executor.Execute(ctx, p)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorFrom(err))
		return
	}
	sess.AddHistory(p.Root, result.SQL)

	h.send(ctx, conn, ServerMessage{
		Type:      "sql",
		RequestID: msg.ID,
		Data:      SQLData{Root: p.Root, SQL: result.SQL},
	})
	h.send(ctx, conn, ServerMessage{
		Type:      "meta",
		RequestID: msg.ID,
		Data: MetaData{
			Root:    result.Meta.Root,
			Columns: result.Columns,
			Total:   result.Meta.Total,
		},
	})

	rows, err := tabulate.JSONRows(result.Columns, result.Rows)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "SERIALIZATION_ERROR", Message: err.Error()})
		return
	}
	for i := 0; i < len(rows); i += rowBatchSize {
		end := min(i+rowBatchSize, len(rows))
		h.send(ctx, conn, ServerMessage{
			Type:      "rows",
			RequestID: msg.ID,
			Data:      RowsData{Rows: rows[i:end]},
		})
	}

	h.send(ctx, conn, ServerMessage{
		Type:      "done",
		RequestID: msg.ID,
		Data: DoneData{
			Total:   result.Meta.Total,
			Elapsed: time.Since(start).String(),
		},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Warn().Err(err).Msg("wire: write error")
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID string, data ErrorData) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      data,
	})
}

// ErrorFrom classifies err for clients: plan failures keep their kind code
// and node, engine failures are EXECUTION_ERROR, anything else is a body
// that could not be decoded.
func ErrorFrom(err error) ErrorData {
	var perr *plan.Error
	if errors.As(err, &perr) {
		return ErrorData{
			Code:       perr.Kind.Code(),
			Message:    perr.Error(),
			Node:       perr.Node,
			Suggestion: perr.Suggestion,
		}
	}
	if executor.IsExecError(err) {
		return ErrorData{Code: "EXECUTION_ERROR", Message: err.Error()}
	}
	return ErrorData{Code: "INVALID_BODY", Message: err.Error()}
}
