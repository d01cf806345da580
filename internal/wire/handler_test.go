package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/relplan/internal/catalog"
	"github.com/matthewbaird/relplan/internal/executor"
	"github.com/matthewbaird/relplan/internal/seed"
	"github.com/matthewbaird/relplan/internal/session"
	"github.com/matthewbaird/relplan/internal/store"
	"github.com/matthewbaird/relplan/internal/translate"
)

// received mirrors ServerMessage with the payload left raw.
type received struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *session.Manager, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	s, err := store.Open(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(ctx, seed.Default()))

	exec := executor.New(translate.New(), s, nil).WithCatalog(catalog.New("A", "B"))
	sessions := session.NewManager(time.Hour, time.Hour)
	srv := httptest.NewServer(NewHandler(sessions, exec))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	first := read(t, ctx, conn)
	require.Equal(t, "session", first.Type)
	return conn, sessions, ctx
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) received {
	t.Helper()
	var msg received
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func write(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, id string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: typ, ID: id, Data: raw}))
}

const joinPlan = `{
	"root": "P",
	"J": {"operator": "Join", "input": ["A", "B"], "joinColumn": "b"},
	"P": {"operator": "Project", "input": "J", "colNames": ["a_id", "c"]}
}`

func TestHandler_Translate(t *testing.T) {
	conn, sessions, ctx := dial(t)
	assert.Equal(t, 1, sessions.Len())

	write(t, ctx, conn, "translate", "r1", PlanData{Plan: json.RawMessage(joinPlan)})

	msg := read(t, ctx, conn)
	require.Equal(t, "sql", msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
	var sql SQLData
	require.NoError(t, json.Unmarshal(msg.Data, &sql))
	assert.Equal(t, "SELECT J.a_id, J.c FROM (SELECT * FROM A, B WHERE A.b = B.b) AS J", sql.SQL)

	assert.Equal(t, "done", read(t, ctx, conn).Type)

	write(t, ctx, conn, "history", "r2", nil)
	msg = read(t, ctx, conn)
	require.Equal(t, "history", msg.Type)
	var hist HistoryData
	require.NoError(t, json.Unmarshal(msg.Data, &hist))
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, "P", hist.Entries[0].Root)
}

func TestHandler_Execute(t *testing.T) {
	conn, _, ctx := dial(t)

	write(t, ctx, conn, "execute", "r1", PlanData{
		Source: "root: S\nS:\n  operator: Select\n  input: A\n  condition: a_id == 1\n",
		Format: "yaml",
	})

	assert.Equal(t, "sql", read(t, ctx, conn).Type)

	msg := read(t, ctx, conn)
	require.Equal(t, "meta", msg.Type)
	var meta MetaData
	require.NoError(t, json.Unmarshal(msg.Data, &meta))
	assert.Equal(t, 1, meta.Total)
	assert.Equal(t, []string{"a_id", "a", "b"}, meta.Columns)

	msg = read(t, ctx, conn)
	require.Equal(t, "rows", msg.Type)
	var rows RowsData
	require.NoError(t, json.Unmarshal(msg.Data, &rows))
	require.Len(t, rows.Rows, 1)
	assert.JSONEq(t, `{"a_id": 1, "a": 1, "b": "SF"}`, string(rows.Rows[0]))

	assert.Equal(t, "done", read(t, ctx, conn).Type)
}

func TestHandler_Errors(t *testing.T) {
	conn, _, ctx := dial(t)

	write(t, ctx, conn, "translate", "r1", PlanData{Plan: json.RawMessage(`{"root": "S", "S": {"operator": "Select", "input": "AB", "condition": "x"}}`)})
	msg := read(t, ctx, conn)
	require.Equal(t, "error", msg.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, "UNRESOLVED_REFERENCE", e.Code)
	assert.Equal(t, "S", e.Node)
	assert.NotEmpty(t, e.Suggestion)

	write(t, ctx, conn, "execute", "r2", PlanData{Plan: json.RawMessage(`{"root": "J", "J": {"operator": "Join", "input": ["A", "A"], "joinColumn": "b"}}`)})
	msg = read(t, ctx, conn)
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, "EXECUTION_ERROR", e.Code)

	write(t, ctx, conn, "translate", "r3", PlanData{})
	msg = read(t, ctx, conn)
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, "INVALID_BODY", e.Code)

	write(t, ctx, conn, "bogus", "r4", nil)
	msg = read(t, ctx, conn)
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, "UNKNOWN_TYPE", e.Code)

	write(t, ctx, conn, "ping", "r5", nil)
	msg = read(t, ctx, conn)
	assert.Equal(t, "pong", msg.Type)
	assert.Equal(t, "r5", msg.RequestID)
}
