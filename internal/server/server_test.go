package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/relplan/internal/activity"
	"github.com/matthewbaird/relplan/internal/catalog"
	"github.com/matthewbaird/relplan/internal/event"
	"github.com/matthewbaird/relplan/internal/executor"
	"github.com/matthewbaird/relplan/internal/metrics"
	"github.com/matthewbaird/relplan/internal/seed"
	"github.com/matthewbaird/relplan/internal/session"
	"github.com/matthewbaird/relplan/internal/store"
	"github.com/matthewbaird/relplan/internal/translate"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(ctx, seed.Default()))

	cat, err := catalog.Load(ctx, s)
	require.NoError(t, err)

	m := metrics.New()
	act := activity.NewMemoryStore(0)
	exec := executor.New(translate.New(), s, m).WithCatalog(cat).WithEvents(storePublisher{act})
	srv := httptest.NewServer(NewRouter(Config{
		Executor: exec,
		Catalog:  cat,
		Sessions: session.NewManager(time.Hour, time.Hour),
		Metrics:  m,
		Activity: act,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// storePublisher writes events straight to the store so tests need not
// wait on the bus.
type storePublisher struct{ store activity.Store }

func (p storePublisher) Publish(ctx context.Context, evt event.QueryEvent) {
	p.store.Write(ctx, evt)
}

func post(t *testing.T, url, contentType, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func decodeError(t *testing.T, body string) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal([]byte(body), &e))
	return e
}

const (
	selectPlan = `{"root": "S", "S": {"operator": "Select", "input": "A", "condition": "a_id == 1"}}`
	joinPlan   = `{
		"root": "P",
		"J": {"operator": "Join", "input": ["A", "B"], "joinColumn": "b"},
		"P": {"operator": "Project", "input": "J", "colNames": ["a_id", "c"]}
	}`
)

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestLegacyEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv.URL+"/", "application/json", selectPlan)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Equal(t, "(1, 1, 'SF')", body)
}

func TestTranslate(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv.URL+"/v1/translate", "application/json", joinPlan)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var out translateResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "P", out.Root)
	assert.Equal(t, "SELECT J.a_id, J.c FROM (SELECT * FROM A, B WHERE A.b = B.b) AS J", out.SQL)
}

func TestTranslate_YAML(t *testing.T) {
	srv := newTestServer(t)

	yamlPlan := "root: P\nP:\n  operator: Project\n  input: B\n  colNames: [b, c]\n"
	resp, body := post(t, srv.URL+"/v1/translate", "application/yaml", yamlPlan)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"sql":"SELECT B.b, B.c FROM B"`)
}

func TestTranslate_PlanErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		code string
		node string
	}{
		{"missing root", `{"S": {"operator": "Select", "input": "A", "condition": "x"}}`, "MISSING_ROOT", ""},
		{"unknown operator", `{"root": "S", "S": {"operator": "Union", "input": "A"}}`, "UNKNOWN_OPERATOR", "S"},
		{"malformed", `{"root": "P", "P": {"operator": "Project", "input": "A", "colNames": []}}`, "MALFORMED_NODE", "P"},
		{"unresolved", `{"root": "S", "S": {"operator": "Select", "input": "AA", "condition": "x"}}`, "UNRESOLVED_REFERENCE", "S"},
		{"cycle", `{"root": "X", "X": {"operator": "Select", "input": "Y", "condition": "c"}, "Y": {"operator": "Select", "input": "X", "condition": "c"}}`, "CYCLIC_PLAN", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+"/v1/translate", "application/json", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			e := decodeError(t, body)
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Error)
			if tt.node != "" {
				assert.Equal(t, tt.node, e.Node)
			}
		})
	}
}

func TestTranslate_UnresolvedSuggests(t *testing.T) {
	srv := newTestServer(t)

	_, body := post(t, srv.URL+"/v1/translate", "application/json",
		`{"root": "S", "S": {"operator": "Select", "input": "AA", "condition": "x"}}`)
	assert.Equal(t, "did you mean 'A'?", decodeError(t, body).Suggestion)
}

func TestTranslate_InvalidBody(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv.URL+"/v1/translate", "application/json", `[1, 2`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decodeError(t, body).Code)
}

func TestExecute(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv.URL+"/v1/execute", "application/json", joinPlan)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var out struct {
		SQL     string   `json:"sql"`
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
		Meta    struct {
			Root  string `json:"root"`
			Total int    `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, []string{"a_id", "c"}, out.Columns)
	assert.Equal(t, 5, out.Meta.Total)
	assert.Equal(t, "P", out.Meta.Root)
	assert.Len(t, out.Rows, 5)
}

func TestExecute_Table(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv.URL+"/v1/execute?format=table", "application/json", selectPlan)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, "a_id")
	assert.Contains(t, body, "SF")

	resp, _ = post(t, srv.URL+"/v1/execute?format=xml", "application/json", selectPlan)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecute_EngineError(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv.URL+"/v1/execute", "application/json",
		`{"root": "J", "J": {"operator": "Join", "input": ["A", "A"], "joinColumn": "b"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "EXECUTION_ERROR", decodeError(t, body).Code)
}

func TestTables(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out tablesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Tables, 2)
	assert.Equal(t, "A", out.Tables[0].Name)
	assert.Equal(t, []string{"a_id", "a", "b"}, out.Tables[0].Columns)
	assert.Equal(t, "B", out.Tables[1].Name)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/v1/translate", "application/json", joinPlan)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `relplan_translations_total{outcome="ok"} 1`)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec.Body.String()).Code)
}

func TestActivity(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/v1/execute", "application/json", selectPlan)
	post(t, srv.URL+"/v1/translate", "application/json", joinPlan)
	post(t, srv.URL+"/v1/translate", "application/json", `{"root": "S", "S": {"operator": "Select", "input": "AA", "condition": "x"}}`)

	get := func(query string) activityResponse {
		resp, err := http.Get(srv.URL + "/v1/activity" + query)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out activityResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	all := get("")
	assert.Equal(t, 3, all.Total)

	failed := get("?failed=true")
	require.Len(t, failed.Entries, 1)
	assert.Equal(t, "UNRESOLVED_REFERENCE", failed.Entries[0].Code)

	byRoot := get("?root=P&type=" + event.PlanTranslated)
	require.Len(t, byRoot.Entries, 1)
	assert.Equal(t, "SELECT J.a_id, J.c FROM (SELECT * FROM A, B WHERE A.b = B.b) AS J", byRoot.Entries[0].SQL)

	resp, err := http.Get(srv.URL + "/v1/activity?since=yesterday")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
