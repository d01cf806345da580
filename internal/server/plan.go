package server

import (
	"net/http"

	"github.com/matthewbaird/relplan/internal/catalog"
	"github.com/matthewbaird/relplan/internal/executor"
	"github.com/matthewbaird/relplan/internal/plan"
	"github.com/matthewbaird/relplan/internal/tabulate"
)

type planHandler struct {
	exec    *executor.Executor
	catalog *catalog.Registry
}

type translateResponse struct {
	Root string `json:"root"`
	SQL  string `json:"sql"`
}

type tablesResponse struct {
	Tables []catalog.Table `json:"tables"`
}

func (h *planHandler) parse(w http.ResponseWriter, r *http.Request, format plan.Format) (*plan.Plan, bool) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return nil, false
	}
	p, err := h.exec.Parse(body, format)
	if err != nil {
		writeFailure(w, err)
		return nil, false
	}
	return p, true
}

// Legacy handles POST /: a JSON plan in, the result rows as tuples out.
func (h *planHandler) Legacy(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, plan.FormatJSON)
	if !ok {
		return
	}
	result, err := h.exec.Execute(r.Context(), p)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(tabulate.Tuples(result.Rows)))
}

// Translate handles POST /v1/translate.
func (h *planHandler) Translate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parse(w, r, plan.FormatFromContentType(r.Header.Get("Content-Type")))
	if !ok {
		return
	}
	sql, err := h.exec.Translate(p)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Root: p.Root, SQL: sql})
}

// Execute handles POST /v1/execute. ?format=table answers with a text table.
func (h *planHandler) Execute(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "table" {
		writeError(w, http.StatusBadRequest, "INVALID_FORMAT", "format must be json or table")
		return
	}
	p, ok := h.parse(w, r, plan.FormatFromContentType(r.Header.Get("Content-Type")))
	if !ok {
		return
	}
	result, err := h.exec.Execute(r.Context(), p)
	if err != nil {
		writeFailure(w, err)
		return
	}

	if format == "table" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		tabulate.Table(w, result.Columns, result.Rows)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Tables handles GET /v1/tables.
func (h *planHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables := []catalog.Table{}
	if h.catalog != nil {
		tables = h.catalog.All()
	}
	writeJSON(w, http.StatusOK, tablesResponse{Tables: tables})
}
