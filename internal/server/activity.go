package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matthewbaird/relplan/internal/activity"
	"github.com/matthewbaird/relplan/internal/event"
)

type activityHandler struct {
	store activity.Store
}

type activityResponse struct {
	Entries    []event.QueryEvent `json:"entries"`
	NextCursor string             `json:"next_cursor,omitempty"`
	Total      int                `json:"total"`
}

// List handles GET /v1/activity.
func (h *activityHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseActivityQuery(w, r)
	if !ok {
		return
	}
	entries, next, total, err := h.store.Query(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if entries == nil {
		entries = []event.QueryEvent{}
	}
	writeJSON(w, http.StatusOK, activityResponse{Entries: entries, NextCursor: next, Total: total})
}

// parseActivityQuery reads root, type, failed, since, page_size and cursor.
func parseActivityQuery(w http.ResponseWriter, r *http.Request) (activity.QueryOptions, bool) {
	q := r.URL.Query()
	opts := activity.DefaultQueryOptions()
	opts.Root = q.Get("root")
	opts.Cursor = q.Get("cursor")
	if v := q.Get("type"); v != "" {
		opts.EventTypes = strings.Split(v, ",")
	}
	if v := q.Get("failed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "failed must be a boolean")
			return opts, false
		}
		opts.FailedOnly = b
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "since must be an RFC 3339 time")
			return opts, false
		}
		opts.Since = &t
	}
	if v := q.Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	return opts, true
}
