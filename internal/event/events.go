// Package event defines the events emitted while plans are compiled and run.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	PlanTranslated  = "plan_translated"
	PlanRejected    = "plan_rejected"
	PlanExecuted    = "plan_executed"
	ExecutionFailed = "execution_failed"
)

// QueryEvent carries the canonical shape of every plan event.
type QueryEvent struct {
	ID         string        `json:"id"`
	EventType  string        `json:"event_type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Root       string        `json:"root,omitempty"`
	SQL        string        `json:"sql,omitempty"`
	Code       string        `json:"code,omitempty"` // error code for rejected and failed plans
	Node       string        `json:"node,omitempty"`
	Message    string        `json:"message,omitempty"`
	Rows       int           `json:"rows"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Failed reports whether the event records an error.
func (e QueryEvent) Failed() bool {
	return e.EventType == PlanRejected || e.EventType == ExecutionFailed
}

// Publisher sends events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt QueryEvent)
}

func newEvent(eventType string) QueryEvent {
	return QueryEvent{
		ID:         uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now(),
	}
}

// ── Constructors ────────────────────────────────────────────────────────────

func NewPlanTranslated(root, sql string) QueryEvent {
	evt := newEvent(PlanTranslated)
	evt.Root = root
	evt.SQL = sql
	return evt
}

// NewPlanRejected records a plan that failed to parse or compile. root is
// empty when the document never produced a plan.
func NewPlanRejected(root, code, node, message string) QueryEvent {
	evt := newEvent(PlanRejected)
	evt.Root = root
	evt.Code = code
	evt.Node = node
	evt.Message = message
	return evt
}

func NewPlanExecuted(root, sql string, rows int, elapsed time.Duration) QueryEvent {
	evt := newEvent(PlanExecuted)
	evt.Root = root
	evt.SQL = sql
	evt.Rows = rows
	evt.Elapsed = elapsed
	return evt
}

func NewExecutionFailed(root, sql, message string, elapsed time.Duration) QueryEvent {
	evt := newEvent(ExecutionFailed)
	evt.Root = root
	evt.SQL = sql
	evt.Code = "EXECUTION_ERROR"
	evt.Message = message
	evt.Elapsed = elapsed
	return evt
}
