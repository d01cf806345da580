// Package activity keeps a queryable log of recent plan translations and
// executions, fed from the event bus.
package activity

import "time"

const (
	defaultLimit = 50
	maxLimit     = 500
)

// QueryOptions controls filtering and pagination for activity queries.
type QueryOptions struct {
	Since      *time.Time // only events at or after Since
	Root       string     // filter to one root node name
	EventTypes []string   // filter to specific event types
	FailedOnly bool       // only rejected and failed plans
	Limit      int        // max results (default: 50, max: 500)
	Cursor     string     // cursor for pagination
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: defaultLimit}
}
