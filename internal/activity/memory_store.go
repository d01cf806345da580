package activity

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matthewbaird/relplan/internal/event"
)

// DefaultCapacity bounds how many events a MemoryStore keeps.
const DefaultCapacity = 10_000

// Store is the interface for reading and writing activity entries.
type Store interface {
	Write(ctx context.Context, evts ...event.QueryEvent) error
	Query(ctx context.Context, opts QueryOptions) (entries []event.QueryEvent, nextCursor string, totalCount int, err error)
}

// MemoryStore implements Store using an in-memory slice that drops the
// oldest events once capacity is reached.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	entries  []event.QueryEvent
}

// NewMemoryStore creates a new empty MemoryStore. capacity < 1 means
// DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Write(_ context.Context, evts ...event.QueryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, evts...)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = append([]event.QueryEvent(nil), s.entries[over:]...)
	}
	return nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Query(_ context.Context, opts QueryOptions) ([]event.QueryEvent, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, hasCursor := parseCursor(opts.Cursor)

	var matched []event.QueryEvent
	for _, e := range s.entries {
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.Root != "" && e.Root != opts.Root {
			continue
		}
		if len(opts.EventTypes) > 0 && !slices.Contains(opts.EventTypes, e.EventType) {
			continue
		}
		if opts.FailedOnly && !e.Failed() {
			continue
		}
		if hasCursor && !cur.follows(e) {
			continue
		}
		matched = append(matched, e)
	}

	// Newest first; events sharing a timestamp are ordered by ID.
	sort.SliceStable(matched, func(i, j int) bool {
		return newer(matched[i], matched[j])
	})

	totalCount := len(matched)
	limit := opts.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	var nextCursor string
	if len(matched) > limit {
		matched = matched[:limit]
		nextCursor = formatCursor(matched[len(matched)-1])
	}

	return matched, nextCursor, totalCount, nil
}

func newer(a, b event.QueryEvent) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	return a.ID > b.ID
}

// cursor marks the last entry of a page as "<RFC 3339 time>|<event id>".
type cursor struct {
	at time.Time
	id string
}

func formatCursor(e event.QueryEvent) string {
	return e.OccurredAt.Format(time.RFC3339Nano) + "|" + e.ID
}

// parseCursor ignores malformed cursors. A bare timestamp is accepted and
// skips everything at that instant.
func parseCursor(s string) (cursor, bool) {
	if s == "" {
		return cursor{}, false
	}
	ts, id, _ := strings.Cut(s, "|")
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return cursor{}, false
	}
	return cursor{at: t, id: id}, true
}

// follows reports whether e sorts after the cursor position.
func (c cursor) follows(e event.QueryEvent) bool {
	return newer(event.QueryEvent{OccurredAt: c.at, ID: c.id}, e)
}
