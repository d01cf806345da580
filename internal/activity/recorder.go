package activity

import (
	"context"

	"github.com/matthewbaird/relplan/internal/event"
)

// Recorder is an event bus handler that writes every event to a Store.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) HandleEvent(ctx context.Context, evt event.QueryEvent) error {
	return r.store.Write(ctx, evt)
}
