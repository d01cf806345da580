package eventbus

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/internal/event"
)

// LogConsumer logs all events at debug level, failures at warn.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.QueryEvent) error {
	l := log.Debug()
	if evt.Failed() {
		l = log.Warn().Str("code", evt.Code).Str("node", evt.Node).Str("error", evt.Message)
	}
	l.Str("event", evt.EventType).
		Str("root", evt.Root).
		Str("sql", evt.SQL).
		Int("rows", evt.Rows).
		Dur("elapsed", evt.Elapsed).
		Msg("query event")
	return nil
}
