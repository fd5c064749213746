package analytics

import (
	"context"

	"github.com/rs/zerolog"

	"review_radar/internal/domain"
)

// Nop drops every event. Used when no analytics id is configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, map[string]any) {}

// LogSink writes events as structured log lines tagged with the analytics id,
// for collection by the log pipeline.
type LogSink struct {
	id  string
	log zerolog.Logger
}

func NewLogSink(id string, l zerolog.Logger) *LogSink {
	return &LogSink{id: id, log: l.With().Str("component", "analytics").Logger()}
}

func (s *LogSink) Emit(_ context.Context, name string, props map[string]any) {
	s.log.Info().
		Str("ga_id", s.id).
		Str("event", name).
		Fields(props).
		Msg("event")
}

// New picks LogSink when id is set and Nop otherwise.
func New(id string, l zerolog.Logger) domain.EventSink {
	if id == "" {
		return Nop{}
	}
	return NewLogSink(id, l)
}
