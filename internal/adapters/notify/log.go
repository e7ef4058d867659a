package notify

import (
	"context"

	"github.com/rackline/ladder/internal/domain/model"
	"github.com/rackline/ladder/pkg/logger"
)

// LogSink writes every event to the structured log. It doubles as an
// audit trail when no other sink is configured.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink backed by the named logger.
func NewLogSink() *LogSink {
	return &LogSink{log: logger.Get().Named("notify")}
}

// Name identifies the sink.
func (s *LogSink) Name() string { return "log" }

// Deliver logs the event at info level.
func (s *LogSink) Deliver(ctx context.Context, e model.Event) error {
	fields := []logger.Field{
		logger.String("event_id", e.ID),
		logger.String("kind", string(e.Kind)),
	}
	if e.ChallengeID != "" {
		fields = append(fields, logger.String("challenge_id", e.ChallengeID))
	}
	if e.MatchID != "" {
		fields = append(fields, logger.String("match_id", e.MatchID))
	}
	if e.ActorID != "" {
		fields = append(fields, logger.String("actor_id", e.ActorID))
	}
	if e.WinnerID != "" {
		fields = append(fields, logger.String("winner_id", e.WinnerID))
	}
	s.log.Info(ctx, "event", fields...)
	return nil
}
