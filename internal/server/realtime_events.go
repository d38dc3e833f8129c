package server

import (
	"context"
	"time"

	"conduit/internal/middleware"
	"conduit/internal/notifications"
)

// publishEvent fans a domain event out on the global channel and, when
// recipient is set, on that user's channel. Delivery is best effort.
func (s *Server) publishEvent(ctx context.Context, eventType string, actorID, recipient uint, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishAsync(ctx, notifications.Event{
		Type:       eventType,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}, recipient)
}

// startEventLog subscribes to the global channel and logs every event at
// debug level until ctx is cancelled.
func (s *Server) startEventLog(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.notifier.Subscribe(ctx, func(channel string, ev notifications.Event) {
		middleware.Logger.Debug("domain event",
			"channel", channel,
			"type", ev.Type,
			"actor_id", ev.ActorID,
		)
	}, notifications.EventsChannel)
}
