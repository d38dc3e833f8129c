// Package notifications publishes domain events to Redis pub/sub channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"conduit/internal/middleware"
	"conduit/internal/observability"

	"github.com/redis/go-redis/v9"
)

// EventsChannel receives every domain event.
const EventsChannel = "conduit:events"

// Event types.
const (
	EventUserRegistered    = "user_registered"
	EventArticleCreated    = "article_created"
	EventArticleUpdated    = "article_updated"
	EventArticleDeleted    = "article_deleted"
	EventArticleFavorited  = "article_favorited"
	EventArticleUnfavorite = "article_unfavorited"
	EventCommentCreated    = "comment_created"
	EventCommentDeleted    = "comment_deleted"
	EventUserFollowed      = "user_followed"
	EventUserUnfollowed    = "user_unfollowed"
)

// Event is the JSON envelope published for every domain change.
type Event struct {
	Type       string         `json:"type"`
	ActorID    uint           `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// UserChannel is the per-user channel for events addressed to userID.
func UserChannel(userID uint) string {
	return fmt.Sprintf("conduit:user:%d", userID)
}

// Notifier provides helpers to publish events into Redis channels.
// A Notifier with a nil client drops everything.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev to the global channel and, when recipient is non-zero, to
// that user's channel as well.
func (n *Notifier) Publish(ctx context.Context, ev Event, recipient uint) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	err = n.rdb.Publish(ctx, EventsChannel, payload).Err()
	if err == nil && recipient != 0 && recipient != ev.ActorID {
		err = n.rdb.Publish(ctx, UserChannel(recipient), payload).Err()
	}
	observability.EventsPublished.WithLabelValues(ev.Type, observability.Outcome(err)).Inc()
	return err
}

// PublishAsync publishes without blocking the request; failures are logged.
func (n *Notifier) PublishAsync(ctx context.Context, ev Event, recipient uint) {
	if n == nil || n.rdb == nil {
		return
	}
	// Detach from request cancellation but keep request-scoped log values.
	bg := context.WithoutCancel(ctx)
	go func() {
		pubCtx, cancel := context.WithTimeout(bg, 2*time.Second)
		defer cancel()
		if err := n.Publish(pubCtx, ev, recipient); err != nil {
			middleware.Logger.WarnContext(pubCtx, "event publish failed",
				"type", ev.Type, "error", err.Error())
		}
	}()
}

// Subscribe delivers events from the given channels to onEvent until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(channel string, ev Event), channels ...string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if len(channels) == 0 {
		channels = []string{EventsChannel}
	}
	sub := n.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %v: %w", channels, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed event", "channel", msg.Channel, "error", err.Error())
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event handler", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(msg.Channel, ev)
				}()
			}
		}
	}()

	return nil
}
