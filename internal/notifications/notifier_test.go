package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), Event{Type: EventArticleCreated}, 1))
	n.PublishAsync(context.Background(), Event{Type: EventArticleCreated}, 1)
	assert.NoError(t, n.Subscribe(context.Background(), func(string, Event) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "conduit:user:1", UserChannel(1))
	assert.Equal(t, "conduit:user:100", UserChannel(100))
}

type received struct {
	channel string
	event   Event
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan received, 4)
	require.NoError(t, n.Subscribe(ctx, func(channel string, ev Event) {
		got <- received{channel, ev}
	}, EventsChannel, UserChannel(2)))

	require.NoError(t, n.Publish(ctx, Event{
		Type:    EventUserFollowed,
		ActorID: 1,
		Payload: map[string]any{"username": "jake"},
	}, 2))

	channels := map[string]Event{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-got:
			channels[r.channel] = r.event
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}

	require.Contains(t, channels, EventsChannel)
	require.Contains(t, channels, UserChannel(2))
	ev := channels[EventsChannel]
	assert.Equal(t, EventUserFollowed, ev.Type)
	assert.Equal(t, uint(1), ev.ActorID)
	assert.Equal(t, "jake", ev.Payload["username"])
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestNotifier_SkipsSelfAddressedUserChannel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	require.NoError(t, n.Subscribe(ctx, func(channel string, _ Event) {
		got <- channel
	}, UserChannel(5)))

	require.NoError(t, n.Publish(ctx, Event{Type: EventArticleFavorited, ActorID: 5}, 5))

	select {
	case ch := <-got:
		t.Fatalf("unexpected delivery on %s", ch)
	case <-time.After(200 * time.Millisecond):
	}
}
