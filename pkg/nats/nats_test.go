package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"market-insight-be/internal/pkg/logger"
	"market-insight-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.STRATEGY_DELETED", Subject("STRATEGY_DELETED"))
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	pub, err := NewPublisher(url, logger.NewNopLogger())
	require.NoError(t, err)
	defer pub.Close()

	sub, err := NewSubscriber(url)
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan events.Event, 1)
	require.NoError(t, sub.Subscribe(ctx, Subject("STRATEGY_IMPLEMENTED"), "", func(_ context.Context, ev events.Event) error {
		select {
		case got <- ev:
		default:
		}
		return nil
	}))

	at := time.Now().UTC().Truncate(time.Millisecond)
	ev := events.NewStrategyEvent(events.StrategyLifecycle{Owner: "u-nats-test", State: "IMPLEMENTED", ClientId: "c1"}, at)
	require.NoError(t, pub.Publish(ctx, ev))

	select {
	case received := <-got:
		assert.Equal(t, "STRATEGY_IMPLEMENTED", received.EventType())
		assert.Equal(t, "u-nats-test", received.Payload()["owner"])
		assert.True(t, received.Timestamp().Equal(at))
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}
