package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/Walkerb10/meop/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 10}, watermill.NopLogger{})

	return NewWatermillEventBus(pubSub, pubSub)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestWatermillEventBus_PublishAndSubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	received := make(chan *events.AutomationTriggered, 1)

	err := bus.Handle(events.AutomationTriggeredEvent, func(_ context.Context, event any) error {
		triggered, ok := event.(*events.AutomationTriggered)
		require.True(t, ok)

		received <- triggered

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	event := events.AutomationTriggered{
		BaseEvent: events.BaseEvent{
			ID:           bus.GenerateID(),
			Type:         events.AutomationTriggeredEvent,
			Timestamp:    time.Now().UTC(),
			AutomationID: "auto-1",
		},
		TriggerType: "scheduled",
		TriggerData: map[string]any{"timestamp": "2026-03-06T09:00:00Z"},
	}

	require.NoError(t, bus.Publish(ctx, "auto-1", event))

	select {
	case triggered := <-received:
		assert.Equal(t, "auto-1", triggered.AutomationID)
		assert.Equal(t, events.AutomationTriggeredEvent, triggered.GetType())
		assert.Equal(t, "scheduled", triggered.TriggerType)
	case <-time.After(3 * time.Second):
		t.Fatal("expected to receive the published event")
	}
}

func TestWatermillEventBus_UnhandledEventTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	received := make(chan *events.AutomationTriggered, 1)

	err := bus.Handle(events.AutomationTriggeredEvent, func(_ context.Context, event any) error {
		if triggered, ok := event.(*events.AutomationTriggered); ok {
			received <- triggered
		}

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// An event type with no registered handler is dropped without blocking
	// later deliveries.
	finished := events.AutomationFinished{
		BaseEvent: events.BaseEvent{
			ID:           bus.GenerateID(),
			Type:         events.AutomationFinishedEvent,
			Timestamp:    time.Now().UTC(),
			AutomationID: "auto-1",
		},
	}
	require.NoError(t, bus.Publish(ctx, "auto-1", finished))

	triggered := events.AutomationTriggered{
		BaseEvent: events.BaseEvent{
			ID:           bus.GenerateID(),
			Type:         events.AutomationTriggeredEvent,
			Timestamp:    time.Now().UTC(),
			AutomationID: "auto-2",
		},
		TriggerType: "webhook",
	}
	require.NoError(t, bus.Publish(ctx, "auto-2", triggered))

	select {
	case event := <-received:
		assert.Equal(t, "auto-2", event.AutomationID)
	case <-time.After(3 * time.Second):
		t.Fatal("expected the triggered event to arrive")
	}
}
