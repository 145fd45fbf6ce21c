package event_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/messaging/core/event"
	"github.com/relaykit/messaging/core/registry"
)

type orderPlaced struct{ OrderID int }

func TestPublishAndWait_RunsAllHandlersBeforeReturning(t *testing.T) {
	reg := registry.New()

	var a, b atomic.Bool
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ orderPlaced) error {
		time.Sleep(5 * time.Millisecond)
		a.Store(true)
		return nil
	}))
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ orderPlaced) error {
		time.Sleep(5 * time.Millisecond)
		b.Store(true)
		return nil
	}))

	bus := event.New(reg, event.WithParallelism(2))
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop()

	require.NoError(t, bus.PublishAndWait(context.Background(), orderPlaced{OrderID: 1}))
	assert.True(t, a.Load())
	assert.True(t, b.Load())
}

func TestPublishAndWait_IsolatesHandlerFailures(t *testing.T) {
	reg := registry.New()

	var succeeded atomic.Bool
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ orderPlaced) error {
		panic("boom")
	}))
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ orderPlaced) error {
		succeeded.Store(true)
		return nil
	}))

	bus := event.New(reg, event.WithParallelism(2))
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop()

	require.NoError(t, bus.PublishAndWait(context.Background(), orderPlaced{OrderID: 1}))
	assert.True(t, succeeded.Load(), "a panicking handler must not prevent a sibling handler from completing")

	snap := bus.Metrics()
	assert.Equal(t, int64(1), snap.ProcessedCount)
	assert.Equal(t, int64(1), snap.FailedCount)
}

func TestPublishAsync_NoHandlersIsNotAnError(t *testing.T) {
	bus := event.New(registry.New())
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop()

	assert.NoError(t, bus.PublishAsync(context.Background(), orderPlaced{OrderID: 1}))
}

func TestPublishAndWait_PreservesPerHandlerOrder(t *testing.T) {
	reg := registry.New()

	var mu sync.Mutex
	var seen []int
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, e orderPlaced) error {
		mu.Lock()
		seen = append(seen, e.OrderID)
		mu.Unlock()
		return nil
	}))

	bus := event.New(reg, event.WithParallelism(1))
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop()

	for i := 1; i <= 50; i++ {
		require.NoError(t, bus.PublishAndWait(context.Background(), orderPlaced{OrderID: i}))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	for i, v := range seen {
		assert.Equal(t, i+1, v)
	}
}

func TestStart_RejectsDoubleStart(t *testing.T) {
	bus := event.New(registry.New())
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop()
	assert.Error(t, bus.Start(context.Background()))
}

func TestPublishAsync_RejectsWhenNotRunning(t *testing.T) {
	bus := event.New(registry.New())
	err := bus.PublishAsync(context.Background(), orderPlaced{})
	assert.Error(t, err)
}
