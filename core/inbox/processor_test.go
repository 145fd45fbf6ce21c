package inbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/messaging/core/inbox"
	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/registry"
)

type paymentReceived struct{ Amount int }

func TestProcessIncomingAsync_AdmitsNewMessage(t *testing.T) {
	reg := registry.New()
	var handled int
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ paymentReceived) error {
		handled++
		return nil
	}))

	proc := inbox.New(inbox.NewMemoryStore(), reg)
	ok, err := proc.ProcessIncomingAsync(context.Background(), "msg-1", paymentReceived{Amount: 10},
		inbox.ProcessOptions{DeduplicationWindow: time.Hour})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, handled)
}

func TestProcessIncomingAsync_RejectsDuplicateWithinWindow(t *testing.T) {
	reg := registry.New()
	var handled int
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ paymentReceived) error {
		handled++
		return nil
	}))

	proc := inbox.New(inbox.NewMemoryStore(), reg)
	opts := inbox.ProcessOptions{DeduplicationWindow: time.Hour}

	ok1, err := proc.ProcessIncomingAsync(context.Background(), "msg-2", paymentReceived{}, opts)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := proc.ProcessIncomingAsync(context.Background(), "msg-2", paymentReceived{}, opts)
	require.NoError(t, err)
	assert.False(t, ok2)
	assert.Equal(t, 1, handled)
}

func TestProcessIncomingAsync_ReadmitsAfterWindowElapses(t *testing.T) {
	reg := registry.New()
	var handled int
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ paymentReceived) error {
		handled++
		return nil
	}))

	clock := mtime.NewFake(time.Now())
	proc := inbox.New(inbox.NewMemoryStore(), reg, inbox.WithClock(clock))
	opts := inbox.ProcessOptions{DeduplicationWindow: time.Minute}

	ok1, err := proc.ProcessIncomingAsync(context.Background(), "msg-3", paymentReceived{}, opts)
	require.NoError(t, err)
	assert.True(t, ok1)

	clock.Advance(2 * time.Minute)

	ok2, err := proc.ProcessIncomingAsync(context.Background(), "msg-3", paymentReceived{}, opts)
	require.NoError(t, err)
	assert.True(t, ok2)
	assert.Equal(t, 2, handled)
}

func TestCleanup_PurgesProcessedEntriesPastRetention(t *testing.T) {
	reg := registry.New()
	reg.RegisterEvent(registry.NewEventHandler(func(_ context.Context, _ paymentReceived) error { return nil }))

	clock := mtime.NewFake(time.Now())
	store := inbox.NewMemoryStore()
	proc := inbox.New(store, reg, inbox.WithClock(clock),
		inbox.WithRetention(time.Hour), inbox.WithCleanupInterval(time.Millisecond))

	_, err := proc.ProcessIncomingAsync(context.Background(), "msg-4", paymentReceived{}, inbox.ProcessOptions{DeduplicationWindow: time.Hour})
	require.NoError(t, err)

	require.NoError(t, proc.Start(context.Background()))
	defer proc.Stop()

	clock.Advance(2 * time.Hour)

	require.Eventually(t, func() bool {
		return store.Count(inbox.StatusProcessed) == 0
	}, time.Second, 5*time.Millisecond, "the housekeeping pass should purge the entry")
}
