package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/queue"
	"github.com/relaykit/messaging/core/registry"
)

type sendEmail struct{ To string }

func TestQueueProcessor_ProcessesHighestPriorityFirst(t *testing.T) {
	reg := registry.New()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 3)

	reg.RegisterCommand(registry.NewCommandHandler(func(_ context.Context, c sendEmail) (struct{}, error) {
		mu.Lock()
		order = append(order, c.To)
		mu.Unlock()
		done <- struct{}{}
		return struct{}{}, nil
	}))

	store := queue.NewMemoryStore()
	proc := queue.New(store, reg, queue.WithIdleBackoff(5*time.Millisecond))

	ctx := context.Background()
	require.NoError(t, proc.EnqueueAsync(ctx, "mail", sendEmail{To: "low"}, queue.EnqueueOptions{Priority: 1}))
	require.NoError(t, proc.EnqueueAsync(ctx, "mail", sendEmail{To: "high"}, queue.EnqueueOptions{Priority: 9}))
	require.NoError(t, proc.EnqueueAsync(ctx, "mail", sendEmail{To: "mid"}, queue.EnqueueOptions{Priority: 5}))

	require.NoError(t, proc.StartQueueAsync(ctx, "mail"))
	defer proc.StopQueueAsync("mail")

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for queue to drain")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestQueueProcessor_PromotesToDeadLetterAfterMaxRequeueAttempts(t *testing.T) {
	reg := registry.New()
	reg.RegisterCommand(registry.NewCommandHandler(func(_ context.Context, _ sendEmail) (struct{}, error) {
		return struct{}{}, errors.New("smtp unavailable")
	}))

	store := queue.NewMemoryStore()
	proc := queue.New(store, reg,
		queue.WithIdleBackoff(2*time.Millisecond),
		queue.WithMaxRequeueAttempts(2),
		queue.WithVisibilityTimeout(time.Millisecond))

	ctx := context.Background()
	require.NoError(t, proc.EnqueueAsync(ctx, "mail", sendEmail{To: "x"}, queue.EnqueueOptions{}))
	require.NoError(t, proc.StartQueueAsync(ctx, "mail"))
	defer proc.StopQueueAsync("mail")

	require.Eventually(t, func() bool {
		return len(store.DeadLetters()) == 1
	}, time.Second, 5*time.Millisecond)

	depth, err := proc.GetQueueDepthAsync(ctx, "mail")
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestQueueProcessor_DifferentQueuesRunConcurrently(t *testing.T) {
	reg := registry.New()

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	reg.RegisterCommand(registry.NewCommandHandler(func(_ context.Context, _ sendEmail) (struct{}, error) {
		started <- struct{}{}
		<-release
		return struct{}{}, nil
	}))

	store := queue.NewMemoryStore()
	proc := queue.New(store, reg, queue.WithIdleBackoff(2*time.Millisecond))

	ctx := context.Background()
	require.NoError(t, proc.EnqueueAsync(ctx, "a", sendEmail{To: "a"}, queue.EnqueueOptions{}))
	require.NoError(t, proc.EnqueueAsync(ctx, "b", sendEmail{To: "b"}, queue.EnqueueOptions{}))
	require.NoError(t, proc.StartQueueAsync(ctx, "a"))
	require.NoError(t, proc.StartQueueAsync(ctx, "b"))
	defer proc.StopQueueAsync("a")
	defer proc.StopQueueAsync("b")

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for both queues to start processing concurrently")
		}
	}
	close(release)
}

func TestQueueProcessor_StopQueueWaitsForInFlightEntry(t *testing.T) {
	reg := registry.New()
	finished := make(chan struct{})
	reg.RegisterCommand(registry.NewCommandHandler(func(_ context.Context, _ sendEmail) (struct{}, error) {
		time.Sleep(20 * time.Millisecond)
		close(finished)
		return struct{}{}, nil
	}))

	store := queue.NewMemoryStore()
	proc := queue.New(store, reg, queue.WithIdleBackoff(2*time.Millisecond), queue.WithClock(mtime.Default))

	ctx := context.Background()
	require.NoError(t, proc.EnqueueAsync(ctx, "mail", sendEmail{To: "x"}, queue.EnqueueOptions{}))
	require.NoError(t, proc.StartQueueAsync(ctx, "mail"))

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, proc.StopQueueAsync("mail"))

	select {
	case <-finished:
	default:
		t.Fatal("StopQueueAsync must wait for the in-flight entry to finish")
	}
}
