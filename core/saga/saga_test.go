package saga_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/saga"
)

const (
	stateSubmitted saga.State = "submitted"
	statePaid      saga.State = "paid"
)

type orderData struct {
	Paid   bool
	Amount int
}

type orderSubmitted struct {
	CorrelationID uuid.UUID
	Amount        int
}

type orderPaid struct {
	CorrelationID uuid.UUID
}

type paymentFailed struct {
	CorrelationID uuid.UUID
}

func correlationOf(event any) (uuid.UUID, bool) {
	switch e := event.(type) {
	case orderSubmitted:
		return e.CorrelationID, true
	case orderPaid:
		return e.CorrelationID, true
	case paymentFailed:
		return e.CorrelationID, true
	default:
		return uuid.UUID{}, false
	}
}

func eventName(v any) string {
	switch v.(type) {
	case orderSubmitted:
		return "orderSubmitted"
	case orderPaid:
		return "orderPaid"
	case paymentFailed:
		return "paymentFailed"
	default:
		return ""
	}
}

func buildDefinition(refunded *bool) *saga.Definition[orderData] {
	def := saga.NewDefinition[orderData]().Initially(stateSubmitted)

	def.During(stateSubmitted, func(s *saga.StateBuilder[orderData]) {
		s.When(eventName(orderSubmitted{})).
			Then(func(actx *saga.ActionContext[orderData]) error {
				actx.Saga.Data.Amount = actx.Message.(orderSubmitted).Amount
				return nil
			})

		s.When(eventName(orderPaid{})).
			Compensate(func(context.Context) error {
				*refunded = true
				return nil
			}).
			Then(func(actx *saga.ActionContext[orderData]) error {
				actx.Saga.Data.Paid = true
				return nil
			}).
			TransitionTo(statePaid).
			Finalize()

		s.When(eventName(paymentFailed{})).
			Then(func(actx *saga.ActionContext[orderData]) error {
				return errors.New("payment declined")
			})
	})

	return def
}

func TestDispatchAsync_CreatesInstanceOnInitialEvent(t *testing.T) {
	refunded := false
	def := buildDefinition(&refunded)
	repo := saga.NewMemoryRepository[orderData]()
	orch := saga.New(def, repo, correlationOf, func() orderData { return orderData{} })

	id := uuid.New()
	require.NoError(t, orch.DispatchAsync(context.Background(), orderSubmitted{CorrelationID: id, Amount: 42}))

	inst, found, err := repo.Find(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stateSubmitted, inst.CurrentState)
	assert.Equal(t, 42, inst.Data.Amount)
	assert.Equal(t, int64(0), inst.Version)
}

func TestDispatchAsync_TransitionsAndFinalizes(t *testing.T) {
	refunded := false
	def := buildDefinition(&refunded)
	repo := saga.NewMemoryRepository[orderData]()
	orch := saga.New(def, repo, correlationOf, func() orderData { return orderData{} })

	id := uuid.New()
	require.NoError(t, orch.DispatchAsync(context.Background(), orderSubmitted{CorrelationID: id, Amount: 10}))
	require.NoError(t, orch.DispatchAsync(context.Background(), orderPaid{CorrelationID: id}))

	inst, found, err := repo.Find(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, statePaid, inst.CurrentState)
	assert.True(t, inst.IsCompleted)
	assert.True(t, inst.Data.Paid)
	assert.Equal(t, int64(1), inst.Version)
	assert.False(t, refunded, "compensation must not run when the dispatch succeeds")
}

func TestDispatchAsync_RunsCompensationOnFailureAndMarksFailed(t *testing.T) {
	refunded := false
	def := buildDefinition(&refunded)
	repo := saga.NewMemoryRepository[orderData]()
	orch := saga.New(def, repo, correlationOf, func() orderData { return orderData{} })

	id := uuid.New()
	require.NoError(t, orch.DispatchAsync(context.Background(), orderSubmitted{CorrelationID: id, Amount: 10}))

	// This branch (paymentFailed from stateSubmitted) registers no
	// Compensate step of its own, so this only covers the IsFailed/
	// FailureReason bookkeeping; TestDispatchAsync_CompensationsRunInLIFOOrderOnFailingBranch
	// below covers compensation execution and ordering.
	require.NoError(t, orch.DispatchAsync(context.Background(), paymentFailed{CorrelationID: id}))

	inst, found, err := repo.Find(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, inst.IsFailed)
	assert.Equal(t, "payment declined", inst.FailureReason)
}

func TestDispatchAsync_RejectsEventAfterCompletion(t *testing.T) {
	refunded := false
	def := buildDefinition(&refunded)
	repo := saga.NewMemoryRepository[orderData]()
	orch := saga.New(def, repo, correlationOf, func() orderData { return orderData{} })

	id := uuid.New()
	require.NoError(t, orch.DispatchAsync(context.Background(), orderSubmitted{CorrelationID: id}))
	require.NoError(t, orch.DispatchAsync(context.Background(), orderPaid{CorrelationID: id}))

	err := orch.DispatchAsync(context.Background(), orderPaid{CorrelationID: id})
	assert.Error(t, err, "a completed saga must reject further events")
}

func TestMemoryRepository_OptimisticConcurrencyRejectsStaleUpdate(t *testing.T) {
	repo := saga.NewMemoryRepository[orderData]()

	id := uuid.New()
	require.NoError(t, repo.Save(context.Background(), &saga.Instance[orderData]{
		CorrelationID: id,
		CurrentState:  stateSubmitted,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}))

	stale, _, err := repo.Find(context.Background(), id)
	require.NoError(t, err)

	current, _, err := repo.Find(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), current))

	err = repo.Update(context.Background(), stale)
	assert.Error(t, err, "updating with a stale version must fail")
}

func TestDispatchAsync_CompensationsRunInLIFOOrderOnFailingBranch(t *testing.T) {
	var order []string

	def := saga.NewDefinition[orderData]().Initially(stateSubmitted)
	def.During(stateSubmitted, func(s *saga.StateBuilder[orderData]) {
		s.When(eventName(orderSubmitted{})).
			Then(func(actx *saga.ActionContext[orderData]) error {
				actx.Saga.Data.Amount = actx.Message.(orderSubmitted).Amount
				return nil
			})

		s.When(eventName(paymentFailed{})).
			Compensate(func(context.Context) error {
				order = append(order, "first")
				return nil
			}).
			Compensate(func(context.Context) error {
				order = append(order, "second")
				return nil
			}).
			Then(func(actx *saga.ActionContext[orderData]) error {
				return errors.New("payment declined")
			})
	})

	repo := saga.NewMemoryRepository[orderData]()
	orch := saga.New(def, repo, correlationOf, func() orderData { return orderData{} })

	id := uuid.New()
	require.NoError(t, orch.DispatchAsync(context.Background(), orderSubmitted{CorrelationID: id, Amount: 10}))
	require.NoError(t, orch.DispatchAsync(context.Background(), paymentFailed{CorrelationID: id}))

	inst, found, err := repo.Find(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, inst.IsFailed)
	assert.Equal(t, "payment declined", inst.FailureReason)
	assert.Equal(t, []string{"second", "first"}, order, "compensations registered before the failing step must run in LIFO order")
}

func TestTimeoutMonitor_AppliesHandlerAfterDuration(t *testing.T) {
	def := saga.NewDefinition[orderData]().Initially(stateSubmitted)
	var timedOut bool
	def.During(stateSubmitted, func(s *saga.StateBuilder[orderData]) {
		s.When(eventName(orderSubmitted{})).Then(func(*saga.ActionContext[orderData]) error { return nil })
		s.OnTimeout(time.Minute, func(actx *saga.ActionContext[orderData]) error {
			timedOut = true
			actx.Saga.IsFailed = true
			return nil
		})
	})

	clock := mtime.NewFake(time.Now())
	repo := saga.NewMemoryRepository[orderData]()
	orch := saga.New(def, repo, correlationOf, func() orderData { return orderData{} }, saga.WithClock[orderData](clock))

	id := uuid.New()
	require.NoError(t, orch.DispatchAsync(context.Background(), orderSubmitted{CorrelationID: id}))

	monitor := saga.NewTimeoutMonitor(orch, saga.WithCheckInterval[orderData](time.Millisecond))
	require.NoError(t, monitor.Start(context.Background()))
	defer monitor.Stop()

	clock.Advance(2 * time.Minute)

	require.Eventually(t, func() bool {
		inst, found, err := repo.Find(context.Background(), id)
		return err == nil && found && inst.IsFailed
	}, time.Second, 5*time.Millisecond)
	assert.True(t, timedOut)
}
