// Example saga definition:
//
//	type orderData struct {
//		OrderID string
//		Paid    bool
//	}
//
//	const (
//		StateSubmitted saga.State = "submitted"
//		StatePaid      saga.State = "paid"
//	)
//
//	def := saga.NewDefinition[orderData]().
//		Initially(StateSubmitted).
//		During(StateSubmitted, func(s *saga.StateBuilder[orderData]) {
//			s.When(registry.TypeName(OrderPaid{})).
//				Compensate(func(ctx context.Context) error { return refund(ctx) }).
//				Then(func(actx *saga.ActionContext[orderData]) error {
//					actx.Saga.Data.Paid = true
//					return nil
//				}).
//				TransitionTo(StatePaid).
//				Finalize()
//		})
//
//	orch := saga.New(def, saga.NewMemoryRepository[orderData](),
//		func(event any) (uuid.UUID, bool) { return event.(OrderPaid).CorrelationID, true },
//		func() orderData { return orderData{} })
//
//	orch.DispatchAsync(ctx, OrderPaid{CorrelationID: id, OrderID: "o-1"})
package saga
