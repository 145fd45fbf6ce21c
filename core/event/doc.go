// Package event provides the Event Bus. Multiple handlers may subscribe to
// the same event type; PublishAsync fans a single publish out to all of
// them concurrently, bounded by a fixed-capacity dispatch region so a burst
// of publishes cannot spawn unbounded goroutines.
//
//	reg := registry.New()
//	reg.RegisterEvent(registry.NewEventHandler(func(ctx context.Context, e OrderPlaced) error {
//		return notifyWarehouse(ctx, e)
//	}))
//
//	bus := event.New(reg)
//	bus.Start(ctx)
//	defer bus.Stop()
//	bus.PublishAsync(ctx, OrderPlaced{OrderID: id})
//
// Ordering is guaranteed only within a single handler's stream of deliveries
// (publish-accepted order), never across handlers. Use PublishAndWait when a
// caller genuinely needs every handler to finish before proceeding; the
// default PublishAsync returns as soon as each handler's envelope has been
// accepted into the dispatch region.
package event
