// Package query provides globally serialized query dispatch with the same
// concurrency discipline as core/command: at most one handler invocation in
// flight at a time.
//
//	reg := registry.New()
//	reg.RegisterQuery(registry.NewQueryHandler(func(ctx context.Context, q GetUser) (User, error) {
//		return fetchUser(ctx, q.ID)
//	}))
//
//	proc := query.New(reg)
//	user, err := query.Ask[User](ctx, proc, GetUser{ID: id})
//
// Caching is not part of this package. A caching pipeline.Decorator wraps
// the processor's pipeline and reports hits/misses via Processor's
// RecordCacheHit/RecordCacheMiss so Metrics().CacheHitRate stays accurate.
package query
