// Package command provides globally serialized command dispatch: at most one
// handler invocation is in flight at a time across the entire process,
// enforced by a size-1 semaphore rather than an unbounded worker pool.
//
// Register exactly one handler per command type through a registry.Registry,
// then dispatch with Processor.Send for void commands or the generic Send
// function for commands that return a typed response:
//
//	reg := registry.New()
//	reg.RegisterCommand(registry.NewCommandHandler(func(ctx context.Context, c CreateUser) (UserID, error) {
//		return createUser(ctx, c)
//	}))
//
//	proc := command.New(reg)
//	id, err := command.Send[UserID](ctx, proc, CreateUser{Name: "ada"})
//
// Concurrent callers queue on the same semaphore FIFO; a canceled context
// unblocks its own waiter without disturbing others. Dispose rejects every
// further Send with msgerrors.ErrDisposed.
package command
