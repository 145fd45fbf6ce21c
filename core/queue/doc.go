// Package queue provides named work queues with priority-then-FIFO
// ordering, per-queue sequential processing, visibility timeouts, and
// dead-letter promotion after a bounded number of requeue attempts.
//
//	reg := registry.New()
//	reg.RegisterCommand(registry.NewCommandHandler(func(ctx context.Context, c SendEmail) (struct{}, error) {
//		return struct{}{}, sendEmail(ctx, c)
//	}))
//
//	proc := queue.New(queue.NewMemoryStore(), reg)
//	proc.EnqueueAsync(ctx, "emails", SendEmail{To: addr}, queue.EnqueueOptions{Priority: 50})
//	proc.StartQueueAsync(ctx, "emails")
//	defer proc.StopQueueAsync("emails")
//
// Entries are dispatched through the shared handler registry by their
// payload's concrete type, exactly as commands and events are elsewhere in
// this module; a queue is simply a durable, ordered front door onto the
// same handlers.
package queue
