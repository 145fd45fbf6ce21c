package queue

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is used when a caller does not specify a queue.
const DefaultQueueName = "default"

// DefaultMaxRequeueAttempts is the number of failed dequeues tolerated
// before an entry is promoted to the dead letter queue.
const DefaultMaxRequeueAttempts = 3

// Entry is a single unit of work sitting in a named queue.
type Entry struct {
	ID                 uuid.UUID
	Queue              string
	Name               string
	Payload            any
	Priority           int
	DequeueCount       int
	MaxRequeueAttempts int
	EnqueuedAt         time.Time
	VisibleAt          time.Time
}

// DeadLetter is an Entry that exhausted MaxRequeueAttempts.
type DeadLetter struct {
	Entry
	Error    string
	FailedAt time.Time
}
