package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks an Entry's lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultMaxRetries bounds retries when a caller does not specify one.
const DefaultMaxRetries = 3

// HighPriorityThreshold is the priority above which an entry bypasses the
// next poll and is handed to the dispatch region immediately.
const HighPriorityThreshold = 5

// Entry is a message appended to the outbox, destined for local dispatch or
// an external destination.
type Entry struct {
	ID          uuid.UUID
	Name        string
	Payload     any
	Destination string
	Priority    int
	MaxRetries  int
	RetryDelay  time.Duration
	RetryCount  int
	Status      Status
	EnqueuedAt  time.Time
	NextRetryAt time.Time
	Error       string
}

// PublishOptions customizes a single PublishToOutboxAsync call.
type PublishOptions struct {
	Priority    int
	MaxRetries  int
	RetryDelay  time.Duration
	Destination string
}
