package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a cache invalidation that could not be applied when the store
// write happened. Entries are keyed by cache key, so repeated failures on the
// same key collapse into one entry.
type Entry struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Prefix     bool      `json:"prefix,omitempty"`
	Retries    int       `json:"retries"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}
}

func (e Entry) bucketKey() []byte {
	if e.Prefix {
		return []byte("prefix:" + e.Key)
	}
	return []byte("key:" + e.Key)
}
