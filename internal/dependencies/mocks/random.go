package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/typerace/internal/dependencies/random"
)

// MockRandom returns queued strings, then a deterministic sequence
type MockRandom struct {
	mu      sync.Mutex
	queued  []string
	counter int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued value. Once the queue is drained it
// returns zero-padded sequence numbers ("000001", "000002", ...).
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) > 0 {
		next := r.queued[0]
		r.queued = r.queued[1:]
		return next
	}
	r.counter++
	return fmt.Sprintf("%0*d", length, r.counter)
}

// QueueString adds values to the result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, values...)
}
