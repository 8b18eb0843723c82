package scanner

import (
	"sync"

	"github.com/cardea-gate/cardea/internal/cardea/types"
)

// Queue is the one-directional channel between the device reader and the
// orchestrator: unbounded FIFO, the producer never blocks. Ownership of
// each event transfers to the consumer on Drain.
type Queue struct {
	mu    sync.Mutex
	items []types.ScanEvent
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(ev types.ScanEvent) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
}

// Drain removes and returns everything queued so far, oldest first.
func (q *Queue) Drain() []types.ScanEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
