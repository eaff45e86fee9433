package security

import (
	"sync"

	audit "veritas/pkg/platform/audit"
)

// RingBuffer holds pending security events. When full the oldest event is
// overwritten and counted as dropped.
type RingBuffer struct {
	mu      sync.Mutex
	events  []audit.Event
	head    int
	count   int
	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingBuffer{events: make([]audit.Event, capacity)}
}

func (b *RingBuffer) Enqueue(e audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	capacity := len(b.events)
	tail := (b.head + b.count) % capacity
	b.events[tail] = e
	if b.count == capacity {
		b.head = (b.head + 1) % capacity
		b.dropped++
		return
	}
	b.count++
}

// DequeueBatch removes up to n events, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	n = min(n, b.count)
	if n <= 0 {
		return nil
	}
	out := make([]audit.Event, n)
	for i := range out {
		out[i] = b.events[b.head]
		b.events[b.head] = audit.Event{}
		b.head = (b.head + 1) % len(b.events)
	}
	b.count -= n
	return out
}

// Requeue puts events back at the front, keeping their order. Events that
// no longer fit are dropped.
func (b *RingBuffer) Requeue(events []audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	capacity := len(b.events)
	for i := len(events) - 1; i >= 0; i-- {
		if b.count == capacity {
			b.dropped += int64(i + 1)
			return
		}
		b.head = (b.head - 1 + capacity) % capacity
		b.events[b.head] = events[i]
		b.count++
	}
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
