package events

import "sync"

const busBuffer = 64

// Bus is a typed, ordered, at-most-once channel pair. Requests flow from the
// state authority to the timeline service; completions flow back. Each
// direction has exactly one consumer, so channel FIFO order is the delivery
// order guarantee.
type Bus struct {
	requests    chan Event
	completions chan Event

	mu     sync.Mutex
	closed bool
}

func NewBus() *Bus {
	return &Bus{
		requests:    make(chan Event, busBuffer),
		completions: make(chan Event, busBuffer),
	}
}

// PublishRequest emits a request event toward the timeline service.
// Publishing on a closed bus is a silent no-op so shutdown does not race
// with in-flight transitions.
func (b *Bus) PublishRequest(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.requests <- ev
}

// PublishCompletion emits a completion event toward the state authority.
func (b *Bus) PublishCompletion(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.completions <- ev
}

// Requests returns the single-consumer request channel.
func (b *Bus) Requests() <-chan Event {
	return b.requests
}

// Completions returns the single-consumer completion channel.
func (b *Bus) Completions() <-chan Event {
	return b.completions
}

// Close shuts both channels. Consumers drain whatever was already published
// and then observe channel close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.requests)
	close(b.completions)
}
