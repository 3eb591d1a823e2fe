// Package audit carries ledger-emitted domain events from the listener to
// whatever sinks care about them. Delivery is decoupled per subscriber so
// a slow or failing sink cannot stall the event stream.
package audit

import (
	"sync"

	"github.com/procuretrust/tender-gateway/internal/model"
)

const subscriberBuffer = 256

// Bus is an in-process publish/subscribe fan-out for audit events.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan model.AuditEvent
	nextID  int
	dropped uint64
	closed  bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan model.AuditEvent)}
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event; the drop is counted.
func (b *Bus) Publish(event model.AuditEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped++
		}
	}
}

// Subscribe registers a new consumer. The cancel function unregisters it
// and closes its channel.
func (b *Bus) Subscribe() (<-chan model.AuditEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan model.AuditEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Dropped reports how many deliveries were skipped due to full buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close unregisters all subscribers. Further publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
