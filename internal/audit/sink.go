package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/procuretrust/tender-gateway/internal/model"
)

// Sink consumes audit events. Append must be safe for concurrent use.
type Sink interface {
	Append(event model.AuditEvent)
}

// LogSink writes each event to the structured log.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Append(event model.AuditEvent) {
	s.log.Info().
		Str("event", event.EventName).
		Str("tx", event.TxID).
		Uint64("block", event.BlockNumber).
		RawJSON("payload", payloadOrNull(event)).
		Msg("audit event")
}

func payloadOrNull(event model.AuditEvent) []byte {
	if len(event.Payload) == 0 {
		return []byte("null")
	}
	return event.Payload
}

// MemorySink keeps an append-only in-memory trail, useful for diagnostics
// and tests.
type MemorySink struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(event model.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a snapshot of the trail in arrival order.
func (s *MemorySink) Events() []model.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Drain pumps bus subscriptions into a sink until ctx is cancelled.
func Drain(ctx context.Context, bus *Bus, sink Sink) {
	events, cancel := bus.Subscribe()
	defer cancel()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			sink.Append(event)
		case <-ctx.Done():
			return
		}
	}
}
