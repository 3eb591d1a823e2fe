// Package listener maintains the one long-lived chaincode event
// subscription and replays everything it sees onto the audit bus.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/procuretrust/tender-gateway/internal/audit"
	"github.com/procuretrust/tender-gateway/internal/ledger"
	"github.com/procuretrust/tender-gateway/internal/model"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

type Listener struct {
	events  ledger.EventOpener
	orgID   string
	bus     *audit.Bus
	log     zerolog.Logger
	backoff time.Duration
	// lastBlock is the highest block a delivered event was seen in.
	// Reconnects resume at that block: replaying a partial block can
	// duplicate audit entries, which beats losing them.
	lastBlock uint64
	seen      bool
}

func New(events ledger.EventOpener, orgID string, bus *audit.Bus, log zerolog.Logger) *Listener {
	return &Listener{
		events:  events,
		orgID:   orgID,
		bus:     bus,
		log:     log,
		backoff: initialBackoff,
	}
}

// Run blocks until ctx is cancelled. Transport failures trigger capped
// exponential backoff and reconnection; they never propagate to the host.
func (l *Listener) Run(ctx context.Context) {
	for ctx.Err() == nil {
		start := uint64(0)
		if l.seen {
			start = l.lastBlock
		}

		events, release, err := l.events.OpenEvents(ctx, l.orgID, start)
		if err != nil {
			l.log.Warn().Err(err).Dur("retry_in", l.backoff).Msg("event subscription failed")
			if !l.sleep(ctx) {
				return
			}
			continue
		}

		l.log.Info().Str("org", l.orgID).Uint64("from_block", start).Msg("listening for chaincode events")
		l.backoff = initialBackoff
		l.consume(ctx, events)
		if err := release(); err != nil {
			l.log.Debug().Err(err).Msg("event session close")
		}

		if ctx.Err() == nil {
			l.log.Warn().Msg("event stream ended; reconnecting")
			if !l.sleep(ctx) {
				return
			}
		}
	}
}

func (l *Listener) consume(ctx context.Context, events <-chan ledger.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			record, err := decode(event)
			if err != nil {
				// One malformed event must not stop the stream.
				l.log.Error().Err(err).Str("event", event.EventName).Str("tx", event.TxID).
					Msg("discarding undecodable event")
				continue
			}
			l.lastBlock = event.BlockNumber
			l.seen = true
			l.bus.Publish(record)
		}
	}
}

func (l *Listener) sleep(ctx context.Context) bool {
	timer := time.NewTimer(l.backoff)
	defer timer.Stop()
	l.backoff *= 2
	if l.backoff > maxBackoff {
		l.backoff = maxBackoff
	}
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func decode(event ledger.Event) (model.AuditEvent, error) {
	if event.EventName == "" {
		return model.AuditEvent{}, fmt.Errorf("event without a name in tx %s", event.TxID)
	}
	if len(event.Payload) > 0 && !json.Valid(event.Payload) {
		return model.AuditEvent{}, fmt.Errorf("event %s payload is not valid JSON", event.EventName)
	}
	return model.AuditEvent{
		TxID:        event.TxID,
		BlockNumber: event.BlockNumber,
		Timestamp:   time.Now().UTC(),
		EventName:   event.EventName,
		Payload:     json.RawMessage(event.Payload),
	}, nil
}
