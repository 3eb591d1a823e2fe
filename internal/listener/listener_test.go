package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procuretrust/tender-gateway/internal/audit"
	"github.com/procuretrust/tender-gateway/internal/ledger"
	"github.com/procuretrust/tender-gateway/internal/model"
)

// scriptedOpener plays back a sequence of streams (or errors), one per
// OpenEvents call, and records start blocks and releases.
type scriptedOpener struct {
	mu          sync.Mutex
	streams     [][]ledger.Event
	openErrs    []error
	calls       int
	startBlocks []uint64
	releases    int
}

func (o *scriptedOpener) OpenEvents(ctx context.Context, orgID string, startBlock uint64) (<-chan ledger.Event, func() error, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	call := o.calls
	o.calls++
	o.startBlocks = append(o.startBlocks, startBlock)

	if call < len(o.openErrs) && o.openErrs[call] != nil {
		return nil, nil, o.openErrs[call]
	}

	idx := call - countNonNil(o.openErrs[:min(call, len(o.openErrs))])
	ch := make(chan ledger.Event, 16)
	if idx < len(o.streams) {
		for _, event := range o.streams[idx] {
			ch <- event
		}
	}
	close(ch)
	release := func() error {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.releases++
		return nil
	}
	return ch, release, nil
}

func countNonNil(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}

func (o *scriptedOpener) snapshot() (calls, releases int, startBlocks []uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls, o.releases, append([]uint64(nil), o.startBlocks...)
}

func collect(t *testing.T, bus *audit.Bus, want int, timeout time.Duration) []model.AuditEvent {
	t.Helper()
	sink := audit.NewMemorySink()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	go audit.Drain(ctx, bus, sink)

	require.Eventually(t, func() bool {
		return len(sink.Events()) >= want
	}, timeout, 5*time.Millisecond)
	return sink.Events()
}

func runListener(l *Listener) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestListenerPublishesDecodedEvents(t *testing.T) {
	opener := &scriptedOpener{
		streams: [][]ledger.Event{{
			{BlockNumber: 5, TxID: "tx1", EventName: model.EventRFQCreated, Payload: []byte(`{"tenderId": "T1"}`)},
			{BlockNumber: 6, TxID: "tx2", EventName: model.EventBidSubmitted, Payload: []byte(`{"bidId": "B1"}`)},
		}},
	}
	bus := audit.NewBus()
	defer bus.Close()

	listener := New(opener, "org1", bus, zerolog.Nop())
	sink := audit.NewMemorySink()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go audit.Drain(ctx, bus, sink)

	stop := runListener(listener)
	defer stop()

	require.Eventually(t, func() bool {
		return len(sink.Events()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	events := sink.Events()
	assert.Equal(t, model.EventRFQCreated, events[0].EventName)
	assert.Equal(t, "tx1", events[0].TxID)
	assert.Equal(t, uint64(5), events[0].BlockNumber)
	assert.Equal(t, model.EventBidSubmitted, events[1].EventName)
}

func TestListenerSkipsMalformedEventAndContinues(t *testing.T) {
	opener := &scriptedOpener{
		streams: [][]ledger.Event{{
			{BlockNumber: 1, TxID: "tx1", EventName: model.EventRFQCreated, Payload: []byte(`{"ok": true}`)},
			{BlockNumber: 2, TxID: "tx2", EventName: model.EventBidSubmitted, Payload: []byte(`{not json`)},
			{BlockNumber: 3, TxID: "tx3", EventName: model.EventTenderClosed, Payload: []byte(`{"ok": true}`)},
		}},
	}
	bus := audit.NewBus()
	defer bus.Close()

	listener := New(opener, "org1", bus, zerolog.Nop())
	sink := audit.NewMemorySink()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go audit.Drain(ctx, bus, sink)

	stop := runListener(listener)
	defer stop()

	require.Eventually(t, func() bool {
		return len(sink.Events()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	events := sink.Events()
	assert.Equal(t, "tx1", events[0].TxID)
	assert.Equal(t, "tx3", events[1].TxID)
}

func TestListenerReconnectsAndResumesFromLastBlock(t *testing.T) {
	opener := &scriptedOpener{
		streams: [][]ledger.Event{
			{{BlockNumber: 7, TxID: "tx1", EventName: model.EventRFQCreated}},
			{{BlockNumber: 8, TxID: "tx2", EventName: model.EventTenderPublished}},
		},
	}
	bus := audit.NewBus()
	defer bus.Close()

	listener := New(opener, "org1", bus, zerolog.Nop())
	listener.backoff = time.Millisecond
	sink := audit.NewMemorySink()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go audit.Drain(ctx, bus, sink)

	stop := runListener(listener)
	defer stop()

	require.Eventually(t, func() bool {
		return len(sink.Events()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	_, _, startBlocks := opener.snapshot()
	require.GreaterOrEqual(t, len(startBlocks), 2)
	assert.Equal(t, uint64(0), startBlocks[0])
	assert.Equal(t, uint64(7), startBlocks[1])
}

func TestListenerRetriesAfterSubscriptionFailure(t *testing.T) {
	opener := &scriptedOpener{
		openErrs: []error{errors.New("peer unavailable")},
		streams: [][]ledger.Event{
			{{BlockNumber: 1, TxID: "tx1", EventName: model.EventRFQCreated}},
		},
	}
	bus := audit.NewBus()
	defer bus.Close()

	listener := New(opener, "org1", bus, zerolog.Nop())
	listener.backoff = time.Millisecond
	sink := audit.NewMemorySink()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go audit.Drain(ctx, bus, sink)

	stop := runListener(listener)
	defer stop()

	require.Eventually(t, func() bool {
		return len(sink.Events()) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "tx1", sink.Events()[0].TxID)
}

func TestListenerReleasesSessionPerStream(t *testing.T) {
	opener := &scriptedOpener{
		streams: [][]ledger.Event{
			{{BlockNumber: 1, TxID: "tx1", EventName: model.EventRFQCreated}},
			{{BlockNumber: 2, TxID: "tx2", EventName: model.EventTenderPublished}},
		},
	}
	bus := audit.NewBus()
	defer bus.Close()

	listener := New(opener, "org1", bus, zerolog.Nop())
	listener.backoff = time.Millisecond

	stop := runListener(listener)
	time.Sleep(100 * time.Millisecond)
	stop()

	calls, releases, _ := opener.snapshot()
	assert.Equal(t, calls, releases)
}
