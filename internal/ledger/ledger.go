// Package ledger defines the narrow surface the gateway needs from the
// distributed ledger. The fabric package provides the real implementation;
// tests substitute fakes at this seam.
package ledger

import "context"

// Contract invokes named transactions on the bound chaincode. Submit
// commits a transaction; Evaluate is a read-only query that commits
// nothing. SubmitWithTransient delivers the transient map to the chaincode
// without committing it to world state.
type Contract interface {
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
	Submit(ctx context.Context, name string, args ...string) ([]byte, error)
	SubmitWithTransient(ctx context.Context, name string, transient map[string][]byte, args ...string) ([]byte, error)
}

// Session is a per-request channel/contract binding. Callers must Close on
// every exit path; sessions are never shared or reused.
type Session interface {
	Contract() Contract
	Close() error
}

// SessionFactory opens a session under the named organization's identity.
type SessionFactory interface {
	Acquire(ctx context.Context, orgID string) (Session, error)
}

// Event is a chaincode-emitted domain event as delivered by the event
// stream.
type Event struct {
	BlockNumber uint64
	TxID        string
	EventName   string
	Payload     []byte
}

// EventOpener opens a chaincode event stream under the named
// organization's identity, starting at the given block. The returned
// channel closes when the stream ends; the release function closes the
// backing session and must be called exactly once. The listener owns
// reconnection.
type EventOpener interface {
	OpenEvents(ctx context.Context, orgID string, startBlock uint64) (<-chan Event, func() error, error)
}
