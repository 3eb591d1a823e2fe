package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/procuretrust/tender-gateway/internal/config"
	"github.com/procuretrust/tender-gateway/internal/ledger"
)

type invocation struct {
	Kind      string
	Name      string
	Args      []string
	Transient map[string][]byte
}

// fakeLedger stands in for the Fabric session factory. It records every
// invocation and counts session lifecycles so tests can assert that each
// acquired session is released exactly once.
type fakeLedger struct {
	mu          sync.Mutex
	acquireErr  error
	evaluateFn  func(name string, args []string) ([]byte, error)
	submitFn    func(name string, transient map[string][]byte, args []string) ([]byte, error)
	sessions    []*fakeSession
	invocations []invocation
}

func (f *fakeLedger) Acquire(ctx context.Context, orgID string) (ledger.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	sess := &fakeSession{parent: f}
	f.sessions = append(f.sessions, sess)
	return sess, nil
}

func (f *fakeLedger) record(inv invocation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invocations = append(f.invocations, inv)
}

func (f *fakeLedger) acquired() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// leakedSessions reports sessions not closed exactly once.
func (f *fakeLedger) leakedSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	leaked := 0
	for _, sess := range f.sessions {
		if sess.closes != 1 {
			leaked++
		}
	}
	return leaked
}

type fakeSession struct {
	parent *fakeLedger
	closes int
}

func (s *fakeSession) Contract() ledger.Contract { return &fakeContract{parent: s.parent} }

func (s *fakeSession) Close() error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.closes++
	return nil
}

type fakeContract struct {
	parent *fakeLedger
}

func (c *fakeContract) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	c.parent.record(invocation{Kind: "evaluate", Name: name, Args: args})
	if c.parent.evaluateFn != nil {
		return c.parent.evaluateFn(name, args)
	}
	return nil, nil
}

func (c *fakeContract) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	c.parent.record(invocation{Kind: "submit", Name: name, Args: args})
	if c.parent.submitFn != nil {
		return c.parent.submitFn(name, nil, args)
	}
	return nil, nil
}

func (c *fakeContract) SubmitWithTransient(ctx context.Context, name string, transient map[string][]byte, args ...string) ([]byte, error) {
	c.parent.record(invocation{Kind: "submit", Name: name, Args: args, Transient: transient})
	if c.parent.submitFn != nil {
		return c.parent.submitFn(name, transient, args)
	}
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Fabric: config.FabricConfig{RequestTimeout: 5 * time.Second},
	}
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
