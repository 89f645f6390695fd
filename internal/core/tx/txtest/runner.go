// Package txtest provides in-memory runners and recorders for service tests.
package txtest

import (
	"context"
	"sync"

	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/audit"
)

// Runner records every security context it is asked to run under and
// invokes the work with Conn. No transaction semantics are simulated.
type Runner struct {
	Conn tx.Conn

	// Err, when set, is returned instead of running the work.
	Err error

	mu    sync.Mutex
	calls []security.Context
}

var _ tx.Runner = (*Runner)(nil)

// RunWithContext implements tx.Runner.
func (r *Runner) RunWithContext(ctx context.Context, sc security.Context, fn func(ctx context.Context, conn tx.Conn) error) error {
	r.mu.Lock()
	r.calls = append(r.calls, sc)
	r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	return fn(ctx, r.Conn)
}

// Calls returns the contexts passed so far.
func (r *Runner) Calls() []security.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]security.Context(nil), r.calls...)
}

// AuditRecorder keeps recorded events in memory.
type AuditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// Record implements audit.Recorder.
func (r *AuditRecorder) Record(_ context.Context, _ tx.Conn, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns the captured events.
func (r *AuditRecorder) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}
