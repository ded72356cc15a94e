package testutil

import (
	"context"
	"sync"

	"github.com/roach88/recsync/internal/record"
)

// RecordingPublisher records every Publish call.
// If FailAt > 0, the FailAt-th call (1-based) returns Err instead.
type RecordingPublisher struct {
	FailAt int
	Err    error

	mu    sync.Mutex
	calls []record.Record
}

// Publish records r, or fails on the configured call.
func (p *RecordingPublisher) Publish(_ context.Context, r record.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailAt > 0 && len(p.calls)+1 == p.FailAt {
		p.FailAt = 0
		return p.Err
	}
	p.calls = append(p.calls, r)
	return nil
}

// Calls returns the successfully published records in order.
func (p *RecordingPublisher) Calls() []record.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]record.Record, len(p.calls))
	copy(out, p.calls)
	return out
}

// CreatedAts returns created_at of each published record in order.
func (p *RecordingPublisher) CreatedAts() []float64 {
	calls := p.Calls()
	out := make([]float64, len(calls))
	for i, r := range calls {
		out[i] = r.CreatedAt()
	}
	return out
}
