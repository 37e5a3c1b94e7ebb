package pipeline

import (
	"context"
	"sync"

	"github.com/sandrolain/gosurface/pkg/types"
)

// Tracker keeps only the latest of a series of requests for one surface, as
// produced by an editor that recomputes on every keystroke.
//
// Each request takes a ticket. A result is accepted only if its ticket is
// still the latest issued; older results are dropped on arrival. Issuing a
// ticket cancels the context of the previous in-flight recomputation but
// never waits for it.
type Tracker struct {
	pipeline *Pipeline

	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

// NewTracker creates a Tracker running requests on p.
func NewTracker(p *Pipeline) *Tracker {
	return &Tracker{pipeline: p}
}

// Issue returns a new ticket, superseding every ticket issued before it.
func (t *Tracker) Issue() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.issueLocked(nil)
}

func (t *Tracker) issueLocked(cancel context.CancelFunc) uint64 {
	if t.cancel != nil {
		t.cancel()
	}
	t.latest++
	t.cancel = cancel
	return t.latest
}

// Accept reports whether ticket is the latest issued.
func (t *Tracker) Accept(ticket uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ticket == t.latest
}

// Recompute runs req as the latest request. ok is false when another request
// was issued before this one completed; the result must then be discarded.
func (t *Tracker) Recompute(ctx context.Context, req types.SurfaceRequest) (res Result, ok bool) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	ticket := t.issueLocked(cancel)
	t.mu.Unlock()

	res = t.pipeline.Generate(ctx, req)

	t.mu.Lock()
	ok = ticket == t.latest
	if ok {
		t.cancel = nil
	}
	t.mu.Unlock()
	cancel()

	if !ok {
		t.pipeline.opts.Metrics.ObserveSuperseded()
		t.pipeline.logger.Debug("dropping superseded surface",
			"ticket", ticket,
			"expression", req.Expression)
		return Result{}, false
	}
	return res, true
}

// Stop cancels the in-flight recomputation, if any, and supersedes it.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issueLocked(nil)
}
