package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters tallies solver, cache and HTTP events. It implements all three
// hook interfaces and is safe for concurrent use; the CLI registers one per
// invocation to print a summary.
type Counters struct {
	Scopes     atomic.Int64
	Reused     atomic.Int64
	Unresolved atomic.Int64
	CacheHits  atomic.Int64
	CacheMiss  atomic.Int64
	Requests   atomic.Int64
	Errors     atomic.Int64
	Bytes      atomic.Int64
}

// Snapshot is a point-in-time copy of [Counters].
type Snapshot struct {
	Scopes     int64
	Reused     int64
	Unresolved int64
	CacheHits  int64
	CacheMiss  int64
	Requests   int64
	Errors     int64
	Bytes      int64
}

// Snapshot reads every counter.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Scopes:     c.Scopes.Load(),
		Reused:     c.Reused.Load(),
		Unresolved: c.Unresolved.Load(),
		CacheHits:  c.CacheHits.Load(),
		CacheMiss:  c.CacheMiss.Load(),
		Requests:   c.Requests.Load(),
		Errors:     c.Errors.Load(),
		Bytes:      c.Bytes.Load(),
	}
}

// Register installs c as the solver, cache and HTTP hooks.
func (c *Counters) Register() {
	SetSolverHooks(c)
	SetCacheHooks(c)
	SetHTTPHooks(c)
}

func (c *Counters) OnSolveStart(context.Context, string, string) {}

func (c *Counters) OnSolveComplete(_ context.Context, _, _ string, _ int, _ time.Duration, err error) {
	if err == nil {
		c.Scopes.Add(1)
	}
}

func (c *Counters) OnSolutionReuse(context.Context, string)      { c.Reused.Add(1) }
func (c *Counters) OnUnresolved(context.Context, string, string) { c.Unresolved.Add(1) }

func (c *Counters) OnCacheHit(context.Context, string)  { c.CacheHits.Add(1) }
func (c *Counters) OnCacheMiss(context.Context, string) { c.CacheMiss.Add(1) }

func (c *Counters) OnCacheSet(_ context.Context, _ string, size int) { c.Bytes.Add(int64(size)) }

func (c *Counters) OnRequest(context.Context, string, string, string) { c.Requests.Add(1) }

func (c *Counters) OnResponse(context.Context, string, string, string, int, time.Duration) {}

func (c *Counters) OnError(context.Context, string, string, string, error) { c.Errors.Add(1) }

var (
	_ SolverHooks = (*Counters)(nil)
	_ CacheHooks  = (*Counters)(nil)
	_ HTTPHooks   = (*Counters)(nil)
)
