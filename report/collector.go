package report

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"

	"github.com/yairfalse/purku/types"
)

// Collector is the append-only outcome sink shared by all scope
// workers. It keeps one record per resource per run: a retry updates
// the record in place and never creates a duplicate. Totals are
// computed incrementally on atomic counters.
type Collector struct {
	mu    sync.Mutex
	index *btree.BTreeG[*types.Outcome]

	deleted   atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	protected atomic.Int64

	meta       types.RunMetadata
	scopeOrder []types.Scope
	scopeSkips map[types.Scope]string

	finalMu sync.Mutex
	final   *RunReport
}

// NewCollector creates a collector for one run over the requested
// scopes. Registering scopes up front keeps unreachable and empty
// scopes visible in the final report.
func NewCollector(domainName string, scopes []types.Scope) *Collector {
	return &Collector{
		index: btree.NewG[*types.Outcome](32, func(a, b *types.Outcome) bool {
			return a.Key() < b.Key()
		}),
		meta: types.RunMetadata{
			Domain:          domainName,
			StartedAt:       time.Now().UTC(),
			ScopesRequested: len(scopes),
		},
		scopeOrder: append([]types.Scope(nil), scopes...),
		scopeSkips: make(map[types.Scope]string),
	}
}

// Record upserts one outcome. Counter deltas track status changes so
// totals stay exact even when a record moves between states.
func (c *Collector) Record(outcome types.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, _ := c.index.ReplaceOrInsert(&outcome)

	if prev != nil && prev.Status.Terminal() {
		c.counter(prev.Status).Add(-1)
	}
	if outcome.Status.Terminal() {
		c.counter(outcome.Status).Add(1)
	}
}

// MarkScopeSkipped records a scope-level discovery failure. The scope
// stays in the report with zero outcomes and the skip reason.
func (c *Collector) MarkScopeSkipped(scope types.Scope, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopeSkips[scope] = reason
}

// Totals returns the current incremental totals.
func (c *Collector) Totals() types.Totals {
	return types.Totals{
		Deleted:   int(c.deleted.Load()),
		Failed:    int(c.failed.Load()),
		Skipped:   int(c.skipped.Load()),
		Protected: int(c.protected.Load()),
	}
}

// Finalize closes the run and builds the report. Idempotent: repeated
// calls return the same report regardless of later Record calls.
func (c *Collector) Finalize(runID string) *RunReport {
	c.finalMu.Lock()
	defer c.finalMu.Unlock()

	if c.final != nil {
		return c.final
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	meta := c.meta
	meta.RunID = runID
	meta.FinishedAt = time.Now().UTC()

	byScope := make(map[types.Scope][]types.Outcome)
	c.index.Ascend(func(o *types.Outcome) bool {
		byScope[o.Scope] = append(byScope[o.Scope], *o)
		return true
	})

	perScope := make([]ScopeReport, 0, len(c.scopeOrder))
	for _, s := range c.scopeOrder {
		sr := ScopeReport{Scope: s, Outcomes: byScope[s]}
		if reason, ok := c.scopeSkips[s]; ok {
			sr.Skipped = true
			sr.SkipReason = reason
		}
		perScope = append(perScope, sr)
		delete(byScope, s)
	}
	// Outcomes for scopes never registered (defensive; should be none).
	for s, outcomes := range byScope {
		perScope = append(perScope, ScopeReport{Scope: s, Outcomes: outcomes})
	}

	c.final = &RunReport{
		Metadata: meta,
		PerScope: perScope,
		Totals:   c.Totals(),
	}
	return c.final
}

func (c *Collector) counter(status types.OutcomeStatus) *atomic.Int64 {
	switch status {
	case types.StatusDeleted:
		return &c.deleted
	case types.StatusFailed:
		return &c.failed
	case types.StatusSkipped:
		return &c.skipped
	default:
		return &c.protected
	}
}
