package report

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/purku/types"
)

var (
	scopeA = types.Scope{AccountID: "111111111111", Region: "us-east-1"}
	scopeB = types.Scope{AccountID: "111111111111", Region: "eu-west-1"}
)

func outcome(s types.Scope, typ, id string, status types.OutcomeStatus) types.Outcome {
	return types.Outcome{ResourceID: id, Type: typ, Scope: s, Status: status}
}

func TestCollector_RecordAndTotals(t *testing.T) {
	c := NewCollector("vpc", []types.Scope{scopeA})

	c.Record(outcome(scopeA, "ec2_instance", "i-1", types.StatusDeleted))
	c.Record(outcome(scopeA, "ec2_instance", "i-2", types.StatusFailed))
	c.Record(outcome(scopeA, "vpc", "vpc-1", types.StatusProtected))
	c.Record(outcome(scopeA, "ebs_volume", "vol-1", types.StatusSkipped))

	totals := c.Totals()
	assert.Equal(t, types.Totals{Deleted: 1, Failed: 1, Skipped: 1, Protected: 1}, totals)
	assert.Equal(t, 4, totals.Sum())
}

func TestCollector_RetryUpdatesInPlace(t *testing.T) {
	c := NewCollector("vpc", []types.Scope{scopeA})

	// Attempting is not terminal and counts nothing.
	c.Record(outcome(scopeA, "ec2_instance", "i-1", types.StatusAttempting))
	assert.Zero(t, c.Totals().Sum())

	// A failed attempt followed by a later success must not double count.
	c.Record(outcome(scopeA, "ec2_instance", "i-1", types.StatusFailed))
	assert.Equal(t, types.Totals{Failed: 1}, c.Totals())

	c.Record(outcome(scopeA, "ec2_instance", "i-1", types.StatusDeleted))
	assert.Equal(t, types.Totals{Deleted: 1}, c.Totals())

	rep := c.Finalize("run-1")
	require.Len(t, rep.PerScope, 1)
	require.Len(t, rep.PerScope[0].Outcomes, 1)
	assert.Equal(t, types.StatusDeleted, rep.PerScope[0].Outcomes[0].Status)
}

func TestCollector_ConcurrentRecords(t *testing.T) {
	c := NewCollector("vpc", []types.Scope{scopeA, scopeB})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := scopeA
			if i%2 == 0 {
				s = scopeB
			}
			c.Record(outcome(s, "ec2_instance", fmt.Sprintf("i-%d", i), types.StatusDeleted))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Totals().Deleted)
	rep := c.Finalize("run-1")
	assert.Equal(t, 50, rep.Totals.Deleted)
}

func TestCollector_ScopeSkipped(t *testing.T) {
	c := NewCollector("vpc", []types.Scope{scopeA, scopeB})
	c.MarkScopeSkipped(scopeB, "bad credentials")
	c.Record(outcome(scopeA, "vpc", "vpc-1", types.StatusDeleted))

	rep := c.Finalize("run-1")
	require.Len(t, rep.PerScope, 2)

	assert.False(t, rep.PerScope[0].Skipped)
	assert.True(t, rep.PerScope[1].Skipped)
	assert.Equal(t, "bad credentials", rep.PerScope[1].SkipReason)
	assert.Empty(t, rep.PerScope[1].Outcomes)
}

func TestCollector_FinalizeIdempotent(t *testing.T) {
	c := NewCollector("rds", []types.Scope{scopeA})
	c.Record(outcome(scopeA, "db_instance", "db-1", types.StatusDeleted))

	first := c.Finalize("run-1")
	c.Record(outcome(scopeA, "db_instance", "db-2", types.StatusDeleted))
	second := c.Finalize("run-2")

	assert.Same(t, first, second)
	assert.Equal(t, "run-1", second.Metadata.RunID)
	assert.Equal(t, 1, second.Totals.Deleted)
}

func TestCollector_Metadata(t *testing.T) {
	c := NewCollector("eks", []types.Scope{scopeA, scopeB})
	rep := c.Finalize("run-xyz")

	assert.Equal(t, "run-xyz", rep.Metadata.RunID)
	assert.Equal(t, "eks", rep.Metadata.Domain)
	assert.Equal(t, 2, rep.Metadata.ScopesRequested)
	assert.False(t, rep.Metadata.StartedAt.IsZero())
	assert.False(t, rep.Metadata.FinishedAt.Before(rep.Metadata.StartedAt))
}

func TestRunReport_FailedAndClean(t *testing.T) {
	c := NewCollector("vpc", []types.Scope{scopeA})
	c.Record(outcome(scopeA, "ec2_instance", "i-1", types.StatusDeleted))
	rep := c.Finalize("run-1")
	assert.True(t, rep.Clean())
	assert.Empty(t, rep.Failed())

	c2 := NewCollector("vpc", []types.Scope{scopeA})
	c2.Record(outcome(scopeA, "ec2_instance", "i-1", types.StatusFailed))
	rep2 := c2.Finalize("run-2")
	assert.False(t, rep2.Clean())
	require.Len(t, rep2.Failed(), 1)
	assert.Equal(t, "i-1", rep2.Failed()[0].ResourceID)
}
