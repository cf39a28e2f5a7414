package orchestrator

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/purku/auditlog"
	"github.com/yairfalse/purku/domain"
	"github.com/yairfalse/purku/protect"
	"github.com/yairfalse/purku/providers"
	"github.com/yairfalse/purku/schedule"
	"github.com/yairfalse/purku/types"
)

var (
	scopeA = types.Scope{AccountID: "111111111111", Region: "us-east-1"}
	scopeB = types.Scope{AccountID: "111111111111", Region: "eu-west-1"}
)

// stubResolver resolves every account with empty credentials.
type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string) (types.Credentials, error) {
	return types.Credentials{}, nil
}

// stubClient serves one resource type from a fixed list. Deletes
// always succeed unless failIDs marks the resource.
type stubClient struct {
	typ       string
	resources []types.Resource

	mu          sync.Mutex
	present     map[string]bool
	deleteCalls map[string]int
	failIDs     map[string]bool
	deleteDelay time.Duration
	onDelete    func(id string)
	inFlight    *inFlightGauge
}

func newStubClient(typ string, resources ...types.Resource) *stubClient {
	present := make(map[string]bool, len(resources))
	for _, r := range resources {
		present[r.ID] = true
	}
	return &stubClient{
		typ:         typ,
		resources:   resources,
		present:     present,
		deleteCalls: make(map[string]int),
		failIDs:     make(map[string]bool),
	}
}

func (c *stubClient) Type() string { return c.typ }

func (c *stubClient) List(context.Context) ([]types.Resource, error) {
	return append([]types.Resource(nil), c.resources...), nil
}

func (c *stubClient) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	c.deleteCalls[id]++
	fail := c.failIDs[id]
	onDelete := c.onDelete
	c.mu.Unlock()

	if c.inFlight != nil {
		c.inFlight.enter()
		defer c.inFlight.leave()
	}
	if c.deleteDelay > 0 {
		time.Sleep(c.deleteDelay)
	}
	if fail {
		return types.Permanent(errors.New("access denied"))
	}

	c.mu.Lock()
	c.present[id] = false
	c.mu.Unlock()
	if onDelete != nil {
		onDelete(id)
	}
	return nil
}

func (c *stubClient) Exists(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present[id], nil
}

func (c *stubClient) calls(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteCalls[id]
}

// inFlightGauge tracks the high-water mark of concurrent deletes.
type inFlightGauge struct {
	current atomic.Int64
	peak    atomic.Int64
}

func (g *inFlightGauge) enter() {
	n := g.current.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *inFlightGauge) leave() { g.current.Add(-1) }

// stubFactory hands out a fresh client set per scope.
type stubFactory struct {
	mu          sync.Mutex
	byScope     map[types.Scope][]providers.ResourceClient
	unreachable map[types.Scope]bool
}

func newStubFactory() *stubFactory {
	return &stubFactory{
		byScope:     make(map[types.Scope][]providers.ResourceClient),
		unreachable: make(map[types.Scope]bool),
	}
}

func (f *stubFactory) add(s types.Scope, clients ...providers.ResourceClient) {
	f.byScope[s] = clients
}

func (f *stubFactory) Clients(_ context.Context, s types.Scope, _ types.Credentials) ([]providers.ResourceClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable[s] {
		return nil, &types.ScopeUnreachableError{Scope: s, Err: errors.New("bad credentials")}
	}
	return f.byScope[s], nil
}

func testOptions(t *testing.T, domainName string, factory providers.Factory, rules *protect.Rules) Options {
	t.Helper()
	dom, err := domain.Lookup(domainName)
	require.NoError(t, err)

	if rules == nil {
		rules, err = protect.NewRules(dom, nil, nil, nil)
		require.NoError(t, err)
	}

	scheduler := schedule.NewScheduler(schedule.Options{
		Domain: dom,
		Policy: schedule.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Jitter:      0.1,
		},
		MaxParallel: 4,
		WaitBudget:  func(int) time.Duration { return 100 * time.Millisecond },
	})

	return Options{
		Domain:    dom,
		Factory:   factory,
		Resolver:  stubResolver{},
		Rules:     rules,
		Scheduler: scheduler,
		MaxScopes: 2,
	}
}

func vpcScopeClients(protectedVPCName string) (*stubClient, *stubClient) {
	instances := newStubClient("ec2_instance",
		types.Resource{ID: "i-1", Name: "web"},
		types.Resource{ID: "i-2", Name: "worker"},
	)
	vpcs := newStubClient("vpc",
		types.Resource{ID: "vpc-1", Name: protectedVPCName},
		types.Resource{ID: "vpc-2", Name: "scratch"},
	)
	return instances, vpcs
}

func TestRun_DeletesEverythingExceptProtected(t *testing.T) {
	dom, err := domain.Lookup("vpc")
	require.NoError(t, err)
	rules, err := protect.NewRules(dom, []string{"keep-me"}, nil, nil)
	require.NoError(t, err)

	instances, vpcs := vpcScopeClients("keep-me")
	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)

	orch, err := New(testOptions(t, "vpc", factory, rules))
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", []types.Scope{scopeA})
	require.NoError(t, err)

	assert.Equal(t, types.Totals{Deleted: 3, Protected: 1}, rep.Totals)
	assert.True(t, rep.Clean())

	// The protected VPC was never handed to the deleter.
	assert.Zero(t, vpcs.calls("vpc-1"))
	assert.Equal(t, 1, vpcs.calls("vpc-2"))
	assert.Equal(t, 1, instances.calls("i-1"))
	assert.Equal(t, 1, instances.calls("i-2"))
}

func TestRun_UnreachableScopeSkippedOthersProceed(t *testing.T) {
	instances, vpcs := vpcScopeClients("keep-me")
	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)
	factory.unreachable[scopeB] = true

	orch, err := New(testOptions(t, "vpc", factory, nil))
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", []types.Scope{scopeA, scopeB})
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Totals.Deleted)

	found := false
	for _, sr := range rep.PerScope {
		if sr.Scope == scopeB {
			found = true
			assert.True(t, sr.Skipped)
			assert.Contains(t, sr.SkipReason, "unreachable")
		}
	}
	require.True(t, found, "scope B missing from report")
}

func TestRun_AllScopesUnreachable(t *testing.T) {
	factory := newStubFactory()
	factory.unreachable[scopeA] = true
	factory.unreachable[scopeB] = true

	orch, err := New(testOptions(t, "vpc", factory, nil))
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", []types.Scope{scopeA, scopeB})
	require.ErrorIs(t, err, ErrNoReachableScopes)
	require.NotNil(t, rep)
	assert.Zero(t, rep.Totals.Sum())
	assert.True(t, rep.PerScope[0].Skipped)
	assert.True(t, rep.PerScope[1].Skipped)
}

func TestRun_EmptyScopeSetSucceedsTrivially(t *testing.T) {
	orch, err := New(testOptions(t, "vpc", newStubFactory(), nil))
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.Zero(t, rep.Totals.Sum())
	assert.True(t, rep.Clean())
}

func TestRun_GateDeclinedAbortsPendingWork(t *testing.T) {
	instances, vpcs := vpcScopeClients("scratch-2")
	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)

	var gotPlan Plan
	opts := testOptions(t, "vpc", factory, nil)
	opts.Gate = GateFunc(func(_ context.Context, plan Plan) (Decision, error) {
		gotPlan = plan
		return Abort, nil
	})

	orch, err := New(opts)
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", []types.Scope{scopeA})
	require.NoError(t, err)

	assert.Equal(t, 4, gotPlan.ToDelete)
	assert.Equal(t, "vpc", gotPlan.Domain)

	assert.Zero(t, rep.Totals.Deleted)
	assert.Zero(t, instances.calls("i-1"))
	assert.Zero(t, vpcs.calls("vpc-2"))
}

func TestRun_GateErrorFailsRun(t *testing.T) {
	instances, vpcs := vpcScopeClients("x")
	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)

	opts := testOptions(t, "vpc", factory, nil)
	opts.Gate = GateFunc(func(context.Context, Plan) (Decision, error) {
		return Abort, errors.New("stdin closed")
	})

	orch, err := New(opts)
	require.NoError(t, err)

	_, err = orch.Run(context.Background(), "run-1", []types.Scope{scopeA})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation gate")
	assert.Zero(t, instances.calls("i-1"))
}

func TestRun_FailedDeletionReportedNotFatal(t *testing.T) {
	instances, vpcs := vpcScopeClients("keep-me")
	instances.failIDs["i-2"] = true
	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)

	orch, err := New(testOptions(t, "vpc", factory, nil))
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", []types.Scope{scopeA})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Totals.Failed)
	assert.Equal(t, 3, rep.Totals.Deleted)
	assert.False(t, rep.Clean())
	require.Len(t, rep.Failed(), 1)
	assert.Equal(t, "i-2", rep.Failed()[0].ResourceID)
}

func TestRun_ScopesRunConcurrently(t *testing.T) {
	gauge := &inFlightGauge{}
	factory := newStubFactory()
	for _, s := range []types.Scope{scopeA, scopeB} {
		client := newStubClient("eks_cluster", types.Resource{ID: "prod", Name: "prod"})
		client.deleteDelay = 30 * time.Millisecond
		client.inFlight = gauge
		factory.add(s, client)
	}

	orch, err := New(testOptions(t, "eks", factory, nil))
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", []types.Scope{scopeA, scopeB})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Totals.Deleted)
	assert.Equal(t, int64(2), gauge.peak.Load())
}

func TestRun_ScopeCeilingOfOneSerializes(t *testing.T) {
	gauge := &inFlightGauge{}
	factory := newStubFactory()
	for _, s := range []types.Scope{scopeA, scopeB} {
		client := newStubClient("eks_cluster", types.Resource{ID: "prod", Name: "prod"})
		client.deleteDelay = 30 * time.Millisecond
		client.inFlight = gauge
		factory.add(s, client)
	}

	opts := testOptions(t, "eks", factory, nil)
	opts.MaxScopes = 1

	orch, err := New(opts)
	require.NoError(t, err)

	rep, err := orch.Run(context.Background(), "run-1", []types.Scope{scopeA, scopeB})
	require.NoError(t, err)

	// Both scopes complete, but never overlap.
	assert.Equal(t, 2, rep.Totals.Deleted)
	assert.Equal(t, int64(1), gauge.peak.Load())
}

func TestRun_AuditTrailRecordsSchedulerTransitions(t *testing.T) {
	dom, err := domain.Lookup("vpc")
	require.NoError(t, err)
	rules, err := protect.NewRules(dom, []string{"keep-me"}, nil, nil)
	require.NoError(t, err)

	instances, vpcs := vpcScopeClients("keep-me")
	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)

	audit, err := auditlog.Open(t.TempDir(), "run-1")
	require.NoError(t, err)

	opts := testOptions(t, "vpc", factory, rules)
	opts.Audit = audit

	orch, err := New(opts)
	require.NoError(t, err)

	_, err = orch.Run(context.Background(), "run-1", []types.Scope{scopeA})
	require.NoError(t, err)
	require.NoError(t, audit.Close())

	raw, err := os.ReadFile(audit.Path())
	require.NoError(t, err)
	trail := string(raw)

	// Run-level events and every per-resource transition land in the
	// same file.
	assert.Contains(t, trail, "run_start")
	assert.Contains(t, trail, "run_finished")
	assert.Contains(t, trail, "attempting scope=111111111111/us-east-1 type=ec2_instance id=i-1")
	assert.Contains(t, trail, "deleted    scope=111111111111/us-east-1 type=vpc id=vpc-2")
	assert.Contains(t, trail, "protected  scope=111111111111/us-east-1 type=vpc id=vpc-1")
}

func TestRun_CancellationDrainsInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	instances := newStubClient("ec2_instance", types.Resource{ID: "i-1", Name: "web"})
	instances.onDelete = func(string) { cancel() }
	vpcs := newStubClient("vpc", types.Resource{ID: "vpc-1", Name: "scratch"})

	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)

	orch, err := New(testOptions(t, "vpc", factory, nil))
	require.NoError(t, err)

	rep, err := orch.Run(ctx, "run-1", []types.Scope{scopeA})
	require.NoError(t, err)

	// Tier 0 drained to completion; the queued vpc tier was discarded.
	assert.Equal(t, 1, rep.Totals.Deleted)
	assert.Zero(t, vpcs.calls("vpc-1"))
}

func TestPlan_DryRunDeletesNothing(t *testing.T) {
	dom, err := domain.Lookup("vpc")
	require.NoError(t, err)
	rules, err := protect.NewRules(dom, []string{"keep-me"}, nil, nil)
	require.NoError(t, err)

	instances, vpcs := vpcScopeClients("keep-me")
	factory := newStubFactory()
	factory.add(scopeA, instances, vpcs)

	orch, err := New(testOptions(t, "vpc", factory, rules))
	require.NoError(t, err)

	plan, rep, err := orch.Plan(context.Background(), []types.Scope{scopeA})
	require.NoError(t, err)

	assert.Equal(t, 3, plan.ToDelete)
	assert.Equal(t, 1, plan.Protected)
	assert.Equal(t, types.Totals{Protected: 1}, rep.Totals)

	assert.Zero(t, instances.calls("i-1"))
	assert.Zero(t, instances.calls("i-2"))
	assert.Zero(t, vpcs.calls("vpc-2"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	opts := testOptions(t, "vpc", newStubFactory(), nil)
	opts.Scheduler = nil
	_, err = New(opts)
	assert.Error(t, err)
}
