package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/yairfalse/purku/domain"
	"github.com/yairfalse/purku/providers"
	"github.com/yairfalse/purku/telemetry"
	"github.com/yairfalse/purku/types"
)

// Sink receives outcome records as they change. Records for the same
// resource key replace one another; the sink never sees duplicates as
// separate resources.
type Sink interface {
	Record(outcome types.Outcome)
}

// Auditor receives one call per state transition for the plain-text
// audit trail. May be nil.
type Auditor interface {
	Transition(scope types.Scope, res types.Resource, status types.OutcomeStatus, detail string)
}

// Options configure a Scheduler.
type Options struct {
	Domain      *domain.Domain
	Policy      Policy
	MaxParallel int
	// WaitBudget overrides the domain's per-tier wait budget.
	// Used by tests; nil means Domain.WaitBudgetFor.
	WaitBudget func(tier int) time.Duration
	Auditor    Auditor
	Metrics    *telemetry.RunMetrics
}

// Scheduler executes the teardown state machine for one scope at a
// time. It holds no per-run mutable state and is safe for concurrent
// RunScope calls from different scope workers.
type Scheduler struct {
	dom         *domain.Domain
	policy      Policy
	maxParallel int
	waitBudget  func(tier int) time.Duration
	auditor     Auditor
	metrics     *telemetry.RunMetrics
	logger      *telemetry.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(opts Options) *Scheduler {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 8
	}
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = DefaultPolicy()
	}
	wb := opts.WaitBudget
	if wb == nil {
		wb = opts.Domain.WaitBudgetFor
	}
	return &Scheduler{
		dom:         opts.Domain,
		policy:      opts.Policy,
		maxParallel: opts.MaxParallel,
		waitBudget:  wb,
		auditor:     opts.Auditor,
		metrics:     opts.Metrics,
		logger:      telemetry.NewLogger("scheduler"),
	}
}

// SetAuditor attaches the transition auditor after construction.
// Must be called before the first RunScope.
func (s *Scheduler) SetAuditor(a Auditor) {
	s.auditor = a
}

// RunScope tears down one scope's resources tier by tier. Tiers run
// strictly sequentially; siblings within a tier run concurrently up
// to the parallelism bound with no ordering guarantee. Cancellation
// is observed at tier boundaries and before dispatching each worker;
// in-flight work always drains before the scope is marked complete.
func (s *Scheduler) RunScope(ctx context.Context, scope types.Scope, resources []types.Resource, clients map[string]providers.ResourceClient, sink Sink) error {
	tiers := groupByTier(resources)

	for _, tier := range tiers {
		if err := ctx.Err(); err != nil {
			// Queued tiers are discarded, nothing in flight.
			return err
		}

		start := time.Now()
		s.runTier(ctx, scope, tier, clients, sink)
		s.metrics.ObserveTier(ctx, s.dom.Name, tier.level, time.Since(start))
	}

	return ctx.Err()
}

type tierGroup struct {
	level     int
	resources []types.Resource
}

func groupByTier(resources []types.Resource) []tierGroup {
	byLevel := make(map[int][]types.Resource)
	for _, r := range resources {
		byLevel[r.Tier] = append(byLevel[r.Tier], r)
	}

	levels := make([]int, 0, len(byLevel))
	for level := range byLevel {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	tiers := make([]tierGroup, 0, len(levels))
	for _, level := range levels {
		tiers = append(tiers, tierGroup{level: level, resources: byLevel[level]})
	}
	return tiers
}

// runTier dispatches one worker per resource under the parallelism
// bound and waits for every sibling to reach a terminal state. A
// failed sibling never halts the rest of the tier.
func (s *Scheduler) runTier(ctx context.Context, scope types.Scope, tier tierGroup, clients map[string]providers.ResourceClient, sink Sink) {
	sem := make(chan struct{}, s.maxParallel)
	var wg sync.WaitGroup

	for _, res := range tier.resources {
		if ctx.Err() != nil {
			// Undispatched siblings are discarded; dispatched ones drain.
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(res types.Resource) {
			defer wg.Done()
			defer func() { <-sem }()

			// Once dispatched, a deletion finishes naturally rather
			// than being hard-aborted mid-call, so no resource is
			// left in an unknown state.
			s.teardownOne(context.WithoutCancel(ctx), scope, res, clients[res.Type], sink)
		}(res)
	}

	wg.Wait()
}

// teardownOne drives one resource Pending → Attempting → terminal.
func (s *Scheduler) teardownOne(ctx context.Context, scope types.Scope, res types.Resource, client providers.ResourceClient, sink Sink) {
	start := time.Now()
	outcome := types.Outcome{
		ResourceID: res.ID,
		Type:       res.Type,
		Name:       res.Name,
		Scope:      scope,
		Tier:       res.Tier,
		Status:     types.StatusAttempting,
	}

	finish := func(status types.OutcomeStatus, attempts int, detail string) {
		outcome.Status = status
		outcome.Attempts = attempts
		outcome.Error = detail
		outcome.DurationMs = time.Since(start).Milliseconds()
		sink.Record(outcome)
		s.audit(scope, res, status, detail)
		s.metrics.RecordOutcome(ctx, s.dom.Name, string(status))
	}

	if client == nil {
		finish(types.StatusFailed, 0, fmt.Sprintf("no client for type %s", res.Type))
		return
	}

	sink.Record(outcome)
	s.audit(scope, res, types.StatusAttempting, "")

	// Re-running the orchestrator is idempotent: a resource a prior
	// run already removed is recorded as Skipped, not re-deleted.
	exists, err := client.Exists(ctx, res.ID)
	if err == nil && !exists {
		finish(types.StatusSkipped, 0, "already absent")
		return
	}

	budget := s.waitBudget(res.Tier)
	s.awaitSettled(ctx, res, client, budget)

	attempts, err := s.deleteWithRetry(ctx, res, client)
	if err != nil {
		finish(types.StatusFailed, attempts, err.Error())
		return
	}

	if err := s.confirmAbsence(ctx, res, client, budget); err != nil {
		finish(types.StatusFailed, attempts, err.Error())
		return
	}

	finish(types.StatusDeleted, attempts, "")
}

// awaitSettled polls a mid-transition resource (creating, modifying)
// until it settles or the tier wait budget runs out, then proceeds
// either way.
func (s *Scheduler) awaitSettled(ctx context.Context, res types.Resource, client providers.ResourceClient, budget time.Duration) {
	prober, ok := client.(providers.TransitionProber)
	if !ok {
		return
	}

	operation := func() (struct{}, error) {
		busy, err := prober.InTransition(ctx, res.ID)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if busy {
			return struct{}{}, fmt.Errorf("resource %s still in transition", res.ID)
		}
		return struct{}{}, nil
	}

	if _, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.policy.newBackOff()),
		backoff.WithMaxElapsedTime(budget),
	); err != nil {
		s.logger.Warn().
			Str("resource_id", res.ID).
			Str("type", res.Type).
			Dur("budget", budget).
			Msg("settle wait exhausted, proceeding with delete")
	}
}

// deleteWithRetry issues the delete call, retrying transient failures
// (throttling, dependency violations that a sibling deletion may
// resolve) up to the policy's attempt budget. Returns the number of
// delete calls issued.
func (s *Scheduler) deleteWithRetry(ctx context.Context, res types.Resource, client providers.ResourceClient) (int, error) {
	attempts := 0

	operation := func() (struct{}, error) {
		attempts++
		err := client.Delete(ctx, res.ID)
		if err == nil {
			return struct{}{}, nil
		}
		if types.IsNotFound(err) {
			// Deleted out from under us, likely by a cascading parent.
			return struct{}{}, nil
		}
		if types.IsPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		s.logger.Debug().
			Str("resource_id", res.ID).
			Str("type", res.Type).
			Int("attempt", attempts).
			Err(err).
			Msg("delete failed, will retry")
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.policy.newBackOff()),
		backoff.WithMaxTries(uint(s.policy.MaxAttempts)),
	)
	if err != nil {
		return attempts, fmt.Errorf("delete failed after %d attempts: %w", attempts, err)
	}
	return attempts, nil
}

// confirmAbsence polls for terminal absence after the delete call. A
// timeout without confirmed absence is a failure, never silently
// promoted to Deleted.
func (s *Scheduler) confirmAbsence(ctx context.Context, res types.Resource, client providers.ResourceClient, budget time.Duration) error {
	operation := func() (struct{}, error) {
		exists, err := client.Exists(ctx, res.ID)
		if err != nil {
			if types.IsNotFound(err) {
				return struct{}{}, nil
			}
			return struct{}{}, err
		}
		if exists {
			return struct{}{}, fmt.Errorf("resource %s still present", res.ID)
		}
		return struct{}{}, nil
	}

	if _, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.policy.newBackOff()),
		backoff.WithMaxElapsedTime(budget),
	); err != nil {
		return fmt.Errorf("deletion unconfirmed within %s: %w", budget, err)
	}
	return nil
}

func (s *Scheduler) audit(scope types.Scope, res types.Resource, status types.OutcomeStatus, detail string) {
	if s.auditor != nil {
		s.auditor.Transition(scope, res, status, detail)
	}
}
