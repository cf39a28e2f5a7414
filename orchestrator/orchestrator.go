// Package orchestrator coordinates a teardown run: discovery across
// scopes, protection filtering, operator confirmation, tier-ordered
// deletion, and report finalization.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/purku/auditlog"
	"github.com/yairfalse/purku/domain"
	"github.com/yairfalse/purku/protect"
	"github.com/yairfalse/purku/providers"
	"github.com/yairfalse/purku/report"
	"github.com/yairfalse/purku/schedule"
	"github.com/yairfalse/purku/scope"
	"github.com/yairfalse/purku/telemetry"
	"github.com/yairfalse/purku/types"
)

// ErrNoReachableScopes marks a run where every requested scope failed
// discovery. The run as a whole fails only in this case.
var ErrNoReachableScopes = errors.New("no requested scope was reachable")

// Options configure an Orchestrator.
type Options struct {
	Domain    *domain.Domain
	Factory   providers.Factory
	Resolver  scope.CredentialResolver
	Rules     *protect.Rules
	Gate      Gate
	Scheduler *schedule.Scheduler
	Audit     *auditlog.Log // nil disables the audit trail
	Metrics   *telemetry.RunMetrics
	MaxScopes int
}

// Orchestrator runs teardowns. All per-run mutable state lives in the
// run's collector; the orchestrator itself is reusable.
type Orchestrator struct {
	opts   Options
	logger *telemetry.Logger
	tracer trace.Tracer
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Domain == nil {
		return nil, fmt.Errorf("domain is required")
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("client factory is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("credential resolver is required")
	}
	if opts.Rules == nil {
		return nil, fmt.Errorf("protection rules are required")
	}
	if opts.Gate == nil {
		opts.Gate = AutoApprove()
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if opts.MaxScopes <= 0 {
		opts.MaxScopes = 3
	}
	if opts.Audit != nil {
		// The scheduler emits the per-resource transition lines; the
		// orchestrator only writes run-level events and protected
		// outcomes. Both feed the same trail.
		opts.Scheduler.SetAuditor(opts.Audit)
	}
	return &Orchestrator{
		opts:   opts,
		logger: telemetry.NewLogger("orchestrator"),
		tracer: otel.Tracer("purku.orchestrator"),
	}, nil
}

// scopeState is one reachable scope's discovery result, carried from
// the discovery phase into the execution phase.
type scopeState struct {
	scope    types.Scope
	clients  map[string]providers.ResourceClient
	toDelete []types.Resource
}

// Run executes one end-to-end teardown across the given scopes and
// returns the finalized report. A scope-level failure never halts the
// run; the returned error is non-nil only when the run itself failed
// (every scope unreachable, or the gate errored).
func (o *Orchestrator) Run(ctx context.Context, runID string, scopes []types.Scope) (*report.RunReport, error) {
	ctx, span := o.tracer.Start(ctx, "teardown.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("domain", o.opts.Domain.Name),
			attribute.Int("scopes.requested", len(scopes))))
	defer span.End()

	collector := report.NewCollector(o.opts.Domain.Name, scopes)
	o.auditEvent("run_start", "-", fmt.Sprintf("domain=%s scopes=%d", o.opts.Domain.Name, len(scopes)))

	if len(scopes) == 0 {
		o.logger.WithContext(ctx).Info().Msg("empty scope set, run completes trivially")
		return o.finish(collector, runID), nil
	}

	states := o.discoverAll(ctx, scopes, collector)

	if len(states) == 0 {
		o.auditEvent("run_failed", "-", "no reachable scopes")
		return o.finish(collector, runID), ErrNoReachableScopes
	}

	plan := o.buildPlan(scopes, states, collector)

	if plan.ToDelete > 0 {
		decision, err := o.opts.Gate.Confirm(ctx, plan)
		if err != nil {
			o.auditEvent("confirmation_error", "-", err.Error())
			return o.finish(collector, runID), fmt.Errorf("confirmation gate: %w", err)
		}
		if decision != Proceed {
			// Declining aborts only pending deletion work; the
			// discovery results already recorded stand.
			o.auditEvent("confirmation_declined", "-", "pending tiers aborted")
			o.logger.WithContext(ctx).Warn().Msg("operator declined, no deletions performed")
			return o.finish(collector, runID), nil
		}
	}

	o.executeAll(ctx, states, collector)

	return o.finish(collector, runID), nil
}

// Plan discovers and filters without deleting anything: the dry run.
func (o *Orchestrator) Plan(ctx context.Context, scopes []types.Scope) (Plan, *report.RunReport, error) {
	collector := report.NewCollector(o.opts.Domain.Name, scopes)

	states := o.discoverAll(ctx, scopes, collector)
	if len(scopes) > 0 && len(states) == 0 {
		return Plan{}, o.finish(collector, "plan"), ErrNoReachableScopes
	}

	plan := o.buildPlan(scopes, states, collector)
	return plan, o.finish(collector, "plan"), nil
}

// discoverAll runs discovery and filtering for every scope under the
// scope pool bound. Unreachable scopes are marked Skipped and the run
// continues with the rest.
func (o *Orchestrator) discoverAll(ctx context.Context, scopes []types.Scope, collector *report.Collector) []*scopeState {
	sem := make(chan struct{}, o.opts.MaxScopes)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var states []*scopeState

	for _, s := range scopes {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(s types.Scope) {
			defer wg.Done()
			defer func() { <-sem }()

			state, err := o.discoverScope(ctx, s, collector)
			if err != nil {
				collector.MarkScopeSkipped(s, err.Error())
				o.auditEvent("scope_skipped", s.String(), err.Error())
				o.logger.WithContext(ctx).Warn().
					Str("scope", s.String()).
					Err(err).
					Msg("scope skipped")
				return
			}

			mu.Lock()
			states = append(states, state)
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	return states
}

func (o *Orchestrator) discoverScope(ctx context.Context, s types.Scope, collector *report.Collector) (*scopeState, error) {
	ctx, span := o.tracer.Start(ctx, "teardown.discover",
		trace.WithAttributes(attribute.String("scope", s.String())))
	defer span.End()

	creds, err := o.opts.Resolver.Resolve(ctx, s.AccountID)
	if err != nil {
		return nil, &types.ScopeUnreachableError{Scope: s, Err: err}
	}

	clientList, err := o.opts.Factory.Clients(ctx, s, creds)
	if err != nil {
		var unreachable *types.ScopeUnreachableError
		if errors.As(err, &unreachable) {
			return nil, err
		}
		return nil, &types.ScopeUnreachableError{Scope: s, Err: err}
	}

	resources, err := providers.Discover(ctx, o.opts.Domain, clientList)
	if err != nil {
		return nil, &types.ScopeUnreachableError{Scope: s, Err: err}
	}

	toDelete, protected, err := o.opts.Rules.Partition(ctx, resources)
	if err != nil {
		return nil, &types.ScopeUnreachableError{Scope: s, Err: err}
	}

	// Protected resources never reach the deletion executor but are
	// still recorded for audit completeness.
	for _, res := range protected {
		outcome := types.Outcome{
			ResourceID: res.ID,
			Type:       res.Type,
			Name:       res.Name,
			Scope:      s,
			Tier:       res.Tier,
			Status:     types.StatusProtected,
		}
		collector.Record(outcome)
		if o.opts.Audit != nil {
			o.opts.Audit.Transition(s, res, types.StatusProtected, "preservation rule")
		}
		o.opts.Metrics.RecordOutcome(ctx, o.opts.Domain.Name, string(types.StatusProtected))
	}

	clients := make(map[string]providers.ResourceClient, len(clientList))
	for _, c := range clientList {
		clients[c.Type()] = c
	}

	o.logger.WithContext(ctx).Info().
		Str("scope", s.String()).
		Int("to_delete", len(toDelete)).
		Int("protected", len(protected)).
		Msg("scope discovered")

	return &scopeState{scope: s, clients: clients, toDelete: toDelete}, nil
}

func (o *Orchestrator) buildPlan(scopes []types.Scope, states []*scopeState, collector *report.Collector) Plan {
	plan := Plan{
		Domain: o.opts.Domain.Name,
		Scopes: scopes,
	}
	for _, st := range states {
		plan.ToDelete += len(st.toDelete)
	}
	plan.Protected = collector.Totals().Protected
	return plan
}

// executeAll runs the tier state machine for every reachable scope
// under the scope pool bound. In-flight scopes drain on cancellation.
func (o *Orchestrator) executeAll(ctx context.Context, states []*scopeState, collector *report.Collector) {
	sem := make(chan struct{}, o.opts.MaxScopes)
	var wg sync.WaitGroup

	for _, st := range states {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(st *scopeState) {
			defer wg.Done()
			defer func() { <-sem }()

			o.opts.Metrics.ScopeStarted(ctx)
			defer o.opts.Metrics.ScopeFinished(ctx)

			sctx, span := o.tracer.Start(ctx, "teardown.scope",
				trace.WithAttributes(attribute.String("scope", st.scope.String())))
			defer span.End()

			if err := o.opts.Scheduler.RunScope(sctx, st.scope, st.toDelete, st.clients, collector); err != nil {
				o.logger.WithContext(sctx).Warn().
					Str("scope", st.scope.String()).
					Err(err).
					Msg("scope cancelled before completion")
			}
		}(st)
	}
	wg.Wait()
}

func (o *Orchestrator) finish(collector *report.Collector, runID string) *report.RunReport {
	r := collector.Finalize(runID)
	o.auditEvent("run_finished", "-", fmt.Sprintf(
		"deleted=%d failed=%d skipped=%d protected=%d",
		r.Totals.Deleted, r.Totals.Failed, r.Totals.Skipped, r.Totals.Protected))
	return r
}

func (o *Orchestrator) auditEvent(event, scopeKey, detail string) {
	if o.opts.Audit != nil {
		o.opts.Audit.Event(event, scopeKey, detail)
	}
}
