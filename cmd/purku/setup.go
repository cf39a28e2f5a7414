package main

import (
	"context"
	"fmt"

	"github.com/yairfalse/purku/config"
	"github.com/yairfalse/purku/domain"
	"github.com/yairfalse/purku/orchestrator"
	"github.com/yairfalse/purku/protect"
	"github.com/yairfalse/purku/providers"
	"github.com/yairfalse/purku/providers/aws"
	"github.com/yairfalse/purku/schedule"
	"github.com/yairfalse/purku/scope"
	"github.com/yairfalse/purku/telemetry"
	"github.com/yairfalse/purku/types"
)

// runtime is everything a run or plan needs, assembled from config.
type runtime struct {
	cfg     *config.Config
	dom     *domain.Domain
	scopes  []types.Scope
	opts    orchestrator.Options
	metrics *telemetry.RunMetrics
}

// buildRuntime loads the config and wires the whole teardown stack.
// The audit log and gate are left to the caller; plan runs need
// neither.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	dom, err := domain.Lookup(cfg.Domain)
	if err != nil {
		return nil, err
	}

	aws.RegisterAll()
	factory, err := providers.FactoryFor(cfg.Domain)
	if err != nil {
		return nil, err
	}

	resolver := scope.NewConfigResolver(cfg.Accounts)

	regions, err := scope.ParseSelection(cfg.Regions.Selection, cfg.Regions.Available)
	if err != nil {
		return nil, fmt.Errorf("bad region selection: %w", err)
	}

	accounts := make([]string, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts = append(accounts, a.ID)
	}

	enumerator := scope.NewEnumerator(resolver, telemetry.NewLogger("scope").Logger)
	scopes, err := enumerator.Enumerate(ctx, accounts, regions, dom.Global)
	if err != nil {
		return nil, err
	}

	rules, err := buildRules(ctx, cfg, dom)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewRunMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	scheduler := schedule.NewScheduler(schedule.Options{
		Domain: dom,
		Policy: schedule.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Jitter:      cfg.Retry.Jitter,
		},
		MaxParallel: cfg.Concurrency.MaxDeletes,
		Metrics:     metrics,
	})

	return &runtime{
		cfg:    cfg,
		dom:    dom,
		scopes: scopes,
		opts: orchestrator.Options{
			Domain:    dom,
			Factory:   factory,
			Resolver:  resolver,
			Rules:     rules,
			Scheduler: scheduler,
			Metrics:   metrics,
			MaxScopes: cfg.Concurrency.MaxScopes,
		},
		metrics: metrics,
	}, nil
}

func buildRules(ctx context.Context, cfg *config.Config, dom *domain.Domain) (*protect.Rules, error) {
	names := append(protect.DefaultNames(), cfg.Protection.Names...)

	var policy *protect.Policy
	if cfg.Protection.PolicyFile != "" {
		var err error
		policy, err = protect.LoadPolicy(ctx, cfg.Protection.PolicyFile)
		if err != nil {
			return nil, err
		}
	}

	return protect.NewRules(dom, names, cfg.Protection.Patterns, policy)
}
