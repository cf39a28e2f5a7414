package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/purku/auditlog"
	"github.com/yairfalse/purku/orchestrator"
	"github.com/yairfalse/purku/report"
	"github.com/yairfalse/purku/telemetry"
)

var (
	teardownYes     bool
	teardownMetrics string
)

// teardownCmd represents the teardown command
var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Tear down resources across all configured scopes",
	Long: `Discover every resource of the configured domain in every
(account, region) scope, filter out protected resources, confirm the
plan with the operator, then delete tier by tier.

A scope that cannot be reached is skipped and reported; a failed
deletion never halts its siblings. The command exits non-zero when any
deletion failed or no scope was reachable.`,
	Example: `  purku teardown                      # interactive confirmation
  purku teardown --yes                # non-interactive
  purku teardown -c staging.yaml --yes`,
	RunE: runTeardown,
}

func init() {
	rootCmd.AddCommand(teardownCmd)

	teardownCmd.Flags().BoolVarP(&teardownYes, "yes", "y", false, "Skip the confirmation prompt")
	teardownCmd.Flags().StringVar(&teardownMetrics, "metrics", ":9090", "Metrics server address")
}

func runTeardown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	otelShutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "purku",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102-150405")

	audit, err := auditlog.Open(rt.cfg.Audit.Dir, runID)
	if err != nil {
		return err
	}
	defer func() { _ = audit.Close() }()

	rt.opts.Audit = audit
	if teardownYes {
		rt.opts.Gate = orchestrator.AutoApprove()
	} else {
		rt.opts.Gate = promptGate()
	}

	orch, err := orchestrator.New(rt.opts)
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", runID).
		Str("domain", rt.cfg.Domain).
		Int("scopes", len(rt.scopes)).
		Str("audit", audit.Path()).
		Msg("purku starting")

	var (
		g      run.Group
		rep    *report.RunReport
		runErr error
	)

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	metricsServer := &http.Server{
		Addr:              teardownMetrics,
		Handler:           metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Add(func() error {
		log.Info().Str("addr", teardownMetrics).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	})

	runCtx, runCancel := context.WithCancel(ctx)
	g.Add(func() error {
		rep, runErr = orch.Run(runCtx, runID, rt.scopes)
		return runErr
	}, func(error) {
		runCancel()
	})

	groupErr := g.Run()

	var sig run.SignalError
	if errors.As(groupErr, &sig) {
		log.Warn().Str("signal", sig.Signal.String()).Msg("cancelled, in-flight deletions drained")
	}

	if rep == nil {
		if runErr != nil {
			return runErr
		}
		return groupErr
	}

	report.WriteSummary(os.Stdout, rep)

	if err := archiveReport(rt.cfg.Report.Path, rep); err != nil {
		log.Error().Err(err).Msg("failed to archive report")
	}

	if errors.Is(runErr, orchestrator.ErrNoReachableScopes) {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if rep.Totals.Failed > 0 {
		return fmt.Errorf("%d deletions failed", rep.Totals.Failed)
	}
	return nil
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	if telemetry.PrometheusRegistry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(
			telemetry.PrometheusRegistry,
			promhttp.HandlerOpts{},
		))
	}
	return mux
}

func archiveReport(path string, rep *report.RunReport) error {
	store, err := report.OpenStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.Save(rep)
}

// promptGate asks the operator on stdin before any deletion starts.
// Anything other than an explicit yes aborts the pending work.
func promptGate() orchestrator.Gate {
	return orchestrator.GateFunc(func(_ context.Context, plan orchestrator.Plan) (orchestrator.Decision, error) {
		fmt.Printf("\nAbout to delete %d resources across %d scopes in domain %s (%d protected).\n",
			plan.ToDelete, len(plan.Scopes), plan.Domain, plan.Protected)
		fmt.Print("Proceed? [y/N]: ")

		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return orchestrator.Abort, fmt.Errorf("failed to read confirmation: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return orchestrator.Proceed, nil
		}
		return orchestrator.Abort, nil
	})
}
