package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/purku/orchestrator"
	"github.com/yairfalse/purku/report"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a teardown would delete, without deleting",
	Long: `Run discovery and protection filtering across every configured
scope and print the resulting deletion plan. Nothing is deleted; no
confirmation is asked.`,
	Example: `  purku plan
  purku plan -c staging.yaml`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	rt.opts.Gate = orchestrator.AutoApprove()
	orch, err := orchestrator.New(rt.opts)
	if err != nil {
		return err
	}

	plan, rep, err := orch.Plan(ctx, rt.scopes)
	if err != nil {
		return err
	}

	fmt.Printf("Domain %s: %d resources to delete, %d protected, across %d scopes\n\n",
		plan.Domain, plan.ToDelete, plan.Protected, len(plan.Scopes))
	report.WriteSummary(os.Stdout, rep)
	return nil
}
