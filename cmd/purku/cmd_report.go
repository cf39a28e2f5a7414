package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/purku/config"
	"github.com/yairfalse/purku/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "List archived runs or show one run in full",
	Long: `Without arguments, list every archived run with its totals.
With a run ID, print that run's full summary including per-scope
outcomes and the failure list.`,
	Example: `  purku report                 # list archived runs
  purku report 20260830-142501 # show one run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReportCmd,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := report.OpenStore(cfg.Report.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		rep, err := store.Get(args[0])
		if err != nil {
			return err
		}
		report.WriteSummary(os.Stdout, rep)
		return nil
	}

	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	for _, meta := range runs {
		fmt.Printf("%s  domain=%-4s scopes=%d  %s\n",
			meta.RunID, meta.Domain, meta.ScopesRequested,
			meta.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
