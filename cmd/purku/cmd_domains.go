package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/purku/domain"
)

// domainsCmd represents the domains command
var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Show supported domains and their tier order",
	Long: `List every teardown domain with its tier table: which resource
types belong to which tier, in deletion order, and the per-tier wait
budget. Types listed as preserved are never deleted.`,
	RunE: runDomains,
}

func init() {
	rootCmd.AddCommand(domainsCmd)
}

func runDomains(cmd *cobra.Command, args []string) error {
	for _, name := range domain.Names() {
		d, err := domain.Lookup(name)
		if err != nil {
			return err
		}

		fmt.Printf("%s", d.Name)
		if d.Global {
			fmt.Print(" (global)")
		}
		fmt.Println()

		for _, tier := range d.Tiers {
			fmt.Printf("  tier %d (wait %s):", tier.Level, tier.WaitBudget)
			for _, typ := range tier.Types {
				fmt.Printf(" %s", typ)
			}
			fmt.Println()
		}
		for _, typ := range d.PreserveTypes {
			fmt.Printf("  preserved: %s\n", typ)
		}
		fmt.Println()
	}
	return nil
}
