package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded check and repair runs",
}

var auditChecksCmd = &cobra.Command{
	Use:   "checks POOL_ID",
	Short: "List recorded check runs for a pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := auditStore()
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer store.Close()

		runs, err := store.ListCheckRuns(args[0])
		if err != nil {
			return fmt.Errorf("failed to list check runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No recorded check runs")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  deep=%v  issues=%d  duration=%s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Deep, len(r.Issues), r.Duration)
		}
		return nil
	},
}

var auditRepairsCmd = &cobra.Command{
	Use:   "repairs POOL_ID",
	Short: "List recorded repair runs for a pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := auditStore()
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRepairRuns(args[0])
		if err != nil {
			return fmt.Errorf("failed to list repair runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No recorded repair runs")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  fixers=%v  issues=%d  errors=%d  duration=%s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Fixers, r.IssueCount, len(r.Errors), r.Duration)
		}
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditChecksCmd)
	auditCmd.AddCommand(auditRepairsCmd)
}
