package main

import (
	"fmt"
	"time"

	"github.com/cuemby/poolfs/pkg/audit"
	"github.com/cuemby/poolfs/pkg/repair"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair POOL_ID",
	Short: "Run one or more repair fixers over a pool",
	Long: `Run repair fixers over a pool. By default every fixer in
repair.AllFixers runs; pass --fixer one or more times to run a subset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringArray("fixer")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		record, _ := cmd.Flags().GetBool("record")

		p, err := resolvePool("repair", args[0])
		if err != nil {
			return err
		}

		fixers := repair.AllFixers
		if len(names) > 0 {
			fixers = make([]repair.FixerName, len(names))
			for i, n := range names {
				fixers[i] = repair.FixerName(n)
			}
		}

		if dryRun {
			fmt.Println("dry-run: would run fixers:")
			for _, f := range fixers {
				fmt.Printf("  %s\n", f)
			}
			return nil
		}

		started := time.Now()
		results, runErr := p.Repair.Run(fixers)

		total := 0
		var errMsgs []string
		for name, count := range results {
			fmt.Printf("%-40s %d repaired\n", name, count)
			total += count
		}
		if runErr != nil {
			errMsgs = append(errMsgs, runErr.Error())
		}

		if record {
			if err := recordRepairRun(p.Pool.ID.String(), fixers, total, errMsgs, time.Since(started)); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record repair run: %v\n", err)
			}
		}

		if runErr != nil {
			return fmt.Errorf("repair failed after applying %d fixes: %w", total, runErr)
		}
		return nil
	},
}

func init() {
	repairCmd.Flags().StringArray("fixer", nil, "Run only this fixer (repeatable); defaults to every fixer")
	repairCmd.Flags().Bool("dry-run", false, "List the fixers that would run without applying them")
	repairCmd.Flags().Bool("record", false, "Persist this run to the audit store")
}

func recordRepairRun(poolID string, fixers []repair.FixerName, issueCount int, errMsgs []string, dur time.Duration) error {
	store, err := auditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	names := make([]string, len(fixers))
	for i, f := range fixers {
		names[i] = string(f)
	}
	return store.RecordRepairRun(audit.RepairRun{
		ID:         uuid.NewString(),
		PoolID:     poolID,
		StartedAt:  time.Now().Add(-dur),
		Fixers:     names,
		IssueCount: issueCount,
		Errors:     errMsgs,
		DryRun:     false,
		Duration:   dur,
	})
}
