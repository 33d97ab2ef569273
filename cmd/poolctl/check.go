package main

import (
	"fmt"
	"time"

	"github.com/cuemby/poolfs/pkg/audit"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check POOL_ID",
	Short: "Run an integrity check over a pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deep, _ := cmd.Flags().GetBool("deep")
		record, _ := cmd.Flags().GetBool("record")

		p, err := resolvePool("check", args[0])
		if err != nil {
			return err
		}

		started := time.Now()
		issues, err := p.Integrity.Check(deep)
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}

		if record {
			if err := recordCheckRun(p.Pool.ID.String(), deep, issues, time.Since(started)); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record check run: %v\n", err)
			}
		}

		if len(issues) == 0 {
			fmt.Println("No issues found")
			return nil
		}
		for _, iss := range issues {
			fmt.Printf("%-22s %-30s %s\n", iss.Kind, iss.File.String(), iss.Message)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().Bool("deep", false, "Hash-verify file contents across shadow copies")
	checkCmd.Flags().Bool("record", false, "Persist this run to the audit store")
}

func recordCheckRun(poolID string, deep bool, issues []pooltypes.IntegrityIssue, dur time.Duration) error {
	store, err := auditStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordCheckRun(audit.CheckRun{
		ID:        uuid.NewString(),
		PoolID:    poolID,
		StartedAt: time.Now().Add(-dur),
		Deep:      deep,
		Issues:    issues,
		Duration:  dur,
	})
}
