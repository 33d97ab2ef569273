package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance POOL_ID",
	Short: "Narrow the free-space spread across a pool's volumes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolvePool("rebalance", args[0])
		if err != nil {
			return err
		}

		moves, err := p.Rebalancer.Rebalance()
		if err != nil {
			return fmt.Errorf("rebalance failed: %w", err)
		}
		if len(moves) == 0 {
			fmt.Println("Pool is already balanced")
			return nil
		}
		for _, m := range moves {
			fmt.Printf("%-40s %-20s -> %-20s %s\n", m.Path, m.From.Label, m.To.Label, m.Size.Format())
		}
		return nil
	},
}
