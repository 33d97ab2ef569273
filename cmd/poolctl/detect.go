package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect pools across the configured mount roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		pools, err := detectAll("detect")
		if err != nil {
			return fmt.Errorf("detect failed: %w", err)
		}
		if len(pools) == 0 {
			fmt.Println("No pools found")
			return nil
		}

		fmt.Printf("%-38s %-20s %-8s %-12s %s\n", "POOL ID", "LABEL", "VOLUMES", "TOTAL", "FREE")
		fmt.Println(strings.Repeat("-", 100))
		for _, p := range pools {
			label := ""
			if len(p.Pool.Volumes) > 0 {
				label = p.Pool.Volumes[0].Label
			}
			fmt.Printf("%-38s %-20s %-8d %-12s %s\n",
				p.Pool.ID.String(), label, len(p.Pool.Volumes),
				p.Pool.BytesTotal().Format(), p.Pool.BytesFree().Format())
		}
		return nil
	},
}
