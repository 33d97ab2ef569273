package main

import (
	"fmt"

	"github.com/cuemby/poolfs/pkg/capability"
	"github.com/cuemby/poolfs/pkg/log"
	"github.com/cuemby/poolfs/pkg/poolmanager"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/spf13/cobra"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Create, delete, and reshape pools",
}

func newManager() *poolmanager.Manager {
	return poolmanager.New(capability.DefaultFreeSpaceProbe(), log.NewZerologSink("pool"))
}

var poolCreateCmd = &cobra.Command{
	Use:   "create NAME --mount-point PATH --drive PATH [--drive PATH...]",
	Short: "Create a new pool spanning the given drives",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mountPoint, _ := cmd.Flags().GetString("mount-point")
		drives, _ := cmd.Flags().GetStringArray("drive")

		name, err := pooltypes.NewPoolName(args[0])
		if err != nil {
			return err
		}

		m := newManager()
		pool, err := m.CreatePool(name, mountPoint, drives)
		if err != nil {
			return fmt.Errorf("create failed: %w", err)
		}
		fmt.Printf("Pool created: %s\n", pool.ID.String())
		for _, v := range pool.Volumes {
			fmt.Printf("  %s\n", v.Root)
		}
		return nil
	},
}

var poolDeleteCmd = &cobra.Command{
	Use:   "delete POOL_ID",
	Short: "Delete a pool's descriptors, optionally its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removeData, _ := cmd.Flags().GetBool("remove-data")
		p, err := resolvePool("pool", args[0])
		if err != nil {
			return err
		}
		if err := newManager().DeletePool(p.Pool, removeData); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Pool deleted: %s\n", args[0])
		return nil
	},
}

var poolAddDriveCmd = &cobra.Command{
	Use:   "add-drive POOL_ID DRIVE_PATH",
	Short: "Add a drive to an existing pool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolvePool("pool", args[0])
		if err != nil {
			return err
		}
		vol, err := newManager().AddDrive(p.Pool, args[1])
		if err != nil {
			return fmt.Errorf("add-drive failed: %w", err)
		}
		fmt.Printf("Drive added: %s\n", vol.Root)
		return nil
	},
}

var poolRemoveDriveCmd = &cobra.Command{
	Use:   "remove-drive POOL_ID DRIVE_PATH",
	Short: "Remove a drive from a pool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		autoBalance, _ := cmd.Flags().GetBool("auto-balance")
		p, err := resolvePool("pool", args[0])
		if err != nil {
			return err
		}
		target := p.Pool.VolumeByRoot(args[1])
		if target == nil {
			return fmt.Errorf("no volume at %q in pool %s", args[1], args[0])
		}
		if err := newManager().RemoveDrive(p.Pool, target, poolmanager.RemoveOptions{AutoBalance: autoBalance}); err != nil {
			return fmt.Errorf("remove-drive failed: %w", err)
		}
		fmt.Printf("Drive removed: %s\n", args[1])
		return nil
	},
}

var poolReplaceDriveCmd = &cobra.Command{
	Use:   "replace-drive POOL_ID OLD_DRIVE_PATH NEW_DRIVE_PATH",
	Short: "Replace a drive, migrating its data and optionally rebalancing",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rebalance, _ := cmd.Flags().GetBool("rebalance")
		p, err := resolvePool("pool", args[0])
		if err != nil {
			return err
		}
		old := p.Pool.VolumeByRoot(args[1])
		if old == nil {
			return fmt.Errorf("no volume at %q in pool %s", args[1], args[0])
		}
		if err := newManager().ReplaceDrive(p.Pool, old, args[2], poolmanager.ReplaceOptions{Rebalance: rebalance}); err != nil {
			return fmt.Errorf("replace-drive failed: %w", err)
		}
		fmt.Printf("Drive replaced: %s -> %s\n", args[1], args[2])
		return nil
	},
}

var poolCheckSpaceCmd = &cobra.Command{
	Use:   "check-space POOL_ID DRIVE_PATH",
	Short: "Check whether removing DRIVE_PATH would exceed remaining free space",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolvePool("pool", args[0])
		if err != nil {
			return err
		}
		target := p.Pool.VolumeByRoot(args[1])
		if target == nil {
			return fmt.Errorf("no volume at %q in pool %s", args[1], args[0])
		}
		check, err := newManager().CheckSpaceForDriveRemoval(p.Pool, target)
		if err != nil {
			return fmt.Errorf("check-space failed: %w", err)
		}
		fmt.Printf("required:  %s\n", check.Required.Format())
		fmt.Printf("available: %s\n", check.Available.Format())
		fmt.Printf("can remove: %v\n", check.CanRemove)
		if !check.CanRemove {
			fmt.Printf("shortfall: %s\n", check.Shortfall.Format())
		}
		fmt.Println(check.Recommendation)
		return nil
	},
}

func init() {
	poolCreateCmd.Flags().String("mount-point", "", "Virtual mount point the pool presents (informational)")
	poolCreateCmd.Flags().StringArray("drive", nil, "A drive path to include in the pool (repeatable, at least one required)")

	poolDeleteCmd.Flags().Bool("remove-data", false, "Also delete each volume's data directory")

	poolRemoveDriveCmd.Flags().Bool("auto-balance", false, "Migrate files off the drive before removing it")

	poolReplaceDriveCmd.Flags().Bool("rebalance", false, "Run the rebalancer after the new drive is added")

	poolCmd.AddCommand(poolCreateCmd)
	poolCmd.AddCommand(poolDeleteCmd)
	poolCmd.AddCommand(poolAddDriveCmd)
	poolCmd.AddCommand(poolRemoveDriveCmd)
	poolCmd.AddCommand(poolReplaceDriveCmd)
	poolCmd.AddCommand(poolCheckSpaceCmd)
}
