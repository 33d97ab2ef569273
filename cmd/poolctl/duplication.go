package main

import (
	"fmt"
	"strconv"

	"github.com/cuemby/poolfs/pkg/engine"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/spf13/cobra"
)

var duplicationCmd = &cobra.Command{
	Use:   "duplication",
	Short: "Inspect and change per-folder duplication levels",
}

var duplicationGetCmd = &cobra.Command{
	Use:   "get POOL_ID FOLDER",
	Short: "Print the current duplication level of FOLDER",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, folder, err := resolvePoolAndFolder(args[0], args[1])
		if err != nil {
			return err
		}
		level, err := p.Duplication.GetLevel(folder)
		if err != nil {
			return fmt.Errorf("get-level failed: %w", err)
		}
		fmt.Println(level)
		return nil
	},
}

var duplicationEnableCmd = &cobra.Command{
	Use:   "enable POOL_ID FOLDER LEVEL",
	Short: "Enable duplication on FOLDER at LEVEL",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, folder, err := resolvePoolAndFolder(args[0], args[1])
		if err != nil {
			return err
		}
		level, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid level %q: %w", args[2], err)
		}
		if err := p.Duplication.Enable(folder, level); err != nil {
			return fmt.Errorf("enable failed: %w", err)
		}
		fmt.Printf("duplication enabled on %s at level %d\n", folder.String(), level)
		return nil
	},
}

var duplicationDisableCmd = &cobra.Command{
	Use:   "disable POOL_ID FOLDER",
	Short: "Disable duplication on FOLDER",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, folder, err := resolvePoolAndFolder(args[0], args[1])
		if err != nil {
			return err
		}
		if err := p.Duplication.Disable(folder); err != nil {
			return fmt.Errorf("disable failed: %w", err)
		}
		fmt.Printf("duplication disabled on %s\n", folder.String())
		return nil
	},
}

var duplicationSetLevelCmd = &cobra.Command{
	Use:   "set-level POOL_ID FOLDER LEVEL",
	Short: "Reshape FOLDER's duplication to LEVEL",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, folder, err := resolvePoolAndFolder(args[0], args[1])
		if err != nil {
			return err
		}
		level, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid level %q: %w", args[2], err)
		}
		if err := p.Duplication.SetLevel(folder, level); err != nil {
			return fmt.Errorf("set-level failed: %w", err)
		}
		fmt.Printf("duplication on %s set to level %d\n", folder.String(), level)
		return nil
	},
}

func init() {
	duplicationCmd.AddCommand(duplicationGetCmd)
	duplicationCmd.AddCommand(duplicationEnableCmd)
	duplicationCmd.AddCommand(duplicationDisableCmd)
	duplicationCmd.AddCommand(duplicationSetLevelCmd)
}

func resolvePoolAndFolder(poolID, rawFolder string) (*engine.Pool, pooltypes.FolderPath, error) {
	p, err := resolvePool("duplication", poolID)
	if err != nil {
		return nil, pooltypes.FolderPath{}, err
	}
	folder, err := pooltypes.NewFolderPath(rawFolder)
	if err != nil {
		return nil, pooltypes.FolderPath{}, err
	}
	return p, folder, nil
}
