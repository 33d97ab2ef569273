package main

import (
	"fmt"
	"os"

	"github.com/cuemby/poolfs/pkg/config"
	"github.com/cuemby/poolfs/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// cfg is loaded once in initConfig and consulted by every subcommand.
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "poolctl",
	Short: "poolctl manages a pooled-storage volume spanning multiple drives",
	Long: `poolctl detects, checks, repairs, and rebalances a storage pool
spread across several drives, presenting it as one merged namespace
with per-folder duplication.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"poolctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to poolfs.yaml (defaults to ./poolfs.yaml or /etc/poolfs/poolfs.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format; overrides config")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(rebalanceCmd)
	rootCmd.AddCommand(duplicationCmd)
	rootCmd.AddCommand(poolCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")
	loaded, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if json, _ := rootCmd.PersistentFlags().GetBool("log-json"); json {
		cfg.LogJSON = true
	}
	log.Init(cfg.LogConfig())
}
