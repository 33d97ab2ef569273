package main

import (
	"fmt"
	"os"

	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create a pool from a YAML manifest",
	Long: `Apply a pool manifest:

  apiVersion: poolfs/v1
  kind: Pool
  metadata:
    name: media
  spec:
    mountPoint: /mnt/media
    drives:
      - /mnt/disk1
      - /mnt/disk2
    duplicationLevel: 1`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Manifest file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// PoolManifest is a declarative description of a pool to create.
type PoolManifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ManifestMetadata `yaml:"metadata"`
	Spec       PoolManifestSpec `yaml:"spec"`
}

type ManifestMetadata struct {
	Name string `yaml:"name"`
}

type PoolManifestSpec struct {
	MountPoint       string   `yaml:"mountPoint"`
	Drives           []string `yaml:"drives"`
	DuplicationLevel int      `yaml:"duplicationLevel"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var manifest PoolManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Kind != "" && manifest.Kind != "Pool" {
		return fmt.Errorf("unsupported manifest kind %q", manifest.Kind)
	}

	name, err := pooltypes.NewPoolName(manifest.Metadata.Name)
	if err != nil {
		return err
	}

	m := newManager()
	pool, err := m.CreatePool(name, manifest.Spec.MountPoint, manifest.Spec.Drives)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	fmt.Printf("Pool created: %s\n", pool.ID.String())

	if manifest.Spec.DuplicationLevel > 0 {
		p := wrapPool(pool)
		if err := p.Duplication.Enable(pooltypes.RootFolder, manifest.Spec.DuplicationLevel); err != nil {
			return fmt.Errorf("pool created but failed to enable duplication: %w", err)
		}
		fmt.Printf("Duplication enabled at level %d\n", manifest.Spec.DuplicationLevel)
	}
	return nil
}
