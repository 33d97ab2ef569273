package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoVolumePool(t *testing.T) *pooltypes.Pool {
	t.Helper()
	v1 := &pooltypes.Volume{Root: t.TempDir(), Label: "v1", BytesFree: 10}
	v2 := &pooltypes.Volume{Root: t.TempDir(), Label: "v2", BytesFree: 100}
	return &pooltypes.Pool{Volumes: []*pooltypes.Volume{v1, v2}}
}

func TestCheckFindsDuplicatePrimary(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[1].Root, "a.txt"), []byte("y"), 0o644))

	c := New(pool, events.NoopSink{})
	issues, err := c.Check(false)
	require.NoError(t, err)

	var found bool
	for _, i := range issues {
		if i.Kind == pooltypes.DuplicatePrimary {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckFindsMissingPrimary(t *testing.T) {
	pool := twoVolumePool(t)
	sentinel := filepath.Join(pool.Volumes[0].Root, "FOLDER.DUPLICATE.$DRIVEBENDER")
	require.NoError(t, os.MkdirAll(sentinel, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sentinel, "a.txt"), []byte("x"), 0o644))

	c := New(pool, events.NoopSink{})
	issues, err := c.Check(false)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, pooltypes.MissingPrimary, issues[0].Kind)
}

func TestCheckFindsOrphanedShadowWhenLevelZero(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("x"), 0o644))
	sentinel := filepath.Join(pool.Volumes[1].Root, "FOLDER.DUPLICATE.$DRIVEBENDER")
	require.NoError(t, os.MkdirAll(sentinel, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sentinel, "orphan.txt"), []byte("x"), 0o644))

	c := New(pool, events.NoopSink{})
	issues, err := c.Check(false)
	require.NoError(t, err)

	var found bool
	for _, i := range issues {
		if i.Kind == pooltypes.OrphanedShadowCopy && i.File.String() == "orphan.txt" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDeepScanFindsHashMismatch(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[1].Root, "a.txt"), []byte("two!"), 0o644))

	c := New(pool, events.NoopSink{})
	issues, err := c.Check(true)
	require.NoError(t, err)

	var found bool
	for _, i := range issues {
		if i.Kind == pooltypes.HashMismatch {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRepairDryRunTouchesNothing(t *testing.T) {
	pool := twoVolumePool(t)
	sentinel := filepath.Join(pool.Volumes[0].Root, "FOLDER.DUPLICATE.$DRIVEBENDER")
	require.NoError(t, os.MkdirAll(sentinel, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sentinel, "a.txt"), []byte("x"), 0o644))

	c := New(pool, events.NoopSink{})
	issue := pooltypes.IntegrityIssue{Kind: pooltypes.MissingPrimary, File: mustPath(t, "a.txt")}
	ok, err := c.Repair(issue, true, false)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = os.Stat(filepath.Join(pool.Volumes[0].Root, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRepairMissingPrimaryPromotesShadow(t *testing.T) {
	pool := twoVolumePool(t)
	sentinel := filepath.Join(pool.Volumes[0].Root, "FOLDER.DUPLICATE.$DRIVEBENDER")
	require.NoError(t, os.MkdirAll(sentinel, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sentinel, "a.txt"), []byte("x"), 0o644))

	c := New(pool, events.NoopSink{})
	issue := pooltypes.IntegrityIssue{Kind: pooltypes.MissingPrimary, File: mustPath(t, "a.txt")}
	ok, err := c.Repair(issue, false, false)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = os.Stat(filepath.Join(pool.Volumes[0].Root, "a.txt"))
	assert.NoError(t, err)
}

func TestRepairHashMismatchIsNotAutoRepairable(t *testing.T) {
	pool := twoVolumePool(t)
	c := New(pool, events.NoopSink{})
	issue := pooltypes.IntegrityIssue{Kind: pooltypes.HashMismatch, File: mustPath(t, "a.txt")}
	ok, err := c.Repair(issue, false, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func mustPath(t *testing.T, raw string) pooltypes.FolderPath {
	t.Helper()
	p, err := pooltypes.NewFolderPath(raw)
	require.NoError(t, err)
	return p
}
