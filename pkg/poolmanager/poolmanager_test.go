package poolmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePoolProvisionsEveryDrive(t *testing.T) {
	d1, d2 := t.TempDir(), t.TempDir()
	name, err := pooltypes.NewPoolName("media")
	require.NoError(t, err)

	m := New(nil, events.NoopSink{})
	pool, err := m.CreatePool(name, "/mnt/media", []string{d1, d2})
	require.NoError(t, err)
	require.Len(t, pool.Volumes, 2)

	for _, drive := range []string{d1, d2} {
		entries, err := os.ReadDir(drive)
		require.NoError(t, err)
		var sawDescriptor, sawPoolDir bool
		for _, e := range entries {
			if e.IsDir() && e.Name() == pool.ID.DirName() {
				sawPoolDir = true
			}
			if !e.IsDir() {
				sawDescriptor = true
			}
		}
		assert.True(t, sawDescriptor)
		assert.True(t, sawPoolDir)
	}
}

func TestCreatePoolFailsIfAnyDriveMissing(t *testing.T) {
	d1 := t.TempDir()
	name, err := pooltypes.NewPoolName("media")
	require.NoError(t, err)

	m := New(nil, events.NoopSink{})
	_, err = m.CreatePool(name, "/mnt/media", []string{d1, filepath.Join(d1, "missing")})
	assert.Error(t, err)
}

func TestCheckSpaceForDriveRemoval(t *testing.T) {
	d1, d2 := t.TempDir(), t.TempDir()
	name, err := pooltypes.NewPoolName("media")
	require.NoError(t, err)
	m := New(nil, events.NoopSink{})
	pool, err := m.CreatePool(name, "/mnt/media", []string{d1, d2})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "f.bin"), make([]byte, 100), 0o644))
	pool.Volumes[1].BytesFree = 50

	check, err := m.CheckSpaceForDriveRemoval(pool, pool.Volumes[0])
	require.NoError(t, err)
	assert.False(t, check.CanRemove)
	assert.Equal(t, pooltypes.ByteSize(50), check.Shortfall)
}

func TestRemoveDriveMigratesFilesWhenAutoBalanceSet(t *testing.T) {
	d1, d2 := t.TempDir(), t.TempDir()
	name, err := pooltypes.NewPoolName("media")
	require.NoError(t, err)
	m := New(nil, events.NoopSink{})
	pool, err := m.CreatePool(name, "/mnt/media", []string{d1, d2})
	require.NoError(t, err)
	pool.Volumes[1].BytesFree = 1024

	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "f.bin"), []byte("payload"), 0o644))

	require.NoError(t, m.RemoveDrive(pool, pool.Volumes[0], RemoveOptions{AutoBalance: true}))
	require.Len(t, pool.Volumes, 1)

	body, err := os.ReadFile(filepath.Join(pool.Volumes[0].Root, "f.bin"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}
