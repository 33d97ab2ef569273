package repair

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

func TestFixMissingDuplicationOnAllFoldersCreatesSentinel(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("x"), 0o644))

	e := New(pool, events.NoopSink{})
	n, err := e.FixMissingDuplicationOnAllFolders()
	require.NoError(t, err)
	assert.Equal(t, 2, n) // sentinel created on both volumes for root folder

	for _, v := range pool.Volumes {
		info, err := os.Stat(filepath.Join(v.Root, "FOLDER.DUPLICATE.$DRIVEBENDER"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestFixMissingDuplicationOnAllFoldersSkipsEmptyRoot(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.MkdirAll(filepath.Join(pool.Volumes[0].Root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "sub", "a.txt"), []byte("x"), 0o644))

	e := New(pool, events.NoopSink{})
	n, err := e.FixMissingDuplicationOnAllFolders()
	require.NoError(t, err)
	assert.Equal(t, 2, n) // sentinel created on both volumes for "sub" only

	for _, v := range pool.Volumes {
		_, err := os.Stat(filepath.Join(v.Root, "FOLDER.DUPLICATE.$DRIVEBENDER"))
		assert.True(t, os.IsNotExist(err))

		info, err := os.Stat(filepath.Join(v.Root, "sub", "FOLDER.DUPLICATE.$DRIVEBENDER"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestFixDuplicatePrimariesDeletesIdenticalSurplus(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[1].Root, "a.txt"), []byte("same"), 0o644))

	e := New(pool, events.NoopSink{})
	n, err := e.FixDuplicatePrimaries()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(pool.Volumes[1].Root, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(pool.Volumes[0].Root, "a.txt"))
	assert.NoError(t, err)
}

func TestFixDuplicatePrimariesLeavesDifferingContentAlone(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[1].Root, "a.txt"), []byte("two!"), 0o644))

	e := New(pool, events.NoopSink{})
	n, err := e.FixDuplicatePrimaries()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = os.Stat(filepath.Join(pool.Volumes[1].Root, "a.txt"))
	assert.NoError(t, err)
}

func TestFixMissingPrimariesPromotesShadow(t *testing.T) {
	pool := twoVolumePool(t)
	sentinel := filepath.Join(pool.Volumes[0].Root, "FOLDER.DUPLICATE.$DRIVEBENDER")
	require.NoError(t, os.MkdirAll(sentinel, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sentinel, "a.txt"), []byte("hi"), 0o644))

	e := New(pool, events.NoopSink{})
	n, err := e.FixMissingPrimaries()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(pool.Volumes[0].Root, "a.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(sentinel, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFixMissingShadowCopiesPicksFreestNonPrimaryVolume(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("hi"), 0o644))

	e := New(pool, events.NoopSink{})
	n, err := e.FixMissingShadowCopies()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	body, err := os.ReadFile(filepath.Join(pool.Volumes[1].Root, "FOLDER.DUPLICATE.$DRIVEBENDER", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(body))
}

func TestSetPrimarySwapsRolesWhenBothExist(t *testing.T) {
	pool := twoVolumePool(t)
	require.NoError(t, os.WriteFile(filepath.Join(pool.Volumes[0].Root, "a.txt"), []byte("hi"), 0o644))
	sentinel := filepath.Join(pool.Volumes[1].Root, "FOLDER.DUPLICATE.$DRIVEBENDER")
	require.NoError(t, os.MkdirAll(sentinel, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sentinel, "a.txt"), []byte("hi"), 0o644))

	e := New(pool, events.NoopSink{})
	full, _ := pooltypes.NewFolderPath("a.txt")
	file, err := e.Overlay.GetFile(full)
	require.NoError(t, err)

	require.NoError(t, e.SetPrimary(file, pool.Volumes[1]))

	_, err = os.Stat(filepath.Join(pool.Volumes[1].Root, "a.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(pool.Volumes[0].Root, "FOLDER.DUPLICATE.$DRIVEBENDER", "a.txt"))
	assert.NoError(t, err)
}
