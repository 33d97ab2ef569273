package fileops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirCreatesNested(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b", "c")
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDeleteAbsentFileIsNoop(t *testing.T) {
	root := t.TempDir()
	assert.NoError(t, Delete(filepath.Join(root, "missing.txt")))
}

func TestDeleteClearsReadOnlyBit(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "ro.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o444))
	require.NoError(t, Delete(p))
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestAtomicCopyLeavesNoTempFileOnSuccess(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	dst := filepath.Join(root, "nested", "dst.txt")
	require.NoError(t, AtomicCopy(src, dst))

	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	_, err = os.Stat(TempPath(dst))
	assert.True(t, os.IsNotExist(err))
}

func TestAtomicCopyFailsWhenSourceMissing(t *testing.T) {
	root := t.TempDir()
	err := AtomicCopy(filepath.Join(root, "nope.txt"), filepath.Join(root, "dst.txt"))
	require.Error(t, err)
	assert.True(t, poolerr.Is(err, poolerr.Io))

	_, statErr := os.Stat(TempPath(filepath.Join(root, "dst.txt")))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenameWithinVolumeMovesFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))

	dst := filepath.Join(root, "shadow", "src.txt")
	require.NoError(t, RenameWithinVolume(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(body))
}

func TestAtomicWriteLeavesNoTempFile(t *testing.T) {
	root := t.TempDir()
	dst := filepath.Join(root, "nested", "descriptor.txt")
	require.NoError(t, AtomicWrite(dst, []byte("id:123\n")))

	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "id:123\n", string(body))

	_, err = os.Stat(TempPath(dst))
	assert.True(t, os.IsNotExist(err))
}

func TestMoveAcrossVolumesDeletesSourceAfterCopy(t *testing.T) {
	srcRoot, dstRoot := t.TempDir(), t.TempDir()
	src := filepath.Join(srcRoot, "f.txt")
	require.NoError(t, os.WriteFile(src, []byte("body"), 0o644))

	dst := filepath.Join(dstRoot, "f.txt")
	require.NoError(t, MoveAcrossVolumes(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "body", string(body))
}
