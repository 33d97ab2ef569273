package physical

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeVolume(t *testing.T) *pooltypes.Volume {
	t.Helper()
	root := t.TempDir()
	return &pooltypes.Volume{Root: root, Label: "v"}
}

func TestSentinelIndex(t *testing.T) {
	idx, ok := SentinelIndex("FOLDER.DUPLICATE.$DRIVEBENDER")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = SentinelIndex("folder.duplicate.$drivebender.2")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = SentinelIndex("regular-folder")
	assert.False(t, ok)

	_, ok = SentinelIndex("FOLDER.DUPLICATE.$DRIVEBENDER.notanumber")
	assert.False(t, ok)
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, IsTempFile("movie.mkv.TEMP.$DRIVEBENDER"))
	assert.True(t, IsTempFile("movie.mkv.temp.$drivebender"))
	assert.False(t, IsTempFile("movie.mkv"))
}

func TestListChildrenHidesShadowFoldersAndTempFiles(t *testing.T) {
	v := makeVolume(t)
	require.NoError(t, os.MkdirAll(filepath.Join(v.Root, "docs", "FOLDER.DUPLICATE.$DRIVEBENDER"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(v.Root, "docs", "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(v.Root, "docs", "b.txt.TEMP.$DRIVEBENDER"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(v.Root, "docs", "FOLDER.DUPLICATE.$DRIVEBENDER", "shadowed.txt"), []byte("hey"), 0o644))

	root, _ := pooltypes.NewFolderPath("")
	children, err := ListChildren(v, root)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, ChildFolder, children[0].Kind)
	assert.Equal(t, "docs", children[0].Name)

	docs, _ := pooltypes.NewFolderPath("docs")
	docChildren, err := ListChildren(v, docs)
	require.NoError(t, err)

	var sawFile, sawShadow bool
	for _, c := range docChildren {
		if c.Kind == ChildFile && c.Name == "a.txt" {
			sawFile = true
		}
		if c.Kind == ChildShadowFile && c.Name == "shadowed.txt" {
			sawShadow = true
			assert.Equal(t, 0, c.ShadowIndex)
		}
		assert.NotContains(t, c.Name, "TEMP")
		assert.NotEqual(t, "FOLDER.DUPLICATE.$DRIVEBENDER", c.Name)
	}
	assert.True(t, sawFile)
	assert.True(t, sawShadow)
	assert.Len(t, docChildren, 2)
}

func TestEnumerateRecursesFoldersButNotIntoShadowSentinel(t *testing.T) {
	v := makeVolume(t)
	require.NoError(t, os.MkdirAll(filepath.Join(v.Root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(v.Root, "a", "b", "f.txt"), []byte("data"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(v.Root, "a", "FOLDER.DUPLICATE.$DRIVEBENDER"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(v.Root, "a", "FOLDER.DUPLICATE.$DRIVEBENDER", "shadow.txt"), []byte("s"), 0o644))

	items, err := Enumerate(v, false)
	require.NoError(t, err)

	var names []string
	for _, it := range items {
		names = append(names, it.Logical.String())
	}
	assert.Contains(t, names, "a")
	assert.Contains(t, names, "a/b")
	assert.Contains(t, names, "a/b/f.txt")
	assert.Contains(t, names, "a/shadow.txt")
	assert.NotContains(t, names, "a/FOLDER.DUPLICATE.$DRIVEBENDER")
}

func TestSentinelDirsReportsEmptySentinel(t *testing.T) {
	v := makeVolume(t)
	require.NoError(t, os.MkdirAll(filepath.Join(v.Root, "docs", "FOLDER.DUPLICATE.$DRIVEBENDER"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(v.Root, "docs", "FOLDER.DUPLICATE.$DRIVEBENDER.1"), 0o755))

	docs, _ := pooltypes.NewFolderPath("docs")
	dirs, err := SentinelDirs(v, docs)
	require.NoError(t, err)
	assert.True(t, dirs[0])
	assert.True(t, dirs[1])
	assert.False(t, dirs[2])
}

func TestListChildrenMissingDirReturnsEmpty(t *testing.T) {
	v := makeVolume(t)
	missing, _ := pooltypes.NewFolderPath("does/not/exist")
	children, err := ListChildren(v, missing)
	require.NoError(t, err)
	assert.Empty(t, children)
}
