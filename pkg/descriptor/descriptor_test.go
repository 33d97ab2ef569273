package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/poolfs/pkg/capability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	body := []byte("VolumeLabel: Disk One\r\nid:6ba7b810-9dad-11d1-80b4-00c04fd430c8\ndescription: has a colon: in it\n\nmalformed line with no colon\n")
	fields := Parse(body)
	assert.Equal(t, "Disk One", fields["volumelabel"])
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", fields["id"])
	assert.Equal(t, "has a colon: in it", fields["description"])
}

func TestParseDuplicateKeyLastWins(t *testing.T) {
	fields := Parse([]byte("id: first\nid: second\n"))
	assert.Equal(t, "second", fields["id"])
}

func writeDescriptor(t *testing.T, root, id, label string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "{"+id+"}"), 0o755))
	content := "volumelabel:" + label + "\nid:" + id + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "disk.MP.$DRIVEBENDER"), []byte(content), 0o644))
}

func TestDetectGroupsByPoolID(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	id := uuid.New().String()

	writeDescriptor(t, root1, id, "Disk A")
	writeDescriptor(t, root2, id, "Disk B")

	d := New(capability.StaticMountEnumerator{Roots: []string{root1, root2}}, nil)
	pools, err := d.Detect()
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Len(t, pools[0].Volumes, 2)
	assert.Equal(t, "Disk A", pools[0].Volumes[0].Label)
	assert.Equal(t, "Disk B", pools[0].Volumes[1].Label)
}

func TestDetectSkipsMissingPoolRoot(t *testing.T) {
	root := t.TempDir()
	id := uuid.New().String()
	require.NoError(t, os.WriteFile(filepath.Join(root, "disk.MP.$DRIVEBENDER"), []byte("volumelabel:X\nid:"+id+"\n"), 0o644))
	// no {id} directory created

	d := New(capability.StaticMountEnumerator{Roots: []string{root}}, nil)
	pools, err := d.Detect()
	require.NoError(t, err)
	assert.Empty(t, pools)
}

func TestDetectNoPoolsReturnsEmptyNotError(t *testing.T) {
	d := New(capability.StaticMountEnumerator{Roots: []string{t.TempDir()}}, nil)
	pools, err := d.Detect()
	require.NoError(t, err)
	assert.Empty(t, pools)
}

func TestDetectSwallowsMissingMount(t *testing.T) {
	d := New(capability.StaticMountEnumerator{Roots: []string{"/nonexistent/mount/root"}}, nil)
	pools, err := d.Detect()
	require.NoError(t, err)
	assert.Empty(t, pools)
}
