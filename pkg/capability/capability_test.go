package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticMountEnumerator(t *testing.T) {
	s := StaticMountEnumerator{Roots: []string{"/mnt/a", "/mnt/b"}}
	roots, err := s.EnumerateMountRoots()
	assert.NoError(t, err)
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, roots)

	// mutating the returned slice must not affect the enumerator's own copy
	roots[0] = "mutated"
	roots2, _ := s.EnumerateMountRoots()
	assert.Equal(t, "/mnt/a", roots2[0])
}

func TestUnixFreeSpaceProbeTempDir(t *testing.T) {
	probe := DefaultFreeSpaceProbe()
	free, total, err := probe.DiskFreeSpace(t.TempDir())
	assert.NoError(t, err)
	assert.Greater(t, uint64(total), uint64(0))
	assert.LessOrEqual(t, uint64(free), uint64(total))
}
