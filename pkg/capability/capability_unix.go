//go:build !windows

package capability

import (
	"os"
	"path/filepath"

	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"golang.org/x/sys/unix"
)

// UnixFreeSpaceProbe implements FreeSpaceProbe with unix.Statfs, the
// POSIX analogue of mxk/go-vss's Windows VSS-backed capacity queries.
type UnixFreeSpaceProbe struct{}

func (UnixFreeSpaceProbe) DiskFreeSpace(path string) (free, total pooltypes.ByteSize, err error) {
	var stat unix.Statfs_t
	if statErr := unix.Statfs(path, &stat); statErr != nil {
		return 0, 0, poolerr.Wrap(poolerr.Io, "DiskFreeSpace", statErr)
	}
	blockSize := uint64(stat.Bsize)
	total = pooltypes.ByteSize(stat.Blocks * blockSize)
	free = pooltypes.ByteSize(stat.Bavail * blockSize)
	return free, total, nil
}

// DefaultFreeSpaceProbe is the platform-appropriate FreeSpaceProbe.
func DefaultFreeSpaceProbe() FreeSpaceProbe { return UnixFreeSpaceProbe{} }

// unixMountBases lists the parent directories scanned by
// DefaultMountEnumerator, the POSIX analogues of Windows drive letters.
var unixMountBases = []string{"/media", "/mnt"}

// UnixMountEnumerator lists the subdirectories of /media and /mnt, the
// conventional POSIX removable/fixed mount locations.
type UnixMountEnumerator struct{}

func (UnixMountEnumerator) EnumerateMountRoots() ([]string, error) {
	var roots []string
	for _, base := range unixMountBases {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				roots = append(roots, filepath.Join(base, e.Name()))
			}
		}
	}
	return roots, nil
}

// DefaultMountEnumerator is the platform-appropriate MountEnumerator.
func DefaultMountEnumerator() MountEnumerator { return UnixMountEnumerator{} }
