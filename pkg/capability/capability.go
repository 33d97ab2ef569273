// Package capability defines the host abstractions the pool engine
// consumes rather than calling platform APIs directly (§6, §9 "Platform
// gap" design note): free-space probing and mount-root enumeration.
// Concrete implementations live in capability_unix.go / capability_windows.go,
// gated the way xBen-Harveyx/GoSize gates its Windows-only drive scan.
package capability

import "github.com/cuemby/poolfs/pkg/pooltypes"

// FreeSpaceProbe reports free/total bytes for a mounted filesystem path.
type FreeSpaceProbe interface {
	// DiskFreeSpace returns (free, total) in bytes for path, or an error
	// the engine treats as poolerr.Io.
	DiskFreeSpace(path string) (free, total pooltypes.ByteSize, err error)
}

// MountEnumerator lists candidate mount roots the volume detector should
// scan for descriptor files. On POSIX the caller may supply candidate
// roots, and the default scans the subdirectories of /media and /mnt; on
// Windows the natural roots are the drive letters.
type MountEnumerator interface {
	EnumerateMountRoots() ([]string, error)
}

// StaticMountEnumerator is a MountEnumerator over a fixed, caller-supplied
// list of roots, used when the caller configures explicit mount roots.
type StaticMountEnumerator struct {
	Roots []string
}

func (s StaticMountEnumerator) EnumerateMountRoots() ([]string, error) {
	out := make([]string, len(s.Roots))
	copy(out, s.Roots)
	return out, nil
}
