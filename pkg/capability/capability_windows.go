//go:build windows

package capability

import (
	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"golang.org/x/sys/windows"
)

// WindowsFreeSpaceProbe implements FreeSpaceProbe with
// GetDiskFreeSpaceEx, grounded on xBen-Harveyx/GoSize's drive-size
// probing via golang.org/x/sys/windows.
type WindowsFreeSpaceProbe struct{}

func (WindowsFreeSpaceProbe) DiskFreeSpace(path string) (free, total pooltypes.ByteSize, err error) {
	p, convErr := windows.UTF16PtrFromString(path)
	if convErr != nil {
		return 0, 0, poolerr.Wrap(poolerr.Io, "DiskFreeSpace", convErr)
	}
	var freeBytes, totalBytes, totalFree uint64
	if callErr := windows.GetDiskFreeSpaceEx(p, &freeBytes, &totalBytes, &totalFree); callErr != nil {
		return 0, 0, poolerr.Wrap(poolerr.Io, "DiskFreeSpace", callErr)
	}
	return pooltypes.ByteSize(freeBytes), pooltypes.ByteSize(totalBytes), nil
}

// WindowsMountEnumerator enumerates the drive letters A:\ through Z:\,
// the Windows-centric root set §9's "Platform gap" note calls out.
type WindowsMountEnumerator struct{}

func (WindowsMountEnumerator) EnumerateMountRoots() ([]string, error) {
	var roots []string
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, poolerr.Wrap(poolerr.Io, "EnumerateMountRoots", err)
	}
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := byte('A' + i)
		roots = append(roots, string(letter)+`:\`)
	}
	return roots, nil
}

// DefaultFreeSpaceProbe is the platform-appropriate FreeSpaceProbe.
func DefaultFreeSpaceProbe() FreeSpaceProbe { return WindowsFreeSpaceProbe{} }

// DefaultMountEnumerator is the platform-appropriate MountEnumerator.
func DefaultMountEnumerator() MountEnumerator { return WindowsMountEnumerator{} }
