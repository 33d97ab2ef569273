// Package physical implements the per-volume physical layer (§4.3): it
// walks a volume's real directory tree, rewriting shadow-sentinel
// directories into shadow file locations and hiding temp files, so every
// higher layer only ever sees the vocabulary defined in §3.
package physical

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
)

// ShadowSentinelBase is the directory name (case-insensitive) whose
// immediate file children are shadow copies of its sibling folder.
const ShadowSentinelBase = "FOLDER.DUPLICATE.$DRIVEBENDER"

// TempSuffix marks an in-progress temp file, invisible to every
// enumeration in the engine.
const TempSuffix = ".TEMP.$DRIVEBENDER"

// IsTempFile reports whether name carries the temp-file suffix.
func IsTempFile(name string) bool {
	return len(name) > len(TempSuffix) && strings.EqualFold(name[len(name)-len(TempSuffix):], TempSuffix)
}

// SentinelIndex reports whether name is a shadow sentinel directory and,
// if so, its duplication index: 0 for the base sentinel, k for
// "FOLDER.DUPLICATE.$DRIVEBENDER.k" (duplication level k+1).
func SentinelIndex(name string) (index int, ok bool) {
	if strings.EqualFold(name, ShadowSentinelBase) {
		return 0, true
	}
	prefix := ShadowSentinelBase + "."
	if len(name) <= len(prefix) || !strings.EqualFold(name[:len(prefix)], prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(prefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SentinelName renders the on-disk sentinel directory name for index.
func SentinelName(index int) string {
	if index == 0 {
		return ShadowSentinelBase
	}
	return ShadowSentinelBase + "." + strconv.Itoa(index)
}

// ChildKind distinguishes the three things a directory listing can
// contain once shadow sentinels and temp files are accounted for.
type ChildKind int

const (
	ChildFile ChildKind = iota
	ChildFolder
	ChildShadowFile
)

// Child is one entry produced by ListChildren.
type Child struct {
	Kind        ChildKind
	Name        string // logical name: for shadow files, the name of the file they shadow
	DiskPath    string
	Size        pooltypes.ByteSize
	ModTime     time.Time
	ShadowIndex int
}

// ListChildren lists the logical children of dir on volume: primaries
// and ordinary subfolders from volume's own listing, plus shadow files
// surfaced out of any shadow sentinel directories found there. Shadow
// sentinels never nest, so sentinel contents are not walked further.
func ListChildren(volume *pooltypes.Volume, dir pooltypes.FolderPath) ([]Child, error) {
	absDir := filepath.Join(volume.Root, filepath.Join(dir.Segments()...))
	entries, err := os.ReadDir(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, poolerr.Wrap(poolerr.Io, "ListChildren", err)
	}

	var children []Child
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if idx, ok := SentinelIndex(name); ok {
				shadowChildren, err := listSentinelFiles(filepath.Join(absDir, name), idx)
				if err != nil {
					return nil, err
				}
				children = append(children, shadowChildren...)
				continue
			}
			children = append(children, Child{Kind: ChildFolder, Name: name, DiskPath: filepath.Join(absDir, name)})
			continue
		}
		if IsTempFile(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, poolerr.Wrap(poolerr.Io, "ListChildren", err)
		}
		children = append(children, Child{
			Kind:     ChildFile,
			Name:     name,
			DiskPath: filepath.Join(absDir, name),
			Size:     pooltypes.ByteSize(info.Size()),
			ModTime:  info.ModTime(),
		})
	}
	return children, nil
}

func listSentinelFiles(sentinelDir string, index int) ([]Child, error) {
	entries, err := os.ReadDir(sentinelDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, poolerr.Wrap(poolerr.Io, "listSentinelFiles", err)
	}
	var out []Child
	for _, entry := range entries {
		if entry.IsDir() {
			// shadow sentinels never nest; deeper contents are ignored.
			continue
		}
		if IsTempFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, poolerr.Wrap(poolerr.Io, "listSentinelFiles", err)
		}
		out = append(out, Child{
			Kind:        ChildShadowFile,
			Name:        entry.Name(),
			DiskPath:    filepath.Join(sentinelDir, entry.Name()),
			Size:        pooltypes.ByteSize(info.Size()),
			ModTime:     info.ModTime(),
			ShadowIndex: index,
		})
	}
	return out, nil
}

// SentinelDirs reports which shadow-sentinel indices exist as directories
// under dir on volume, regardless of whether they currently hold any
// shadow files. Used by the duplication engine to answer get_level and
// by the repair engine's fix_missing_duplication_on_all_folders, both of
// which care about sentinel presence independent of content.
func SentinelDirs(volume *pooltypes.Volume, dir pooltypes.FolderPath) (map[int]bool, error) {
	absDir := filepath.Join(volume.Root, filepath.Join(dir.Segments()...))
	entries, err := os.ReadDir(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]bool{}, nil
		}
		return nil, poolerr.Wrap(poolerr.Io, "SentinelDirs", err)
	}
	found := make(map[int]bool)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if idx, ok := SentinelIndex(entry.Name()); ok {
			found[idx] = true
		}
	}
	return found, nil
}

// SentinelDirPath returns the absolute path of the sentinel directory
// with the given index under dir on volume.
func SentinelDirPath(volume *pooltypes.Volume, dir pooltypes.FolderPath, index int) string {
	return filepath.Join(volume.Root, filepath.Join(dir.Segments()...), SentinelName(index))
}

// Enumerate recursively lists every file (primary and shadow) on volume
// as a flat sequence of PhysicalItem, used by the rebalancer and the pool
// manager's whole-volume sweeps. When suppressErrors is true,
// an unreadable subtree degrades to the empty sequence instead of
// failing the whole enumeration (§4.3).
func Enumerate(volume *pooltypes.Volume, suppressErrors bool) ([]pooltypes.PhysicalItem, error) {
	var out []pooltypes.PhysicalItem
	err := walk(volume, pooltypes.RootFolder, suppressErrors, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func walk(volume *pooltypes.Volume, dir pooltypes.FolderPath, suppressErrors bool, out *[]pooltypes.PhysicalItem) error {
	children, err := ListChildren(volume, dir)
	if err != nil {
		if suppressErrors {
			return nil
		}
		return err
	}
	for _, c := range children {
		switch c.Kind {
		case ChildFile:
			*out = append(*out, pooltypes.PhysicalItem{
				Kind:     pooltypes.PhysicalItemFile,
				Logical:  dir.Combine(c.Name),
				Volume:   volume,
				DiskPath: c.DiskPath,
				IsShadow: false,
				Size:     c.Size,
				ModTime:  c.ModTime,
			})
		case ChildShadowFile:
			*out = append(*out, pooltypes.PhysicalItem{
				Kind:     pooltypes.PhysicalItemFile,
				Logical:  dir.Combine(c.Name),
				Volume:   volume,
				DiskPath: c.DiskPath,
				IsShadow: true,
				Size:     c.Size,
				ModTime:  c.ModTime,
			})
		case ChildFolder:
			sub := dir.Combine(c.Name)
			*out = append(*out, pooltypes.PhysicalItem{
				Kind:     pooltypes.PhysicalItemFolder,
				Logical:  sub,
				Volume:   volume,
				DiskPath: c.DiskPath,
			})
			if err := walk(volume, sub, suppressErrors, out); err != nil {
				if suppressErrors {
					continue
				}
				return err
			}
		}
	}
	return nil
}
