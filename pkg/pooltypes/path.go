// Package pooltypes defines the validated value types and domain structs
// shared by every layer of the pool engine: names, paths, sizes,
// duplication levels, volumes, pools, logical/physical items and
// integrity issues.
package pooltypes

import (
	"os"
	"strings"

	"github.com/cuemby/poolfs/pkg/poolerr"
)

// illegalNameChars are characters rejected from pool names and folder
// path segments, mirroring common filesystem restrictions.
const illegalNameChars = `<>"|?*` + "\x00"

// PoolName is a validated, case-insensitive pool name.
type PoolName struct {
	value string
}

// NewPoolName validates and trims name, rejecting empty names, names over
// 255 code units, and names containing characters illegal in a filename.
func NewPoolName(name string) (PoolName, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return PoolName{}, poolerr.New(poolerr.InvalidArgument, "NewPoolName", "pool name must not be empty")
	}
	if len([]rune(trimmed)) > 255 {
		return PoolName{}, poolerr.New(poolerr.InvalidArgument, "NewPoolName", "pool name exceeds 255 code units")
	}
	if strings.ContainsAny(trimmed, illegalNameChars+`/\`) {
		return PoolName{}, poolerr.New(poolerr.InvalidArgument, "NewPoolName", "pool name contains illegal characters")
	}
	return PoolName{value: trimmed}, nil
}

func (n PoolName) String() string { return n.value }

// Equal compares two pool names case-insensitively.
func (n PoolName) Equal(other PoolName) bool {
	return strings.EqualFold(n.value, other.value)
}

// DrivePath is an existing directory path used as a volume's mount root.
type DrivePath struct {
	value string
}

// NewDrivePath fails with InvalidArgument if path does not exist or is not
// a directory.
func NewDrivePath(path string) (DrivePath, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DrivePath{}, poolerr.Wrap(poolerr.InvalidArgument, "NewDrivePath", err)
	}
	if !info.IsDir() {
		return DrivePath{}, poolerr.New(poolerr.InvalidArgument, "NewDrivePath", "drive path is not a directory: "+path)
	}
	return DrivePath{value: path}, nil
}

func (d DrivePath) String() string { return d.value }

// FolderPath is a normalized, '/'-separated relative path within a pool's
// logical namespace.
type FolderPath struct {
	segments []string
}

// RootFolder is the pool's logical root.
var RootFolder = FolderPath{}

// NewFolderPath normalizes raw: leading/trailing separators are removed,
// internal empty segments collapse, and any of <>"|?*\0 are rejected.
func NewFolderPath(raw string) (FolderPath, error) {
	if strings.ContainsAny(raw, illegalNameChars) {
		return FolderPath{}, poolerr.New(poolerr.InvalidArgument, "NewFolderPath", "folder path contains illegal characters")
	}
	raw = strings.ReplaceAll(raw, "\\", "/")
	parts := strings.Split(raw, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		segments = append(segments, p)
	}
	return FolderPath{segments: segments}, nil
}

// Segments returns the path's components, root-to-leaf.
func (f FolderPath) Segments() []string {
	out := make([]string, len(f.segments))
	copy(out, f.segments)
	return out
}

// IsRoot reports whether this is the pool's logical root.
func (f FolderPath) IsRoot() bool { return len(f.segments) == 0 }

// Base returns the final path segment, or "" at the root.
func (f FolderPath) Base() string {
	if len(f.segments) == 0 {
		return ""
	}
	return f.segments[len(f.segments)-1]
}

// Parent returns the path with its final segment removed; the root's
// parent is itself.
func (f FolderPath) Parent() FolderPath {
	if len(f.segments) == 0 {
		return f
	}
	return FolderPath{segments: append([]string{}, f.segments[:len(f.segments)-1]...)}
}

// Combine appends name as a new final segment.
func (f FolderPath) Combine(name string) FolderPath {
	return FolderPath{segments: append(append([]string{}, f.segments...), name)}
}

// String renders the path using '/' as the only separator; the root
// renders as "".
func (f FolderPath) String() string {
	return strings.Join(f.segments, "/")
}

// Equal compares two folder paths segment-for-segment.
func (f FolderPath) Equal(other FolderPath) bool {
	if len(f.segments) != len(other.segments) {
		return false
	}
	for i := range f.segments {
		if f.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}
