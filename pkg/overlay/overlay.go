// Package overlay implements the Logical Overlay (§4.4): it merges every
// volume's physical layer into one logical namespace, collapsing entries
// that share a name into a single logical file or folder.
package overlay

import (
	"github.com/cuemby/poolfs/pkg/physical"
	"github.com/cuemby/poolfs/pkg/pooltypes"
)

// ItemKind distinguishes the two kinds of logical item GetItems yields.
type ItemKind int

const (
	ItemFile ItemKind = iota
	ItemFolder
)

// Item is a tagged logical entry: exactly one of File/Folder is set,
// selected by Kind.
type Item struct {
	Kind   ItemKind
	File   pooltypes.LogicalFile
	Folder pooltypes.LogicalFolder
}

// Overlay merges a single pool's volumes into a logical namespace.
type Overlay struct {
	Pool *pooltypes.Pool
}

// New constructs an Overlay over pool.
func New(pool *pooltypes.Pool) *Overlay {
	return &Overlay{Pool: pool}
}

// GetItems walks the pool in BFS order starting at root, yielding
// deterministic, insertion-ordered logical items. When recursive is
// false, only root's direct children are returned.
func (o *Overlay) GetItems(root pooltypes.FolderPath, recursive bool) ([]Item, error) {
	var out []Item
	queue := []pooltypes.FolderPath{root}
	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]

		items, subfolders, err := o.gatherFolder(folder)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if recursive {
			queue = append(queue, subfolders...)
		}
	}
	return out, nil
}

// GetFile probes every volume for full at exactly this path and returns
// its logical file, regardless of whether full's parent folder has been
// walked. Used by the repair/integrity layers which already know the
// path they care about.
func (o *Overlay) GetFile(full pooltypes.FolderPath) (pooltypes.LogicalFile, error) {
	parent := full.Parent()
	name := full.Base()
	locs, err := o.probeLocations(parent, name)
	if err != nil {
		return pooltypes.LogicalFile{}, err
	}
	return toLogicalFile(full, locs), nil
}

type locationSet struct {
	primaries []pooltypes.Location
	shadows   []pooltypes.Location
}

// gatherFolder implements the two-pass union described in §4.4 for one
// folder level, and returns any subfolder paths discovered for the
// caller's BFS queue.
func (o *Overlay) gatherFolder(folder pooltypes.FolderPath) ([]Item, []pooltypes.FolderPath, error) {
	type seenEntry struct {
		isFolder bool
		order    int
	}
	seen := make(map[string]seenEntry)
	var fileNames []string
	var folderNames []string

	perVolumeChildren := make([][]physical.Child, len(o.Pool.Volumes))
	for i, v := range o.Pool.Volumes {
		children, err := physical.ListChildren(v, folder)
		if err != nil {
			return nil, nil, err
		}
		perVolumeChildren[i] = children
	}

	// Pass 1: primary-side union (ordinary files and folders).
	for _, children := range perVolumeChildren {
		for _, c := range children {
			if c.Kind == physical.ChildShadowFile {
				continue
			}
			if _, ok := seen[c.Name]; ok {
				continue
			}
			isFolder := c.Kind == physical.ChildFolder
			seen[c.Name] = seenEntry{isFolder: isFolder}
			if isFolder {
				folderNames = append(folderNames, c.Name)
			} else {
				fileNames = append(fileNames, c.Name)
			}
		}
	}

	// Pass 2: shadow-only files (missing primary).
	for _, children := range perVolumeChildren {
		for _, c := range children {
			if c.Kind != physical.ChildShadowFile {
				continue
			}
			if _, ok := seen[c.Name]; ok {
				continue
			}
			seen[c.Name] = seenEntry{isFolder: false}
			fileNames = append(fileNames, c.Name)
		}
	}

	var items []Item
	for _, name := range folderNames {
		full := folder.Combine(name)
		items = append(items, Item{Kind: ItemFolder, Folder: pooltypes.NewLogicalFolder(full, o.folderSizeFn(full))})
	}
	for _, name := range fileNames {
		full := folder.Combine(name)
		locs := collectLocations(perVolumeChildren, o.Pool.Volumes, name)
		items = append(items, Item{Kind: ItemFile, File: toLogicalFile(full, locs)})
	}

	subfolders := make([]pooltypes.FolderPath, 0, len(folderNames))
	for _, name := range folderNames {
		subfolders = append(subfolders, folder.Combine(name))
	}
	return items, subfolders, nil
}

func collectLocations(perVolumeChildren [][]physical.Child, volumes []*pooltypes.Volume, name string) locationSet {
	var set locationSet
	for i, children := range perVolumeChildren {
		for _, c := range children {
			if c.Name != name {
				continue
			}
			switch c.Kind {
			case physical.ChildFile:
				set.primaries = append(set.primaries, pooltypes.Location{
					Volume: volumes[i], DiskPath: c.DiskPath, Size: c.Size, ModTime: c.ModTime,
				})
			case physical.ChildShadowFile:
				set.shadows = append(set.shadows, pooltypes.Location{
					Volume: volumes[i], DiskPath: c.DiskPath, IsShadow: true,
					ShadowIndex: c.ShadowIndex, Size: c.Size, ModTime: c.ModTime,
				})
			}
		}
	}
	return set
}

func (o *Overlay) probeLocations(folder pooltypes.FolderPath, name string) (locationSet, error) {
	var set locationSet
	for _, v := range o.Pool.Volumes {
		children, err := physical.ListChildren(v, folder)
		if err != nil {
			return locationSet{}, err
		}
		for _, c := range children {
			if c.Name != name {
				continue
			}
			switch c.Kind {
			case physical.ChildFile:
				set.primaries = append(set.primaries, pooltypes.Location{
					Volume: v, DiskPath: c.DiskPath, Size: c.Size, ModTime: c.ModTime,
				})
			case physical.ChildShadowFile:
				set.shadows = append(set.shadows, pooltypes.Location{
					Volume: v, DiskPath: c.DiskPath, IsShadow: true,
					ShadowIndex: c.ShadowIndex, Size: c.Size, ModTime: c.ModTime,
				})
			}
		}
	}
	return set, nil
}

func toLogicalFile(full pooltypes.FolderPath, set locationSet) pooltypes.LogicalFile {
	return pooltypes.LogicalFile{FullPath: full, Primaries: set.primaries, Shadows: set.shadows}
}

// folderSizeFn returns a lazy descendant-size sum for folder, evaluated
// only when LogicalFolder.Size is called.
func (o *Overlay) folderSizeFn(folder pooltypes.FolderPath) func() pooltypes.ByteSize {
	return func() pooltypes.ByteSize {
		items, err := o.GetItems(folder, true)
		if err != nil {
			return 0
		}
		var total pooltypes.ByteSize
		for _, it := range items {
			if it.Kind == ItemFile {
				total += it.File.Size()
			}
		}
		return total
	}
}
