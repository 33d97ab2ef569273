package pooltypes

// LogicalFolder is a folder in the pool's merged namespace. Size is
// computed lazily by whichever layer constructed the value (the overlay
// package), so that folders that are never inspected never pay for a
// descendant walk.
type LogicalFolder struct {
	FullPath FolderPath
	sizeFn   func() ByteSize
}

// NewLogicalFolder constructs a folder with a lazy size function.
func NewLogicalFolder(path FolderPath, sizeFn func() ByteSize) LogicalFolder {
	return LogicalFolder{FullPath: path, sizeFn: sizeFn}
}

// Size evaluates the lazy descendant-size sum.
func (f LogicalFolder) Size() ByteSize {
	if f.sizeFn == nil {
		return 0
	}
	return f.sizeFn()
}

// LogicalFile is the equivalence class of physical entries across all
// volumes that share a pool-relative path, split into primary and shadow
// locations per §3 of the specification.
type LogicalFile struct {
	FullPath  FolderPath
	Primaries []Location
	Shadows   []Location
}

// Size returns the length of any available location, preferring a
// primary, with a stable tie-break (the first location encountered).
func (f LogicalFile) Size() ByteSize {
	if len(f.Primaries) > 0 {
		return f.Primaries[0].Size
	}
	if len(f.Shadows) > 0 {
		return f.Shadows[0].Size
	}
	return 0
}

// HasLocation reports whether the file has at least one primary or
// shadow location, the invariant every logical file must satisfy.
func (f LogicalFile) HasLocation() bool {
	return len(f.Primaries) > 0 || len(f.Shadows) > 0
}

// PrimaryVolumes returns the volumes holding this file as primary.
func (f LogicalFile) PrimaryVolumes() []*Volume {
	out := make([]*Volume, 0, len(f.Primaries))
	for _, l := range f.Primaries {
		out = append(out, l.Volume)
	}
	return out
}

// ShadowVolumes returns the volumes holding this file as a shadow copy.
func (f LogicalFile) ShadowVolumes() []*Volume {
	out := make([]*Volume, 0, len(f.Shadows))
	for _, l := range f.Shadows {
		out = append(out, l.Volume)
	}
	return out
}

// LocationOn returns the location (primary or shadow) this file holds on
// volume v, or nil if it has none there.
func (f LogicalFile) LocationOn(v *Volume) *Location {
	for i := range f.Primaries {
		if f.Primaries[i].Volume == v {
			return &f.Primaries[i]
		}
	}
	for i := range f.Shadows {
		if f.Shadows[i].Volume == v {
			return &f.Shadows[i]
		}
	}
	return nil
}
