// Package repair implements the Repair Engine (§4.7): five fixers that
// reconcile a pool's primaries and shadow copies, plus the SetPrimary and
// SetShadow state machines every other layer that changes a file's role
// builds on.
package repair

import (
	"bytes"
	"io"
	"os"

	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/fileops"
	"github.com/cuemby/poolfs/pkg/overlay"
	"github.com/cuemby/poolfs/pkg/physical"
	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
)

// FixerName identifies one of the five named fixers, used for audit logs
// and CLI selection.
type FixerName string

const (
	FixMissingDuplicationOnAllFolders FixerName = "fix_missing_duplication_on_all_folders"
	FixDuplicatePrimaries             FixerName = "fix_duplicate_primaries"
	FixDuplicateShadowCopies          FixerName = "fix_duplicate_shadow_copies"
	FixMissingPrimaries               FixerName = "fix_missing_primaries"
	FixMissingShadowCopies            FixerName = "fix_missing_shadow_copies"
)

// AllFixers lists every fixer in the order the engine normally runs them.
var AllFixers = []FixerName{
	FixMissingDuplicationOnAllFolders,
	FixDuplicatePrimaries,
	FixDuplicateShadowCopies,
	FixMissingPrimaries,
	FixMissingShadowCopies,
}

// Engine runs the five fixers, and the SetPrimary/SetShadow state
// machines they're built on, over one pool.
type Engine struct {
	Pool    *pooltypes.Pool
	Overlay *overlay.Overlay
	Sink    events.Sink
}

// New constructs an Engine for pool.
func New(pool *pooltypes.Pool, sink events.Sink) *Engine {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Engine{Pool: pool, Overlay: overlay.New(pool), Sink: sink}
}

// Run executes fixers in order over the whole pool, returning the number
// of changes each fixer made.
func (e *Engine) Run(fixers []FixerName) (map[FixerName]int, error) {
	results := make(map[FixerName]int, len(fixers))
	for _, name := range fixers {
		n, err := e.RunOne(name)
		if err != nil {
			return results, err
		}
		results[name] = n
	}
	return results, nil
}

// RunOne executes a single named fixer.
func (e *Engine) RunOne(name FixerName) (int, error) {
	switch name {
	case FixMissingDuplicationOnAllFolders:
		return e.FixMissingDuplicationOnAllFolders()
	case FixDuplicatePrimaries:
		return e.FixDuplicatePrimaries()
	case FixDuplicateShadowCopies:
		return e.FixDuplicateShadowCopies()
	case FixMissingPrimaries:
		return e.FixMissingPrimaries()
	case FixMissingShadowCopies:
		return e.FixMissingShadowCopies()
	default:
		return 0, poolerr.New(poolerr.InvalidArgument, "RunOne", "unknown fixer: "+string(name))
	}
}

// FixMissingDuplicationOnAllFolders ensures every folder that contains
// files has a base shadow sentinel on every volume. It only creates the
// sentinel directory; it never materializes shadow files.
func (e *Engine) FixMissingDuplicationOnAllFolders() (int, error) {
	items, err := e.Overlay.GetItems(pooltypes.RootFolder, true)
	if err != nil {
		return 0, err
	}
	folders := make(map[string]pooltypes.FolderPath)
	for _, it := range items {
		if it.Kind == overlay.ItemFile {
			folders[it.File.FullPath.Parent().String()] = it.File.FullPath.Parent()
		}
	}
	fixed := 0
	for _, folder := range folders {
		for _, v := range e.Pool.Volumes {
			dirs, err := physical.SentinelDirs(v, folder)
			if err != nil {
				return fixed, err
			}
			if !dirs[0] {
				if err := fileops.EnsureDir(physical.SentinelDirPath(v, folder, 0)); err != nil {
					return fixed, err
				}
				fixed++
			}
		}
	}
	if fixed > 0 {
		e.Sink.Emit(events.Event{Kind: events.KindRepairApplied, PoolID: e.Pool.ID.String(), Message: string(FixMissingDuplicationOnAllFolders)})
	}
	return fixed, nil
}

// FixDuplicatePrimaries deletes surplus primaries that are byte-identical
// to the first kept one; primaries that differ are left for the
// integrity checker to flag as HashMismatch.
func (e *Engine) FixDuplicatePrimaries() (int, error) {
	return e.fixDuplicateLocations(true)
}

// FixDuplicateShadowCopies is the shadow-location analogue of
// FixDuplicatePrimaries.
func (e *Engine) FixDuplicateShadowCopies() (int, error) {
	return e.fixDuplicateLocations(false)
}

func (e *Engine) fixDuplicateLocations(primaries bool) (int, error) {
	items, err := e.Overlay.GetItems(pooltypes.RootFolder, true)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, it := range items {
		if it.Kind != overlay.ItemFile {
			continue
		}
		locs := it.File.Shadows
		if primaries {
			locs = it.File.Primaries
		}
		if len(locs) < 2 {
			continue
		}
		kept := locs[0]
		for _, candidate := range locs[1:] {
			equal, err := contentsEqual(kept.DiskPath, candidate.DiskPath)
			if err != nil {
				return fixed, err
			}
			if !equal {
				continue
			}
			if err := fileops.Delete(candidate.DiskPath); err != nil {
				return fixed, err
			}
			fixed++
		}
	}
	if fixed > 0 {
		kind := events.KindRepairApplied
		e.Sink.Emit(events.Event{Kind: kind, PoolID: e.Pool.ID.String()})
	}
	return fixed, nil
}

// FixMissingPrimaries promotes the first shadow location to primary for
// every logical file that currently has zero primaries.
func (e *Engine) FixMissingPrimaries() (int, error) {
	items, err := e.Overlay.GetItems(pooltypes.RootFolder, true)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, it := range items {
		if it.Kind != overlay.ItemFile || len(it.File.Primaries) > 0 || len(it.File.Shadows) == 0 {
			continue
		}
		target := it.File.Shadows[0].Volume
		if err := e.SetPrimary(it.File, target); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// FixMissingShadowCopies materializes a shadow copy, on the volume with
// the greatest free space that is not the file's primary volume, for
// every logical file that currently has no shadow.
func (e *Engine) FixMissingShadowCopies() (int, error) {
	items, err := e.Overlay.GetItems(pooltypes.RootFolder, true)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, it := range items {
		if it.Kind != overlay.ItemFile || len(it.File.Shadows) > 0 {
			continue
		}
		target := e.pickFreestExcluding(it.File.PrimaryVolumes())
		if target == nil {
			continue
		}
		if err := e.SetShadow(it.File, target); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

func (e *Engine) pickFreestExcluding(excluded []*pooltypes.Volume) *pooltypes.Volume {
	isExcluded := func(v *pooltypes.Volume) bool {
		for _, x := range excluded {
			if x == v {
				return true
			}
		}
		return false
	}
	var best *pooltypes.Volume
	for _, v := range e.Pool.Volumes {
		if isExcluded(v) {
			continue
		}
		if best == nil || v.BytesFree > best.BytesFree {
			best = v
		}
	}
	return best
}

// SetPrimary materializes file as a primary on target, per the
// SetPrimary state machine of §4.7.
func (e *Engine) SetPrimary(file pooltypes.LogicalFile, target *pooltypes.Volume) error {
	folder := file.FullPath.Parent()
	name := file.FullPath.Base()
	finalPath := target.Root + string(os.PathSeparator) + pathJoin(folder, name)

	if loc := file.LocationOn(target); loc != nil && !loc.IsShadow {
		return nil
	}
	if loc := file.LocationOn(target); loc != nil && loc.IsShadow {
		if err := fileops.RenameWithinVolume(loc.DiskPath, finalPath); err != nil {
			return err
		}
		if len(file.Primaries) > 0 {
			old := file.Primaries[0]
			oldShadow := physical.SentinelDirPath(old.Volume, folder, 0) + string(os.PathSeparator) + name
			if err := fileops.RenameWithinVolume(old.DiskPath, oldShadow); err != nil {
				_ = fileops.RenameWithinVolume(finalPath, loc.DiskPath)
				return err
			}
		}
		e.Sink.Emit(events.Event{Kind: events.KindRepairApplied, PoolID: e.Pool.ID.String(), Message: "SetPrimary:" + file.FullPath.String()})
		return nil
	}

	src := firstLocation(file)
	if src == "" {
		return poolerr.New(poolerr.NotFound, "SetPrimary", "no available location to copy from")
	}
	if err := fileops.AtomicCopy(src, finalPath); err != nil {
		return err
	}
	if len(file.Primaries) > 0 {
		if err := fileops.Delete(file.Primaries[0].DiskPath); err != nil {
			_ = fileops.Delete(finalPath)
			return err
		}
	}
	e.Sink.Emit(events.Event{Kind: events.KindRepairApplied, PoolID: e.Pool.ID.String(), Message: "SetPrimary:" + file.FullPath.String()})
	return nil
}

// SetShadow materializes file as a shadow copy on target, per the
// SetShadow state machine of §4.7 (symmetric to SetPrimary).
func (e *Engine) SetShadow(file pooltypes.LogicalFile, target *pooltypes.Volume) error {
	folder := file.FullPath.Parent()
	name := file.FullPath.Base()
	sentinelDir := physical.SentinelDirPath(target, folder, 0)
	finalPath := sentinelDir + string(os.PathSeparator) + name

	if loc := file.LocationOn(target); loc != nil && loc.IsShadow {
		return nil
	}
	if loc := file.LocationOn(target); loc != nil && !loc.IsShadow {
		if err := fileops.EnsureDir(sentinelDir); err != nil {
			return err
		}
		if err := fileops.RenameWithinVolume(loc.DiskPath, finalPath); err != nil {
			return err
		}
		if len(file.Shadows) > 0 {
			old := file.Shadows[0]
			oldPrimary := old.Volume.Root + string(os.PathSeparator) + pathJoin(folder, name)
			if err := fileops.RenameWithinVolume(old.DiskPath, oldPrimary); err != nil {
				_ = fileops.RenameWithinVolume(finalPath, loc.DiskPath)
				return err
			}
		}
		e.Sink.Emit(events.Event{Kind: events.KindRepairApplied, PoolID: e.Pool.ID.String(), Message: "SetShadow:" + file.FullPath.String()})
		return nil
	}

	src := firstLocation(file)
	if src == "" {
		return poolerr.New(poolerr.NotFound, "SetShadow", "no available location to copy from")
	}
	if err := fileops.EnsureDir(sentinelDir); err != nil {
		return err
	}
	if err := fileops.AtomicCopy(src, finalPath); err != nil {
		return err
	}
	if len(file.Shadows) > 0 {
		if err := fileops.Delete(file.Shadows[0].DiskPath); err != nil {
			_ = fileops.Delete(finalPath)
			return err
		}
	}
	e.Sink.Emit(events.Event{Kind: events.KindRepairApplied, PoolID: e.Pool.ID.String(), Message: "SetShadow:" + file.FullPath.String()})
	return nil
}

func firstLocation(file pooltypes.LogicalFile) string {
	if len(file.Primaries) > 0 {
		return file.Primaries[0].DiskPath
	}
	if len(file.Shadows) > 0 {
		return file.Shadows[0].DiskPath
	}
	return ""
}

func pathJoin(folder pooltypes.FolderPath, name string) string {
	segs := append(folder.Segments(), name)
	out := segs[0]
	for _, s := range segs[1:] {
		out += string(os.PathSeparator) + s
	}
	return out
}

// contentsEqual compares two files by size then by streamed byte
// comparison.
func contentsEqual(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, poolerr.Wrap(poolerr.Io, "contentsEqual", err)
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, poolerr.Wrap(poolerr.Io, "contentsEqual", err)
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}
	fa, err := os.Open(a)
	if err != nil {
		return false, poolerr.Wrap(poolerr.Io, "contentsEqual", err)
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, poolerr.Wrap(poolerr.Io, "contentsEqual", err)
	}
	defer fb.Close()

	const chunkSize = 64 * 1024
	bufA := make([]byte, chunkSize)
	bufB := make([]byte, chunkSize)
	for {
		na, errA := fa.Read(bufA)
		nb, errB := fb.Read(bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if errA == io.EOF && errB == io.EOF {
			return true, nil
		}
		if errA != nil && errA != io.EOF {
			return false, poolerr.Wrap(poolerr.Io, "contentsEqual", errA)
		}
		if errB != nil && errB != io.EOF {
			return false, poolerr.Wrap(poolerr.Io, "contentsEqual", errB)
		}
	}
}
