// Package duplication implements the Duplication Engine (§4.6): enabling,
// disabling, and reshaping shadow-copy sentinels on a folder, and
// creating individual extra shadows for a single file.
package duplication

import (
	"os"
	"sort"

	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/fileops"
	"github.com/cuemby/poolfs/pkg/overlay"
	"github.com/cuemby/poolfs/pkg/physical"
	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
)

// Engine performs duplication-level changes over one pool.
type Engine struct {
	Pool    *pooltypes.Pool
	Overlay *overlay.Overlay
	Sink    events.Sink
}

// New constructs an Engine for pool, emitting progress through sink.
func New(pool *pooltypes.Pool, sink events.Sink) *Engine {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Engine{Pool: pool, Overlay: overlay.New(pool), Sink: sink}
}

// GetLevel returns the maximum sentinel index+1 observed under folder on
// any volume, or 0 if no sentinel exists anywhere.
func (e *Engine) GetLevel(folder pooltypes.FolderPath) (int, error) {
	level := 0
	for _, v := range e.Pool.Volumes {
		dirs, err := physical.SentinelDirs(v, folder)
		if err != nil {
			return 0, err
		}
		for idx := range dirs {
			if idx+1 > level {
				level = idx + 1
			}
		}
	}
	return level, nil
}

// Enable creates the shadow-sentinel directories implementing level on
// every volume under folder. 1 <= level <= len(volumes)-1.
func (e *Engine) Enable(folder pooltypes.FolderPath, level int) error {
	if err := e.validateLevel(level); err != nil {
		return err
	}
	for _, v := range e.Pool.Volumes {
		for i := 0; i < level; i++ {
			dir := physical.SentinelDirPath(v, folder, i)
			if err := fileops.EnsureDir(dir); err != nil {
				return err
			}
		}
	}
	e.Sink.Emit(events.Event{Kind: events.KindDuplicationEnabled, PoolID: e.Pool.ID.String(), Message: folder.String()})
	return nil
}

// Disable removes every shadow location and every sentinel directory
// under folder, on every volume.
func (e *Engine) Disable(folder pooltypes.FolderPath) error {
	items, err := e.Overlay.GetItems(folder, true)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Kind != overlay.ItemFile {
			continue
		}
		for _, loc := range it.File.Shadows {
			if err := fileops.Delete(loc.DiskPath); err != nil {
				return err
			}
		}
	}
	for _, v := range e.Pool.Volumes {
		dirs, err := physical.SentinelDirs(v, folder)
		if err != nil {
			return err
		}
		for idx := range dirs {
			if err := os.RemoveAll(physical.SentinelDirPath(v, folder, idx)); err != nil {
				return poolerr.Wrap(poolerr.Io, "Disable", err)
			}
		}
	}
	e.Sink.Emit(events.Event{Kind: events.KindDuplicationDisabled, PoolID: e.Pool.ID.String(), Message: folder.String()})
	return nil
}

// SetLevel reshapes folder's duplication to n, creating or removing
// shadow copies as needed relative to the current level.
func (e *Engine) SetLevel(folder pooltypes.FolderPath, n int) error {
	if n == 0 {
		return e.Disable(folder)
	}
	if err := e.validateLevel(n); err != nil {
		return err
	}
	current, err := e.GetLevel(folder)
	if err != nil {
		return err
	}
	if err := e.Enable(folder, n); err != nil {
		return err
	}
	items, err := e.Overlay.GetItems(folder, true)
	if err != nil {
		return err
	}
	switch {
	case n > current:
		for _, it := range items {
			if it.Kind != overlay.ItemFile {
				continue
			}
			for len(it.File.Shadows) < n && len(it.File.Shadows) < len(e.Pool.Volumes)-1 {
				target := e.pickShadowTarget(it.File)
				if target == nil {
					break
				}
				if err := e.materializeShadow(it.File, target); err != nil {
					return err
				}
				it.File.Shadows = append(it.File.Shadows, pooltypes.Location{Volume: target, IsShadow: true})
			}
		}
	case n < current:
		for _, it := range items {
			if it.Kind != overlay.ItemFile {
				continue
			}
			sort.Slice(it.File.Shadows, func(i, j int) bool {
				return it.File.Shadows[i].ModTime.After(it.File.Shadows[j].ModTime)
			})
			for len(it.File.Shadows) > n {
				last := it.File.Shadows[len(it.File.Shadows)-1]
				if err := fileops.Delete(last.DiskPath); err != nil {
					return err
				}
				it.File.Shadows = it.File.Shadows[:len(it.File.Shadows)-1]
			}
		}
	}
	e.Sink.Emit(events.Event{Kind: events.KindDuplicationLevelChanged, PoolID: e.Pool.ID.String(), Message: folder.String()})
	return nil
}

// CreateAdditionalShadow materializes one more shadow of file on target,
// using the next numbered sentinel after file's existing shadow count.
func (e *Engine) CreateAdditionalShadow(file pooltypes.LogicalFile, target *pooltypes.Volume) error {
	return e.materializeShadowAt(file, target, len(file.Shadows))
}

func (e *Engine) materializeShadow(file pooltypes.LogicalFile, target *pooltypes.Volume) error {
	return e.materializeShadowAt(file, target, len(file.Shadows))
}

func (e *Engine) materializeShadowAt(file pooltypes.LogicalFile, target *pooltypes.Volume, existingCount int) error {
	src := sourceLocation(file)
	if src == "" {
		return poolerr.New(poolerr.NotFound, "CreateAdditionalShadow", "file has no readable location")
	}
	folder := file.FullPath.Parent()
	name := file.FullPath.Base()
	sentinelDir := physical.SentinelDirPath(target, folder, existingCount)
	if err := fileops.EnsureDir(sentinelDir); err != nil {
		return err
	}
	dst := sentinelDir + string(os.PathSeparator) + name
	if err := fileops.AtomicCopy(src, dst); err != nil {
		return err
	}
	return nil
}

func sourceLocation(file pooltypes.LogicalFile) string {
	if len(file.Primaries) > 0 {
		return file.Primaries[0].DiskPath
	}
	if len(file.Shadows) > 0 {
		return file.Shadows[0].DiskPath
	}
	return ""
}

// pickShadowTarget chooses the volume with the most free space that
// doesn't already hold file (primary or shadow).
func (e *Engine) pickShadowTarget(file pooltypes.LogicalFile) *pooltypes.Volume {
	var best *pooltypes.Volume
	for _, v := range e.Pool.Volumes {
		if file.LocationOn(v) != nil {
			continue
		}
		if best == nil || v.BytesFree > best.BytesFree {
			best = v
		}
	}
	return best
}

func (e *Engine) validateLevel(level int) error {
	if level < 1 || level > len(e.Pool.Volumes)-1 {
		return poolerr.New(poolerr.InvalidArgument, "validateLevel", "duplication level out of range for pool size")
	}
	return nil
}
