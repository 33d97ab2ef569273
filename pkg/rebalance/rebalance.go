// Package rebalance implements the Rebalancer (§4.9): a space-averaging
// planner that moves physical files between volumes to narrow the spread
// of free space across a pool, preserving each file's primary/shadow
// role through the File Ops layer.
package rebalance

import (
	"os"
	"sort"

	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/fileops"
	"github.com/cuemby/poolfs/pkg/overlay"
	"github.com/cuemby/poolfs/pkg/physical"
	"github.com/cuemby/poolfs/pkg/pooltypes"
)

// MinDiff is the minimum free-space spread, below which rebalancing is a
// no-op.
const MinDiff pooltypes.ByteSize = 2 * 1024 * 1024

// MinFile is the smallest file the rebalancer will consider moving.
const MinFile pooltypes.ByteSize = 4096

// Rebalancer narrows the free-space spread across a pool's volumes.
type Rebalancer struct {
	Pool    *pooltypes.Pool
	Overlay *overlay.Overlay
	Sink    events.Sink

	// MinDiff and MinFile override the package defaults when non-zero,
	// letting pkg/config tune the rebalancer per deployment.
	MinDiff pooltypes.ByteSize
	MinFile pooltypes.ByteSize
}

// New constructs a Rebalancer for pool using the package default
// thresholds.
func New(pool *pooltypes.Pool, sink events.Sink) *Rebalancer {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Rebalancer{Pool: pool, Overlay: overlay.New(pool), Sink: sink, MinDiff: MinDiff, MinFile: MinFile}
}

// NewWithThresholds constructs a Rebalancer overriding the default
// minDiff/minFile thresholds (zero falls back to the package default).
func NewWithThresholds(pool *pooltypes.Pool, sink events.Sink, minDiff, minFile pooltypes.ByteSize) *Rebalancer {
	r := New(pool, sink)
	if minDiff > 0 {
		r.MinDiff = minDiff
	}
	if minFile > 0 {
		r.MinFile = minFile
	}
	return r
}

// MovedFile records one file relocation performed by Rebalance.
type MovedFile struct {
	Path string
	From *pooltypes.Volume
	To   *pooltypes.Volume
	Size pooltypes.ByteSize
}

// Rebalance runs the algorithm of §4.9 to completion and returns every
// move it made.
func (r *Rebalancer) Rebalance() ([]MovedFile, error) {
	if len(r.Pool.Volumes) < 2 {
		return nil, nil
	}

	free := make(map[*pooltypes.Volume]pooltypes.ByteSize, len(r.Pool.Volumes))
	var total pooltypes.ByteSize
	for _, v := range r.Pool.Volumes {
		free[v] = v.BytesFree
		total += v.BytesFree
	}
	avg := total / pooltypes.ByteSize(len(r.Pool.Volumes))
	if avg < r.MinDiff {
		return nil, nil
	}

	r.Sink.Emit(events.Event{Kind: events.KindRebalanceStarted, PoolID: r.Pool.ID.String()})

	var moves []MovedFile
	for {
		sources := r.belowThreshold(free, avg)
		sinks := r.aboveThreshold(free, avg)
		if len(sources) == 0 || len(sinks) == 0 {
			break
		}

		movedThisPass := false
		for _, s := range r.Pool.Volumes {
			if !contains(sources, s) {
				continue
			}
			candidates, err := r.movableFiles(s)
			if err != nil {
				return moves, err
			}

			for free[s] < avg && len(candidates) > 0 {
				budget := avg - free[s]
				idx := firstFitIndex(candidates, budget)
				if idx < 0 {
					break
				}
				f := candidates[idx]

				sinks = r.aboveThreshold(free, avg)
				target := r.pickTarget(sinks, f, free)
				if target == nil {
					candidates = append(candidates[:idx], candidates[idx+1:]...)
					continue
				}

				if err := r.moveFile(f, target); err != nil {
					return moves, err
				}
				moves = append(moves, MovedFile{Path: f.Logical.String(), From: s, To: target, Size: f.Size})
				free[s] += f.Size
				free[target] -= f.Size
				movedThisPass = true
				candidates = append(candidates[:idx], candidates[idx+1:]...)
			}
		}
		if !movedThisPass {
			break
		}
	}

	r.Sink.Emit(events.Event{Kind: events.KindRebalanceCompleted, PoolID: r.Pool.ID.String()})
	return moves, nil
}

func (r *Rebalancer) belowThreshold(free map[*pooltypes.Volume]pooltypes.ByteSize, avg pooltypes.ByteSize) []*pooltypes.Volume {
	var out []*pooltypes.Volume
	for _, v := range r.Pool.Volumes {
		if free[v] < avg-r.MinDiff {
			out = append(out, v)
		}
	}
	return out
}

func (r *Rebalancer) aboveThreshold(free map[*pooltypes.Volume]pooltypes.ByteSize, avg pooltypes.ByteSize) []*pooltypes.Volume {
	var out []*pooltypes.Volume
	for _, v := range r.Pool.Volumes {
		if free[v] > avg+r.MinDiff {
			out = append(out, v)
		}
	}
	return out
}

func contains(vs []*pooltypes.Volume, v *pooltypes.Volume) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// movableFiles enumerates every physical file on v that meets r.MinFile,
// sorted by descending size.
func (r *Rebalancer) movableFiles(v *pooltypes.Volume) ([]pooltypes.PhysicalItem, error) {
	items, err := physical.Enumerate(v, true)
	if err != nil {
		return nil, err
	}
	var files []pooltypes.PhysicalItem
	for _, it := range items {
		if it.Kind == pooltypes.PhysicalItemFile && it.Size >= r.MinFile {
			files = append(files, it)
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Size > files[j].Size })
	return files, nil
}

func firstFitIndex(candidates []pooltypes.PhysicalItem, budget pooltypes.ByteSize) int {
	for i, f := range candidates {
		if f.Size <= budget {
			return i
		}
	}
	return -1
}

// pickTarget chooses the first sink volume (pool order) with enough free
// space that doesn't already hold f, primary or shadow.
func (r *Rebalancer) pickTarget(sinks []*pooltypes.Volume, f pooltypes.PhysicalItem, free map[*pooltypes.Volume]pooltypes.ByteSize) *pooltypes.Volume {
	for _, t := range r.Pool.Volumes {
		if !contains(sinks, t) || t == f.Volume {
			continue
		}
		if free[t] <= f.Size {
			continue
		}
		if r.alreadyHolds(t, f) {
			continue
		}
		return t
	}
	return nil
}

func (r *Rebalancer) alreadyHolds(v *pooltypes.Volume, f pooltypes.PhysicalItem) bool {
	file, err := r.Overlay.GetFile(f.Logical)
	if err != nil {
		return false
	}
	return file.LocationOn(v) != nil
}

// moveFile relocates f to target, preserving its primary/shadow role.
func (r *Rebalancer) moveFile(f pooltypes.PhysicalItem, target *pooltypes.Volume) error {
	folder := f.Logical.Parent()
	name := f.Logical.Base()
	var dst string
	if f.IsShadow {
		dst = physical.SentinelDirPath(target, folder, 0) + string(os.PathSeparator) + name
	} else {
		dst = target.Root + string(os.PathSeparator) + joinSegments(folder, name)
	}
	if err := fileops.MoveAcrossVolumes(f.DiskPath, dst); err != nil {
		return err
	}
	r.Sink.Emit(events.Event{Kind: events.KindFileMoved, PoolID: r.Pool.ID.String(), Message: f.Logical.String()})
	return nil
}

func joinSegments(folder pooltypes.FolderPath, name string) string {
	segs := append(folder.Segments(), name)
	out := segs[0]
	for _, s := range segs[1:] {
		out += string(os.PathSeparator) + s
	}
	return out
}
