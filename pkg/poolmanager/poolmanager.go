// Package poolmanager implements the Pool Manager (§4.10): pool and
// volume lifecycle operations that share the engine's invariants —
// create/delete a pool, add/remove/replace a volume, and the free-space
// pre-check that guards volume removal.
package poolmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/poolfs/pkg/capability"
	"github.com/cuemby/poolfs/pkg/descriptor"
	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/fileops"
	"github.com/cuemby/poolfs/pkg/physical"
	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/cuemby/poolfs/pkg/rebalance"
)

// Manager orchestrates pool and volume lifecycle operations.
type Manager struct {
	FreeSpace capability.FreeSpaceProbe
	Sink      events.Sink
}

// New constructs a Manager.
func New(freeSpace capability.FreeSpaceProbe, sink events.Sink) *Manager {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Manager{FreeSpace: freeSpace, Sink: sink}
}

// CreatePool generates a fresh pool id, and on every drive path creates
// the pool's data directory and writes a descriptor file. mountPoint is
// accepted for parity with the lifecycle API surface but is otherwise
// the concern of a virtual-filesystem front-end, out of this engine's
// scope. Fails without creating anything if any drive path is missing.
func (m *Manager) CreatePool(name pooltypes.PoolName, mountPoint string, drivePaths []string) (*pooltypes.Pool, error) {
	if len(drivePaths) == 0 {
		return nil, poolerr.New(poolerr.InvalidArgument, "CreatePool", "pool must have at least one drive")
	}
	drives := make([]pooltypes.DrivePath, 0, len(drivePaths))
	for _, p := range drivePaths {
		d, err := pooltypes.NewDrivePath(p)
		if err != nil {
			return nil, err
		}
		drives = append(drives, d)
	}

	id := pooltypes.NewPoolID()
	pool := &pooltypes.Pool{ID: id}
	for _, d := range drives {
		vol, err := m.provision(id, name, d)
		if err != nil {
			return nil, err
		}
		pool.Volumes = append(pool.Volumes, vol)
	}

	m.Sink.Emit(events.Event{Kind: events.KindPoolCreated, PoolID: id.String(), Message: name.String()})
	return pool, nil
}

func (m *Manager) provision(id pooltypes.PoolID, name pooltypes.PoolName, drive pooltypes.DrivePath) (*pooltypes.Volume, error) {
	poolRoot := filepath.Join(drive.String(), id.DirName())
	if err := fileops.EnsureDir(poolRoot); err != nil {
		return nil, err
	}
	if err := writeDescriptor(drive.String(), id, name, ""); err != nil {
		return nil, err
	}
	vol := &pooltypes.Volume{
		Label:     name.String(),
		PoolID:    id,
		MountRoot: drive,
		Root:      poolRoot,
	}
	if m.FreeSpace != nil {
		free, total, err := m.FreeSpace.DiskFreeSpace(drive.String())
		if err == nil {
			vol.BytesFree, vol.BytesTotal = free, total
		}
	}
	return vol, nil
}

func writeDescriptor(mountRoot string, id pooltypes.PoolID, name pooltypes.PoolName, description string) error {
	body := fmt.Sprintf("volumelabel:%s\nid:%s\ndescription:%s\ncreated:%s\n",
		name.String(), id.String(), description, time.Now().UTC().Format(time.RFC3339))
	path := filepath.Join(mountRoot, name.String()+descriptor.DescriptorSuffix)
	return fileops.AtomicWrite(path, []byte(body))
}

// DeletePool removes every volume's descriptor; if removeData is true it
// also deletes each volume's `{<id>}` data tree.
func (m *Manager) DeletePool(pool *pooltypes.Pool, removeData bool) error {
	for _, v := range pool.Volumes {
		entries, err := os.ReadDir(v.MountRoot.String())
		if err != nil {
			return poolerr.Wrap(poolerr.Io, "DeletePool", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if hasSuffix(e.Name(), descriptor.DescriptorSuffix) {
				body, err := os.ReadFile(filepath.Join(v.MountRoot.String(), e.Name()))
				if err != nil {
					continue
				}
				fields := descriptor.Parse(body)
				if id, ok := fields["id"]; ok && sameID(id, v.PoolID) {
					if err := fileops.Delete(filepath.Join(v.MountRoot.String(), e.Name())); err != nil {
						return err
					}
				}
			}
		}
		if removeData {
			if err := os.RemoveAll(v.Root); err != nil {
				return poolerr.Wrap(poolerr.Io, "DeletePool", err)
			}
		}
	}
	m.Sink.Emit(events.Event{Kind: events.KindPoolDeleted, PoolID: pool.ID.String()})
	return nil
}

// AddDrive provisions the pool's structure on a new drive using the
// pool's existing id, and appends the resulting volume to pool.
func (m *Manager) AddDrive(pool *pooltypes.Pool, drivePath string) (*pooltypes.Volume, error) {
	drive, err := pooltypes.NewDrivePath(drivePath)
	if err != nil {
		return nil, err
	}
	label := pool.Volumes[0].Label
	name, err := pooltypes.NewPoolName(label)
	if err != nil {
		name = pooltypes.PoolName{}
	}
	vol, err := m.provision(pool.ID, name, drive)
	if err != nil {
		return nil, err
	}
	pool.Volumes = append(pool.Volumes, vol)
	m.Sink.Emit(events.Event{Kind: events.KindDriveAdded, PoolID: pool.ID.String(), Message: drivePath})
	return vol, nil
}

// SpaceCheck is the result of CheckSpaceForDriveRemoval.
type SpaceCheck struct {
	Required       pooltypes.ByteSize
	Available      pooltypes.ByteSize
	Shortfall      pooltypes.ByteSize
	CanRemove      bool
	Recommendation string
}

// CheckSpaceForDriveRemoval computes whether the pool's remaining
// volumes have enough free space to absorb everything stored on target.
func (m *Manager) CheckSpaceForDriveRemoval(pool *pooltypes.Pool, target *pooltypes.Volume) (SpaceCheck, error) {
	items, err := physical.Enumerate(target, true)
	if err != nil {
		return SpaceCheck{}, err
	}
	var required pooltypes.ByteSize
	for _, it := range items {
		if it.Kind == pooltypes.PhysicalItemFile {
			required += it.Size
		}
	}

	var available pooltypes.ByteSize
	for _, v := range pool.Volumes {
		if v == target {
			continue
		}
		available += v.BytesFree
	}

	check := SpaceCheck{Required: required, Available: available}
	if available >= required {
		check.CanRemove = true
		check.Recommendation = "sufficient free space on remaining volumes"
	} else {
		check.Shortfall = required - available
		check.Recommendation = "add a volume or free space before removing this drive"
	}
	return check, nil
}

// RemoveOptions configures RemoveDrive.
type RemoveOptions struct {
	AutoBalance bool
}

// RemoveDrive checks free space elsewhere suffices, migrates every
// physical file off target (largest-free destination first) when
// AutoBalance is set, then tears down the pool structure on target and
// removes it from pool.
func (m *Manager) RemoveDrive(pool *pooltypes.Pool, target *pooltypes.Volume, opts RemoveOptions) error {
	check, err := m.CheckSpaceForDriveRemoval(pool, target)
	if err != nil {
		return err
	}
	if !check.CanRemove {
		return poolerr.New(poolerr.CapacityExceeded, "RemoveDrive", "insufficient free space on remaining volumes")
	}

	if opts.AutoBalance {
		if err := m.migrateOff(pool, target); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(target.Root); err != nil {
		return poolerr.Wrap(poolerr.Io, "RemoveDrive", err)
	}
	entries, err := os.ReadDir(target.MountRoot.String())
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() && hasSuffix(e.Name(), descriptor.DescriptorSuffix) {
				body, rerr := os.ReadFile(filepath.Join(target.MountRoot.String(), e.Name()))
				if rerr != nil {
					continue
				}
				fields := descriptor.Parse(body)
				if id, ok := fields["id"]; ok && sameID(id, target.PoolID) {
					_ = fileops.Delete(filepath.Join(target.MountRoot.String(), e.Name()))
				}
			}
		}
	}

	pool.Volumes = removeVolume(pool.Volumes, target)
	m.Sink.Emit(events.Event{Kind: events.KindDriveRemoved, PoolID: pool.ID.String(), Message: target.Label})
	return nil
}

func (m *Manager) migrateOff(pool *pooltypes.Pool, target *pooltypes.Volume) error {
	items, err := physical.Enumerate(target, true)
	if err != nil {
		return err
	}
	var files []pooltypes.PhysicalItem
	for _, it := range items {
		if it.Kind == pooltypes.PhysicalItemFile {
			files = append(files, it)
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Size > files[j].Size })

	remaining := make([]*pooltypes.Volume, 0, len(pool.Volumes)-1)
	for _, v := range pool.Volumes {
		if v != target {
			remaining = append(remaining, v)
		}
	}
	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].BytesFree > remaining[j].BytesFree })

	for _, f := range files {
		dest := remaining[0]
		var dst string
		if f.IsShadow {
			dst = physical.SentinelDirPath(dest, f.Logical.Parent(), 0) + string(os.PathSeparator) + f.Logical.Base()
		} else {
			dst = dest.Root + string(os.PathSeparator) + joinSegments(f.Logical.Parent(), f.Logical.Base())
		}
		if err := fileops.MoveAcrossVolumes(f.DiskPath, dst); err != nil {
			return err
		}
		dest.BytesFree -= f.Size
		sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].BytesFree > remaining[j].BytesFree })
		m.Sink.Emit(events.Event{Kind: events.KindFileMoved, PoolID: pool.ID.String(), Message: f.Logical.String()})
	}
	return nil
}

// ReplaceOptions configures ReplaceDrive.
type ReplaceOptions struct {
	Rebalance bool
}

// ReplaceDrive removes old with auto-balance, adds new in its place, and
// optionally runs the rebalancer afterward.
func (m *Manager) ReplaceDrive(pool *pooltypes.Pool, old *pooltypes.Volume, newDrivePath string, opts ReplaceOptions) error {
	if err := m.RemoveDrive(pool, old, RemoveOptions{AutoBalance: true}); err != nil {
		return err
	}
	if _, err := m.AddDrive(pool, newDrivePath); err != nil {
		return err
	}
	if opts.Rebalance {
		r := rebalance.New(pool, m.Sink)
		if _, err := r.Rebalance(); err != nil {
			return err
		}
	}
	return nil
}

func removeVolume(volumes []*pooltypes.Volume, target *pooltypes.Volume) []*pooltypes.Volume {
	out := make([]*pooltypes.Volume, 0, len(volumes))
	for _, v := range volumes {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func hasSuffix(name, suffix string) bool {
	return len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

func sameID(raw string, id pooltypes.PoolID) bool {
	parsed, err := pooltypes.ParsePoolID(raw)
	if err != nil {
		return false
	}
	return parsed.Equal(id)
}

func joinSegments(folder pooltypes.FolderPath, name string) string {
	segs := append(folder.Segments(), name)
	out := segs[0]
	for _, s := range segs[1:] {
		out += string(os.PathSeparator) + s
	}
	return out
}
