// Package engine assembles the pool engine (§9's "polymorphic
// containment" note): one aggregate that owns a pool's volumes and the
// sub-engines operating over them, wired to the same capability sink so
// every layer reports through one injected Sink instead of a global
// logger.
package engine

import (
	"github.com/cuemby/poolfs/pkg/capability"
	"github.com/cuemby/poolfs/pkg/config"
	"github.com/cuemby/poolfs/pkg/descriptor"
	"github.com/cuemby/poolfs/pkg/duplication"
	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/integrity"
	"github.com/cuemby/poolfs/pkg/overlay"
	"github.com/cuemby/poolfs/pkg/poolmanager"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/cuemby/poolfs/pkg/rebalance"
	"github.com/cuemby/poolfs/pkg/repair"
)

// Pool is the aggregate root for one detected storage pool: it owns the
// pool's volumes and exposes every engine operation over them through a
// single injected Sink.
type Pool struct {
	Pool        *pooltypes.Pool
	Overlay     *overlay.Overlay
	Duplication *duplication.Engine
	Repair      *repair.Engine
	Integrity   *integrity.Checker
	Rebalancer  *rebalance.Rebalancer
	Sink        events.Sink

	freeSpace capability.FreeSpaceProbe
}

// New wires a Pool aggregate around an already-detected pooltypes.Pool.
func New(pool *pooltypes.Pool, sink events.Sink, freeSpace capability.FreeSpaceProbe) *Pool {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Pool{
		Pool:        pool,
		Overlay:     overlay.New(pool),
		Duplication: duplication.New(pool, sink),
		Repair:      repair.New(pool, sink),
		Integrity:   integrity.New(pool, sink),
		Rebalancer:  rebalance.New(pool, sink),
		Sink:        sink,
		freeSpace:   freeSpace,
	}
}

// NewWithConfig wires a Pool aggregate the same way New does, but
// applies cfg's rebalancer threshold overrides to the embedded
// Rebalancer.
func NewWithConfig(pool *pooltypes.Pool, sink events.Sink, freeSpace capability.FreeSpaceProbe, cfg *config.Config) *Pool {
	p := New(pool, sink, freeSpace)
	if cfg != nil {
		p.Rebalancer = rebalance.NewWithThresholds(pool, p.Sink, cfg.RebalanceMinDiff(), cfg.RebalanceMinFile())
	}
	return p
}

// DetectPools runs the Volume Detector over mounts and wraps each
// discovered pool in a Pool aggregate.
func DetectPools(mounts capability.MountEnumerator, sink events.Sink, freeSpace capability.FreeSpaceProbe) ([]*Pool, error) {
	det := descriptor.New(mounts, sink)
	pools, err := det.Detect()
	if err != nil {
		return nil, err
	}
	out := make([]*Pool, 0, len(pools))
	for _, p := range pools {
		out = append(out, New(p, sink, freeSpace))
	}
	return out, nil
}

// DetectPoolsWithConfig runs DetectPools using cfg.MountRoots when the
// caller configured an explicit list, falling back to the platform
// default enumerator (Windows drive letters, or /media and /mnt
// subdirectories on POSIX) otherwise. Like NewWithConfig, it applies
// cfg's rebalancer threshold overrides to every detected pool.
func DetectPoolsWithConfig(cfg *config.Config, sink events.Sink, freeSpace capability.FreeSpaceProbe) ([]*Pool, error) {
	var mounts capability.MountEnumerator
	if cfg != nil && cfg.HasMountRoots() {
		mounts = capability.StaticMountEnumerator{Roots: cfg.MountRoots}
	} else {
		mounts = capability.DefaultMountEnumerator()
	}
	pools, err := DetectPools(mounts, sink, freeSpace)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		for _, p := range pools {
			p.Rebalancer = rebalance.NewWithThresholds(p.Pool, p.Sink, cfg.RebalanceMinDiff(), cfg.RebalanceMinFile())
		}
	}
	return pools, nil
}

// RefreshFreeSpace re-queries the injected free-space probe for every
// volume. The rebalancer and the pool manager's space pre-check both
// depend on this being reasonably current; the engine never refreshes it
// implicitly mid-operation (§5: no internal caching, no hidden I/O).
func (p *Pool) RefreshFreeSpace() error {
	if p.freeSpace == nil {
		return nil
	}
	for _, v := range p.Pool.Volumes {
		free, total, err := p.freeSpace.DiskFreeSpace(v.Root)
		if err != nil {
			return err
		}
		v.BytesFree, v.BytesTotal = free, total
	}
	return nil
}

// NewManager constructs a poolmanager.Manager sharing this aggregate's
// capabilities, for lifecycle operations (create/add/remove/replace
// volume) that act on this same pool.
func (p *Pool) NewManager() *poolmanager.Manager {
	return poolmanager.New(p.freeSpace, p.Sink)
}
