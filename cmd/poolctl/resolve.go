package main

import (
	"fmt"

	"github.com/cuemby/poolfs/pkg/capability"
	"github.com/cuemby/poolfs/pkg/engine"
	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/log"
	"github.com/cuemby/poolfs/pkg/pooltypes"
)

// detectAll runs the volume detector over the configured (or
// platform-default) mount roots, wires each discovered pool with the
// configured rebalancer thresholds, and refreshes every volume's free
// space before returning.
func detectAll(component string) ([]*engine.Pool, error) {
	sink := log.NewZerologSink(component)
	pools, err := engine.DetectPoolsWithConfig(cfg, sink, capability.DefaultFreeSpaceProbe())
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		if err := p.RefreshFreeSpace(); err != nil {
			return nil, err
		}
		p.Sink.Emit(events.Event{Kind: events.KindPoolDetected, PoolID: p.Pool.ID.String()})
	}
	return pools, nil
}

// wrapPool builds an engine.Pool aggregate around a freshly created
// pooltypes.Pool, for callers (like apply) that construct a pool in the
// same process rather than detecting an existing one.
func wrapPool(pool *pooltypes.Pool) *engine.Pool {
	return engine.NewWithConfig(pool, log.NewZerologSink("apply"), capability.DefaultFreeSpaceProbe(), cfg)
}

// resolvePool detects every pool and returns the one matching poolID.
func resolvePool(component, poolID string) (*engine.Pool, error) {
	pools, err := detectAll(component)
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		if p.Pool.ID.String() == poolID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no pool with id %q detected on configured mount roots", poolID)
}
