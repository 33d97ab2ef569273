package metrics

import (
	"time"

	"github.com/cuemby/poolfs/pkg/engine"
)

// Collector periodically samples an engine.Pool's volumes and publishes
// inventory gauges. It does not drive detection, checks, or repairs
// itself; callers record those through the package-level counters and
// histograms as the corresponding operations run.
type Collector struct {
	pool   *engine.Pool
	name   string
	stopCh chan struct{}
}

// NewCollector creates a collector for one detected pool, labelled by
// name in the published metrics.
func NewCollector(pool *engine.Pool, name string) *Collector {
	return &Collector{
		pool:   pool,
		name:   name,
		stopCh: make(chan struct{}),
	}
}

// Start begins sampling on a 15s ticker.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if err := c.pool.RefreshFreeSpace(); err != nil {
		return
	}
	VolumesTotal.WithLabelValues(c.name).Set(float64(len(c.pool.Pool.Volumes)))
	PoolBytesTotal.WithLabelValues(c.name).Set(float64(c.pool.Pool.BytesTotal()))
	PoolBytesFree.WithLabelValues(c.name).Set(float64(c.pool.Pool.BytesFree()))
}
