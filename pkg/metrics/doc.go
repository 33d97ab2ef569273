/*
Package metrics exposes Prometheus instrumentation for the pool engine:
detection, integrity checking, repair, and rebalancing.

Gauges (VolumesTotal, PoolBytesTotal, PoolBytesFree) are kept current by
a Collector polling an engine.Pool on a ticker. Counters and histograms
(IssuesFoundTotal, RepairsAppliedTotal, RebalanceMovesTotal, and friends)
are recorded by callers as operations complete, using the Timer helper
to measure duration:

	t := metrics.NewTimer()
	issues, err := checker.Check(false)
	t.ObserveDurationVec(metrics.CheckDuration, "false")

Handler returns the promhttp handler for mounting under an HTTP mux.
HealthHandler, ReadyHandler, and LivenessHandler expose component health
tracked through RegisterComponent/UpdateComponent, independent of the
Prometheus registry.
*/
package metrics
