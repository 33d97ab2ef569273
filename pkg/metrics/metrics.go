package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool inventory metrics
	VolumesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolfs_volumes_total",
			Help: "Total number of volumes by pool",
		},
		[]string{"pool"},
	)

	PoolBytesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolfs_pool_bytes_total",
			Help: "Total capacity of a pool in bytes",
		},
		[]string{"pool"},
	)

	PoolBytesFree = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolfs_pool_bytes_free",
			Help: "Free capacity of a pool in bytes",
		},
		[]string{"pool"},
	)

	// Detection metrics
	DetectionRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "poolfs_detection_runs_total",
			Help: "Total number of volume detection passes",
		},
	)

	DetectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poolfs_detection_duration_seconds",
			Help:    "Time taken to scan mount roots and group volumes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Integrity checker metrics
	IssuesFoundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolfs_issues_found_total",
			Help: "Total number of integrity issues found by kind",
		},
		[]string{"pool", "kind"},
	)

	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poolfs_check_duration_seconds",
			Help:    "Time taken for a check pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"deep"},
	)

	// Repair engine metrics
	RepairsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolfs_repairs_applied_total",
			Help: "Total number of repairs applied by fixer name",
		},
		[]string{"pool", "fixer"},
	)

	RepairsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolfs_repairs_failed_total",
			Help: "Total number of repair attempts that failed",
		},
		[]string{"pool", "fixer"},
	)

	RepairDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poolfs_repair_duration_seconds",
			Help:    "Time taken to run a fixer in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"fixer"},
	)

	// Rebalancer metrics
	RebalanceMovesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolfs_rebalance_moves_total",
			Help: "Total number of files moved by the rebalancer",
		},
		[]string{"pool"},
	)

	RebalanceBytesMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolfs_rebalance_bytes_moved_total",
			Help: "Total bytes moved by the rebalancer",
		},
		[]string{"pool"},
	)

	RebalanceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poolfs_rebalance_duration_seconds",
			Help:    "Time taken for a rebalance pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Pool lifecycle metrics
	DriveOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolfs_drive_operations_total",
			Help: "Total number of drive lifecycle operations by kind and status",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(VolumesTotal)
	prometheus.MustRegister(PoolBytesTotal)
	prometheus.MustRegister(PoolBytesFree)
	prometheus.MustRegister(DetectionRunsTotal)
	prometheus.MustRegister(DetectionDuration)
	prometheus.MustRegister(IssuesFoundTotal)
	prometheus.MustRegister(CheckDuration)
	prometheus.MustRegister(RepairsAppliedTotal)
	prometheus.MustRegister(RepairsFailedTotal)
	prometheus.MustRegister(RepairDuration)
	prometheus.MustRegister(RebalanceMovesTotal)
	prometheus.MustRegister(RebalanceBytesMoved)
	prometheus.MustRegister(RebalanceDuration)
	prometheus.MustRegister(DriveOperationsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
