// Package audit persists the history of integrity checks and repair runs
// to an embedded BoltDB database, one bucket per run kind, so operators
// can review what the engine has done across restarts.
package audit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCheckRuns  = []byte("check_runs")
	bucketRepairRuns = []byte("repair_runs")
)

// CheckRun records one integrity-check pass over a pool.
type CheckRun struct {
	ID        string                      `json:"id"`
	PoolID    string                      `json:"pool_id"`
	StartedAt time.Time                   `json:"started_at"`
	Deep      bool                        `json:"deep"`
	Issues    []pooltypes.IntegrityIssue  `json:"issues"`
	Duration  time.Duration               `json:"duration"`
}

// RepairRun records one repair-engine pass, including which fixers ran.
type RepairRun struct {
	ID         string        `json:"id"`
	PoolID     string        `json:"pool_id"`
	StartedAt  time.Time     `json:"started_at"`
	Fixers     []string      `json:"fixers"`
	IssueCount int           `json:"issue_count"`
	Errors     []string      `json:"errors"`
	DryRun     bool          `json:"dry_run"`
	Duration   time.Duration `json:"duration"`
}

// Store is the BoltDB-backed run-history store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the audit database under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "poolfs-audit.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, poolerr.Wrap(poolerr.Io, "audit.Open", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketCheckRuns, bucketRepairRuns} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, poolerr.Wrap(poolerr.Io, "audit.Open", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordCheckRun persists run, keyed by its ID.
func (s *Store) RecordCheckRun(run CheckRun) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCheckRuns).Put([]byte(run.ID), data)
	})
}

// RecordRepairRun persists run, keyed by its ID.
func (s *Store) RecordRepairRun(run RepairRun) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRepairRuns).Put([]byte(run.ID), data)
	})
}

// ListCheckRuns returns every recorded check run for poolID, newest first.
func (s *Store) ListCheckRuns(poolID string) ([]CheckRun, error) {
	var runs []CheckRun
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckRuns).ForEach(func(_, v []byte) error {
			var run CheckRun
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			if poolID == "" || run.PoolID == poolID {
				runs = append(runs, run)
			}
			return nil
		})
	})
	if err != nil {
		return nil, poolerr.Wrap(poolerr.Io, "ListCheckRuns", err)
	}
	sortRunsDesc(runs)
	return runs, nil
}

// ListRepairRuns returns every recorded repair run for poolID, newest first.
func (s *Store) ListRepairRuns(poolID string) ([]RepairRun, error) {
	var runs []RepairRun
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRepairRuns).ForEach(func(_, v []byte) error {
			var run RepairRun
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			if poolID == "" || run.PoolID == poolID {
				runs = append(runs, run)
			}
			return nil
		})
	})
	if err != nil {
		return nil, poolerr.Wrap(poolerr.Io, "ListRepairRuns", err)
	}
	sortRepairRunsDesc(runs)
	return runs, nil
}

func sortRunsDesc(runs []CheckRun) {
	for i := 1; i < len(runs); i++ {
		for j := i; j > 0 && runs[j].StartedAt.After(runs[j-1].StartedAt); j-- {
			runs[j], runs[j-1] = runs[j-1], runs[j]
		}
	}
}

func sortRepairRunsDesc(runs []RepairRun) {
	for i := 1; i < len(runs); i++ {
		for j := i; j > 0 && runs[j].StartedAt.After(runs[j-1].StartedAt); j-- {
			runs[j], runs[j-1] = runs[j-1], runs[j]
		}
	}
}
