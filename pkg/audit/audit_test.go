package audit

import (
	"testing"
	"time"

	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListCheckRuns(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	older := CheckRun{ID: "1", PoolID: "p1", StartedAt: time.Now().Add(-time.Hour), Deep: false}
	newer := CheckRun{
		ID: "2", PoolID: "p1", StartedAt: time.Now(), Deep: true,
		Issues: []pooltypes.IntegrityIssue{{Kind: pooltypes.MissingShadowCopy}},
	}
	require.NoError(t, store.RecordCheckRun(older))
	require.NoError(t, store.RecordCheckRun(newer))

	runs, err := store.ListCheckRuns("p1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "2", runs[0].ID)
	assert.Equal(t, "1", runs[1].ID)
}

func TestListCheckRunsFiltersByPool(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordCheckRun(CheckRun{ID: "a", PoolID: "p1", StartedAt: time.Now()}))
	require.NoError(t, store.RecordCheckRun(CheckRun{ID: "b", PoolID: "p2", StartedAt: time.Now()}))

	runs, err := store.ListCheckRuns("p2")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].ID)
}

func TestRecordAndListRepairRuns(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	run := RepairRun{ID: "r1", PoolID: "p1", StartedAt: time.Now(), Fixers: []string{"fix_missing_primaries"}, IssueCount: 3}
	require.NoError(t, store.RecordRepairRun(run))

	runs, err := store.ListRepairRuns("p1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].IssueCount)
}
