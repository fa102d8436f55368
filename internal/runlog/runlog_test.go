package runlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "runlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := openTestLog(t)

	runID, err := l.StartRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := l.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].CompletedAt)

	require.NoError(t, l.CompleteRun(ctx, runID, 52, 50, 2, 340, []string{"GU", "AS"}))

	runs, err = l.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusComplete, runs[0].Status)
	assert.NotNil(t, runs[0].CompletedAt)
	assert.Equal(t, 52, runs[0].Attempted)
	assert.Equal(t, 50, runs[0].Succeeded)
	assert.Equal(t, 2, runs[0].Failed)
	assert.Equal(t, 340, runs[0].TotalBills)
	assert.Equal(t, []string{"GU", "AS"}, runs[0].FailedStates)
}

func TestCrawlLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := openTestLog(t)

	runID, err := l.StartRun(ctx)
	require.NoError(t, err)

	okID, err := l.StartCrawl(ctx, runID, "TX")
	require.NoError(t, err)
	badID, err := l.StartCrawl(ctx, runID, "CA")
	require.NoError(t, err)

	require.NoError(t, l.CompleteCrawl(ctx, okID, 12, "data/output/bills_TX_20260825_090000.xlsx"))
	require.NoError(t, l.FailCrawl(ctx, badID, "crawler: CA: context deadline exceeded"))

	crawls, err := l.ListCrawls(ctx, runID)
	require.NoError(t, err)
	require.Len(t, crawls, 2)

	byState := map[string]CrawlEntry{}
	for _, c := range crawls {
		byState[c.State] = c
	}

	assert.Equal(t, StatusComplete, byState["TX"].Status)
	assert.Equal(t, 12, byState["TX"].Bills)
	assert.NotEmpty(t, byState["TX"].Artifact)
	assert.Empty(t, byState["TX"].Error)

	assert.Equal(t, StatusFailed, byState["CA"].Status)
	assert.Contains(t, byState["CA"].Error, "deadline exceeded")
	assert.NotNil(t, byState["CA"].CompletedAt)
}

func TestLastRunStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := openTestLog(t)

	// No completed runs yet: nil, not an error.
	last, err := l.LastRunStart(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	runID, err := l.StartRun(ctx)
	require.NoError(t, err)

	// A running run does not anchor the schedule.
	last, err = l.LastRunStart(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, l.CompleteRun(ctx, runID, 1, 1, 0, 5, nil))

	last, err = l.LastRunStart(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.False(t, last.IsZero())
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runlog.db")

	l, err := Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	runID, err := l.StartRun(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	// Reopening migrates again without clobbering existing rows.
	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()

	runs, err := l.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
}
