package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosure-lab/internal/domain"
)

func newTestMetric(runID, source, stage string, startedAt time.Time) *domain.PipelineRunMetric {
	return &domain.PipelineRunMetric{
		RunID:           runID,
		Source:          source,
		Stage:           stage,
		Status:          "success",
		RecordsInput:    100,
		RecordsOutput:   95,
		RecordsSkipped:  3,
		RecordsFailed:   2,
		DurationSeconds: 1.5,
		StartedAt:       startedAt,
	}
}

func TestRunMetricStore_InsertBulkAndListByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunMetricStore(conn)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	metrics := []*domain.PipelineRunMetric{
		newTestMetric("run-1", "us_house", "ingest", base),
		newTestMetric("run-1", "us_house", "clean", base.Add(time.Second)),
		newTestMetric("run-1", "us_house", "normalize", base.Add(2*time.Second)),
		newTestMetric("run-1", "us_house", "publish", base.Add(3*time.Second)),
		newTestMetric("run-2", "us_senate", "ingest", base.Add(time.Minute)),
	}
	require.NoError(t, store.InsertBulk(ctx, metrics))

	got, err := store.ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "ingest", got[0].Stage)
	assert.Equal(t, "publish", got[3].Stage)
	assert.Equal(t, int64(100), got[0].RecordsInput)
	assert.Equal(t, int64(95), got[0].RecordsOutput)
	assert.Equal(t, 1.5, got[0].DurationSeconds)
	assert.Equal(t, base, got[0].StartedAt)
}

func TestRunMetricStore_ListBySource(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunMetricStore(conn)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	metrics := []*domain.PipelineRunMetric{
		newTestMetric("run-1", "us_house", "ingest", base),
		newTestMetric("run-2", "us_house", "ingest", base.Add(time.Hour)),
		newTestMetric("run-3", "us_senate", "ingest", base.Add(2*time.Hour)),
	}
	require.NoError(t, store.InsertBulk(ctx, metrics))

	got, err := store.ListBySource(ctx, "us_house", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-2", got[0].RunID)
	assert.Equal(t, "run-1", got[1].RunID)

	capped, err := store.ListBySource(ctx, "us_house", 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestRunMetricStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunMetricStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
