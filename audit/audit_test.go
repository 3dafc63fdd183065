package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-io/obscura/document"
)

func TestEventLoggerAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run_audit.jsonl")
	logger, err := NewEventLogger(path)
	require.NoError(t, err)
	assert.Equal(t, path, logger.Path())

	require.NoError(t, logger.LogEvent("pipeline", "reporting_started", map[string]any{"file_name": "a.pdf"}))
	require.NoError(t, logger.LogEvent("anonymization", "mappings_exported", map[string]any{"count": 2}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, "pipeline", events[0].Component)
	assert.Equal(t, "reporting_started", events[0].EventType)
	assert.Equal(t, "a.pdf", events[0].Details["file_name"])
	assert.NotEmpty(t, events[0].Timestamp)
	assert.Equal(t, "anonymization", events[1].Component)
}

func TestQualityMetrics(t *testing.T) {
	m := NewQualityMetrics()
	m.Update(MetricAnonymizationCoverage, 0.92)
	m.Update(MetricReidentificationRisk, 0.01)
	m.Update("made_up_metric", 1.0)

	values := m.Values()
	assert.InDelta(t, 0.92, values[MetricAnonymizationCoverage], 1e-9)
	assert.InDelta(t, 0.01, values[MetricReidentificationRisk], 1e-9)
	assert.Zero(t, values[MetricAnalysisAccuracy])
	assert.NotContains(t, values, "made_up_metric")
}

func TestCoverage(t *testing.T) {
	assert.InDelta(t, 1.0, Coverage(nil), 1e-9)
	assert.InDelta(t, 1.0, Coverage(&document.AnonymizationSummary{}), 1e-9)
	assert.InDelta(t, 0.67, Coverage(&document.AnonymizationSummary{
		Redacted: 1, Tokenized: 1, Preserved: 1, Total: 3,
	}), 1e-9)
	assert.InDelta(t, 1.0, Coverage(&document.AnonymizationSummary{
		Redacted: 2, Tokenized: 3, Total: 5,
	}), 1e-9)
}

func testStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := OpenRunStore(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunStoreSaveAndGet(t *testing.T) {
	store := testStore(t)

	started := time.Now().Add(-30 * time.Second).UTC().Truncate(time.Second)
	completed := time.Now().UTC().Truncate(time.Second)
	rec := RunRecord{
		RunID:         "run-1",
		FileName:      "contract.pdf",
		DocumentType:  "Employment Contract",
		Status:        "success",
		Entities:      12,
		Relationships: 4,
		Findings:      2,
		Summary:       &document.AnonymizationSummary{Redacted: 3, Tokenized: 7, Preserved: 2, Total: 12},
		StartedAt:     started,
		CompletedAt:   completed,
	}
	require.NoError(t, store.SaveRun(rec))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, rec.FileName, got.FileName)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Entities, got.Entities)
	require.NotNil(t, got.Summary)
	assert.Equal(t, *rec.Summary, *got.Summary)
	assert.Empty(t, got.Error)

	// Duplicate run IDs are rejected.
	assert.Error(t, store.SaveRun(rec))
}

func TestRunStoreGetMissing(t *testing.T) {
	store := testStore(t)
	_, err := store.GetRun("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestRunStoreListRecent(t *testing.T) {
	store := testStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.SaveRun(RunRecord{
			RunID:       id,
			FileName:    id + ".pdf",
			Status:      "partial",
			Error:       "analysis stage failed",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			CompletedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}))
	}

	recent, err := store.ListRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "run-c", recent[0].RunID, "newest first")
	assert.Equal(t, "run-b", recent[1].RunID)
	assert.Equal(t, "analysis stage failed", recent[0].Error)
	assert.Nil(t, recent[0].Summary)
}
