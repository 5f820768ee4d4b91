package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-migrate/internal/engine"
)

func TestTableResult_RecordKeepsCountsConsistent(t *testing.T) {
	src, dst := usersWithDuplicateAt(30, 0)
	report := run(t, context.Background(), src, dst, engine.Options{}, "users")
	res := report.Tables[0]

	res.Record(engine.RowOutcome{Outcome: engine.Failed, Row: "id=1", Reason: "same"})
	res.Record(engine.RowOutcome{Outcome: engine.Failed, Row: "id=2", Reason: "same"})
	res.Record(engine.RowOutcome{Outcome: engine.Skipped})

	assert.Equal(t, int64(32), res.Attempted)
	assert.Equal(t, res.Attempted, res.Migrated+res.Failed)
	assert.Equal(t, int64(1), res.Skipped)
	assert.Len(t, res.SampleFailures, 1, "repeated reasons are sampled once")
}

func TestRunReport_JSONShape(t *testing.T) {
	src, dst := usersWithDuplicateAt(10, 4)
	report := run(t, context.Background(), src, dst, engine.Options{}, "users")

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "replace", doc["mode"])

	summary := doc["summary"].(map[string]any)
	assert.Equal(t, float64(10), summary["total_attempted"])
	assert.Equal(t, float64(9), summary["total_migrated"])
	assert.Equal(t, float64(1), summary["total_failed"])
	assert.Equal(t, float64(0), summary["tables_skipped"])

	tables := doc["tables"].([]any)
	require.Len(t, tables, 1)
	table := tables[0].(map[string]any)
	for _, key := range []string{"table", "attempted", "migrated", "failed", "sample_failures", "duration_ms"} {
		assert.Contains(t, table, key)
	}
	assert.Equal(t, "partial", table["status"])
}

func TestParseMode(t *testing.T) {
	m, err := engine.ParseMode(" Append ")
	require.NoError(t, err)
	assert.Equal(t, engine.Append, m)

	_, err = engine.ParseMode("upsert")
	assert.Error(t, err)
}

func TestLogProgress_LogsAtCadence(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	logrus.SetLevel(logrus.InfoLevel)

	p := engine.NewProgress(false, 10)
	tr := p.Start("users", 35)
	for i := 0; i < 7; i++ {
		tr.Add(5)
	}
	tr.Done()
	p.Stop()

	var lines []string
	for _, e := range hook.AllEntries() {
		lines = append(lines, e.Message)
	}
	assert.Equal(t, []string{
		"10/35 rows processed",
		"20/35 rows processed",
		"30/35 rows processed",
		"35 rows processed",
	}, lines)
}
