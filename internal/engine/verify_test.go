package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-migrate/internal/engine"
	"db-migrate/internal/schema"
)

func TestVerify_CountsAndSamplesCriticalTables(t *testing.T) {
	src, dst := legacySource(), modernTarget()
	run(t, context.Background(), src, dst, engine.Options{SuspendConstraints: true}, "all")

	v := &engine.Verifier{Source: schema.NewCatalog(src), Target: schema.NewCatalog(dst), SampleRows: 2}
	report := v.Verify(context.Background(), []string{"guilds", "settings", "bets"}, []string{"settings"})

	require.Len(t, report.Tables, 3)
	assert.Empty(t, report.Mismatched)
	for _, check := range report.Tables {
		assert.True(t, check.Match, check.Table)
		assert.Equal(t, check.SourceCount, check.TargetCount)
	}

	settings := report.Tables[1]
	assert.True(t, settings.Critical)
	require.Len(t, settings.Sample, 2)
	assert.Equal(t, "10", settings.Sample[0]["id"].String())
	assert.Equal(t, "true", settings.Sample[0]["flag"].String())
	assert.Empty(t, report.Tables[0].Sample, "non-critical tables are not sampled")
}

func TestVerify_ReportsMismatchWithoutFixing(t *testing.T) {
	src, dst := legacySource(), modernTarget()
	run(t, context.Background(), src, dst, engine.Options{SuspendConstraints: true}, "all")
	dst.Table("bets").Rows = dst.Table("bets").Rows[:1]

	v := &engine.Verifier{Source: schema.NewCatalog(src), Target: schema.NewCatalog(dst)}
	report := v.Verify(context.Background(), []string{"guilds", "settings", "bets"}, nil)

	assert.Equal(t, []string{"bets"}, report.Mismatched)
	assert.Equal(t, int64(2), report.Tables[2].SourceCount)
	assert.Equal(t, int64(1), report.Tables[2].TargetCount)
	assert.Equal(t, 1, dst.Count("bets"))
}

func TestVerify_CriticalTableOutsideRunIsChecked(t *testing.T) {
	src, dst := legacySource(), modernTarget()

	v := &engine.Verifier{Source: schema.NewCatalog(src), Target: schema.NewCatalog(dst)}
	report := v.Verify(context.Background(), []string{"guilds"}, []string{"Guilds", "ghosts"})

	require.Len(t, report.Tables, 2)
	assert.Equal(t, "guilds", report.Tables[0].Table)
	assert.True(t, report.Tables[0].Critical)
	assert.Equal(t, "ghosts", report.Tables[1].Table)
	assert.Contains(t, report.Tables[1].Error, "not found")
	assert.ElementsMatch(t, []string{"guilds", "ghosts"}, report.Mismatched)
}
