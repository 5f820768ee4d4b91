package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-migrate/internal/engine"
	"db-migrate/internal/schema"
)

func TestClean_ChildrenFirst(t *testing.T) {
	src, dst := legacySource(), modernTarget()
	run(t, context.Background(), src, dst, engine.Options{SuspendConstraints: true}, "all")
	dst.Log = nil

	results, err := engine.Clean(context.Background(), dst, schema.NewCatalog(dst), []string{"guilds", "bets", "settings"})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "bets", results[0].Table)
	assert.Equal(t, int64(2), results[0].Deleted)
	assert.Equal(t, "guilds", results[2].Table)
	assert.Equal(t, []string{"DELETE|bets", "DELETE|settings", "DELETE|guilds"}, dst.Statements("DELETE"))
	assert.Zero(t, dst.Count("settings"))
	assert.False(t, dst.Suspended())
}
