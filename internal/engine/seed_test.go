package engine_test

import (
	"context"
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-migrate/internal/database/dbtest"
	"db-migrate/internal/engine"
	"db-migrate/internal/schema"
)

func rehearsalDB() *dbtest.Fake {
	return dbtest.New("scratch",
		&dbtest.Table{
			Name: "settings",
			Columns: []C{
				{Name: "id", Type: "int", PK: true},
				{Name: "guild_id", Type: "int"},
				{Name: "flag", Type: "boolean"},
				{Name: "created_at", Type: "timestamp"},
			},
			FKs: []dbtest.FK{{Column: "guild_id", RefTable: "guilds", RefColumn: "id"}},
		},
		&dbtest.Table{
			Name: "guilds",
			Columns: []C{
				{Name: "id", Type: "int", PK: true},
				{Name: "name", Type: "varchar(8)"},
				{Name: "owner_email", Type: "varchar(120)", Unique: true},
				{Name: "balance", Type: "numeric(8,2)", Nullable: true},
			},
		},
	)
}

func TestSeed_ParentsFirstWithValidReferences(t *testing.T) {
	db := rehearsalDB()
	seeder := engine.NewSeeder(db, schema.NewCatalog(db), 42)

	results, err := seeder.Seed(context.Background(), []string{"settings", "guilds"}, 5, nil)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "guilds", results[0].Table)
	assert.Equal(t, "settings", results[1].Table)
	for _, r := range results {
		assert.Equal(t, engine.StatusOK, r.Status, r.Error)
		assert.Equal(t, 5, r.Inserted)
		assert.Equal(t, int64(5), r.Actual)
	}

	ids := map[string]bool{}
	for _, g := range db.Table("guilds").Rows {
		ids[fmt.Sprint(g["id"])] = true
		assert.LessOrEqual(t, utf8.RuneCountInString(g["name"].(string)), 8)
	}
	for _, s := range db.Table("settings").Rows {
		assert.True(t, ids[fmt.Sprint(s["guild_id"])], "guild_id %v", s["guild_id"])
	}
}

func TestSeed_UnsatisfiableReferenceSkipsTable(t *testing.T) {
	db := rehearsalDB()
	seeder := engine.NewSeeder(db, schema.NewCatalog(db), 1)

	results, err := seeder.Seed(context.Background(), []string{"settings"}, 3, nil)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, engine.StatusSkipped, results[0].Status)
	assert.Contains(t, results[0].Error, "no rows in guilds")
	assert.Zero(t, db.Count("settings"))
}

func TestSeed_AppendsAfterExistingKeys(t *testing.T) {
	db := rehearsalDB()
	seeder := engine.NewSeeder(db, schema.NewCatalog(db), 7)
	_, err := seeder.Seed(context.Background(), []string{"guilds"}, 3, nil)
	require.NoError(t, err)

	results, err := engine.NewSeeder(db, schema.NewCatalog(db), 8).Seed(context.Background(), []string{"guilds"}, 3, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, results[0].Inserted)
	assert.Equal(t, 6, db.Count("guilds"))
}

func TestMeaning(t *testing.T) {
	assert.Equal(t, "user phone number", schema.Meaning("usr_tel_no"))
	assert.Equal(t, "owner email", schema.Meaning("owner_email"))
	assert.Equal(t, "yesno active", schema.Meaning("is_active"))
}
