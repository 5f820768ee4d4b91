package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-migrate/internal/database/dbtest"
	"db-migrate/internal/schema"
)

func refs(name string, to ...string) *schema.TableSchema {
	ts := &schema.TableSchema{Name: name}
	for _, r := range to {
		ts.ForeignKeys = append(ts.ForeignKeys, schema.ForeignKey{Column: r + "_id", RefTable: r, RefColumn: "id"})
	}
	return ts
}

func schemas(list ...*schema.TableSchema) map[string]*schema.TableSchema {
	m := make(map[string]*schema.TableSchema)
	for _, ts := range list {
		m[ts.Name] = ts
	}
	return m
}

func TestOrder_ReverseChain(t *testing.T) {
	// bets -> settings -> guilds
	s := schemas(refs("bets", "settings"), refs("settings", "guilds"), refs("guilds"))

	sorted, err := schema.Order([]string{"bets", "settings", "guilds"}, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"guilds", "settings", "bets"}, sorted)
}

func TestOrder_Simple(t *testing.T) {
	// Users -> Orders -> OrderItems
	s := schemas(refs("OrderItems", "Orders"), refs("Orders", "Users"), refs("Users"))

	sorted, err := schema.Order([]string{"OrderItems", "Orders", "Users"}, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"Users", "Orders", "OrderItems"}, sorted)
}

func TestOrder_TiesKeepInputOrder(t *testing.T) {
	s := schemas(refs("c"), refs("a"), refs("b", "c"), refs("d"))

	sorted, err := schema.Order([]string{"c", "b", "a", "d"}, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a", "d"}, sorted)
}

func TestOrder_IgnoresReferencesOutsideRequest(t *testing.T) {
	s := schemas(refs("orders", "users", "audit"), refs("users"))

	sorted, err := schema.Order([]string{"orders", "users"}, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, sorted)
}

func TestOrder_SelfReferenceIsNotACycle(t *testing.T) {
	s := schemas(refs("employees", "employees"))

	sorted, err := schema.Order([]string{"employees"}, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"employees"}, sorted)
}

func TestOrder_MatchesNamesCaseInsensitively(t *testing.T) {
	s := schemas(refs("Orders", "USERS"), refs("users"))

	sorted, err := schema.Order([]string{"Orders", "users"}, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"users", "Orders"}, sorted)
}

func TestOrder_MutualReferences(t *testing.T) {
	s := schemas(refs("a", "b"), refs("b", "a"))

	sorted, err := schema.Order([]string{"a", "b"}, s)

	var cycle *schema.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"a", "b"}, cycle.Tables)
	assert.Empty(t, cycle.Blocked)
	assert.Empty(t, sorted)
}

func TestOrder_ComplexCircular(t *testing.T) {
	// A -> B -> C -> D -> E -> A (cycle)
	// F -> E
	// G (independent)
	s := schemas(
		refs("A", "B"), refs("B", "C"), refs("C", "D"), refs("D", "E"), refs("E", "A"),
		refs("F", "E"), refs("G"),
	)

	sorted, err := schema.Order([]string{"A", "B", "C", "D", "E", "F", "G"}, s)

	var cycle *schema.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"G"}, sorted)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, cycle.Tables)
	assert.Equal(t, []string{"F"}, cycle.Blocked)
	assert.Contains(t, err.Error(), "A, B, C, D, E")
}

func TestOrder_TableBetweenTwoCyclesIsBlocked(t *testing.T) {
	// a <-> b and c <-> d are cycles; x references a and c references x.
	s := schemas(
		refs("a", "b"), refs("b", "a"),
		refs("c", "d", "x"), refs("d", "c"),
		refs("x", "a"),
	)

	sorted, err := schema.Order([]string{"a", "b", "x", "c", "d"}, s)

	var cycle *schema.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Empty(t, sorted)
	assert.Equal(t, []string{"a", "b", "c", "d"}, cycle.Tables)
	assert.Equal(t, []string{"x"}, cycle.Blocked)
}

func TestOrder_RespectsEveryEdge(t *testing.T) {
	s := schemas(
		refs("payment", "rental", "customer", "staff"),
		refs("rental", "inventory", "customer", "staff"),
		refs("inventory", "film", "store"),
		refs("customer", "store", "address"),
		refs("staff", "address"),
		refs("store", "address"),
		refs("film", "language"),
		refs("address", "city"),
		refs("city", "country"),
		refs("country"),
		refs("language"),
	)
	input := []string{"payment", "rental", "inventory", "customer", "staff", "store", "film", "address", "city", "country", "language"}

	sorted, err := schema.Order(input, s)
	require.NoError(t, err)
	require.Len(t, sorted, len(input))

	pos := make(map[string]int)
	for i, name := range sorted {
		pos[name] = i
	}
	for _, ts := range s {
		for _, ref := range ts.References() {
			assert.Less(t, pos[ref], pos[ts.Name], "%s must come before %s", ref, ts.Name)
		}
	}
}

func newLegacy() *dbtest.Fake {
	return dbtest.New("source",
		&dbtest.Table{
			Name: "Accounts",
			Columns: []dbtest.Column{
				{Name: "id", Type: "int(11)", PK: true, AutoInc: true},
				{Name: "active", Type: "tinyint(1)", Nullable: true},
				{Name: "balance", Type: "decimal(12,2)", Default: dbtest.Str("0.00")},
			},
		},
		&dbtest.Table{
			Name: "orders",
			Columns: []dbtest.Column{
				{Name: "id", Type: "bigint", PK: true},
				{Name: "account_id", Type: "int(11)"},
				{Name: "placed_at", Type: "datetime"},
			},
			FKs: []dbtest.FK{{Column: "account_id", RefTable: "Accounts", RefColumn: "id"}},
		},
	)
}

func TestCatalog_Describe(t *testing.T) {
	ctx := context.Background()
	cat := schema.NewCatalog(newLegacy())

	ts, err := cat.Describe(ctx, "accounts")
	require.NoError(t, err)

	assert.Equal(t, "Accounts", ts.Name)
	require.Len(t, ts.Columns, 3)

	id := ts.Columns[0]
	assert.Equal(t, schema.Integer, id.Type.Family)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Nullable)
	assert.Equal(t, 1, id.Position)

	active, ok := ts.Column("ACTIVE")
	require.True(t, ok)
	assert.Equal(t, schema.Boolean, active.Type.Family)
	assert.Equal(t, "tinyint(1)", active.Type.Raw)
	assert.True(t, active.Nullable)

	balance, _ := ts.Column("balance")
	assert.Equal(t, schema.Decimal, balance.Type.Family)
	assert.Equal(t, 12, balance.Type.Precision)
	assert.Equal(t, 2, balance.Type.Scale)
	assert.True(t, balance.HasDefault)
	assert.Equal(t, "0.00", balance.Default)

	assert.Equal(t, []string{"id"}, ts.PrimaryKey())
}

func TestCatalog_DescribeForeignKeys(t *testing.T) {
	cat := schema.NewCatalog(newLegacy())

	ts, err := cat.Describe(context.Background(), "orders")
	require.NoError(t, err)

	require.Len(t, ts.ForeignKeys, 1)
	assert.Equal(t, schema.ForeignKey{Column: "account_id", RefTable: "Accounts", RefColumn: "id"}, ts.ForeignKeys[0])
	assert.Equal(t, []string{"Accounts"}, ts.References())
}

func TestCatalog_SchemaNotFound(t *testing.T) {
	cat := schema.NewCatalog(newLegacy())

	_, err := cat.Describe(context.Background(), "ghosts")

	var nf *schema.SchemaNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "source", nf.System)
	assert.Equal(t, "ghosts", nf.Table)
}

func TestCatalog_Memoizes(t *testing.T) {
	ctx := context.Background()
	db := newLegacy()
	cat := schema.NewCatalog(db)

	first, err := cat.Describe(ctx, "orders")
	require.NoError(t, err)
	second, err := cat.Describe(ctx, "ORDERS")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, db.Statements("COLUMNS"), 1)
	assert.Len(t, db.Statements("TABLES"), 1)
}

func TestCatalog_RowCount(t *testing.T) {
	db := newLegacy()
	db.Table("orders").Rows = []map[string]any{{"id": int64(1)}, {"id": int64(2)}}
	cat := schema.NewCatalog(db)

	n, err := cat.RowCount(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCatalog_QueryFailureIsWrapped(t *testing.T) {
	db := newLegacy()
	db.Hook = func(q string) error {
		if q == "COLUMNS" {
			return dbtest.ErrInjected
		}
		return nil
	}
	cat := schema.NewCatalog(db)

	_, err := cat.Describe(context.Background(), "orders")

	assert.ErrorIs(t, err, dbtest.ErrInjected)
	assert.Contains(t, err.Error(), "failed to query columns of orders on source")
}
