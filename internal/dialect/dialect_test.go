package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-migrate/internal/dialect"
)

func TestGetDialect(t *testing.T) {
	for driver, name := range map[string]string{
		"mysql": "mysql", "postgres": "postgres", "pgx": "postgres", "sqlserver": "sqlserver", "mssql": "sqlserver", "oracle": "oracle",
	} {
		d, err := dialect.GetDialect(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, name, d.Name(), driver)
	}

	_, err := dialect.GetDialect("sqlite")
	assert.Error(t, err)
}

func TestInsertQuery_Postgres(t *testing.T) {
	d := &dialect.PostgresDialect{}

	q := d.InsertQuery("bets", []string{"id", "amount"}, 2)

	assert.Equal(t, `INSERT INTO "bets" ("id", "amount") VALUES ($1, $2), ($3, $4)`, q)
}

func TestInsertQuery_MySQL(t *testing.T) {
	d := &dialect.MysqlDialect{}

	q := d.InsertQuery("user`s", []string{"id"}, 2)

	assert.Equal(t, "INSERT INTO `user``s` (`id`) VALUES (?), (?)", q)
}

func TestSelectPageQuery(t *testing.T) {
	my := &dialect.MysqlDialect{}
	assert.Equal(t, "SELECT `id`, `name` FROM `guilds` ORDER BY `id` LIMIT 50 OFFSET 100",
		my.SelectPageQuery("guilds", []string{"id", "name"}, []string{"id"}, 50, 100))

	ms := &dialect.MSSQLDialect{}
	assert.Equal(t, "SELECT * FROM [guilds] ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY",
		ms.SelectPageQuery("guilds", nil, nil, 10, 0))
}

func TestSuspendStatements(t *testing.T) {
	assert.Equal(t, []string{"SET session_replication_role = replica"},
		(&dialect.PostgresDialect{}).SuspendStatements([]string{"bets"}))
	assert.Equal(t, []string{"SET FOREIGN_KEY_CHECKS = 1"},
		(&dialect.MysqlDialect{}).RestoreStatements(nil))
}

func TestNormalizeType(t *testing.T) {
	pg := &dialect.PostgresDialect{}
	assert.Equal(t, "bigint", pg.NormalizeType(" INT8 "))
	assert.Equal(t, "boolean", pg.NormalizeType("bool"))
	assert.Equal(t, "char(3)", pg.NormalizeType("bpchar(3)"))

	my := &dialect.MysqlDialect{}
	assert.Equal(t, "int(10) unsigned", my.NormalizeType("INT(10) UNSIGNED ZEROFILL"))
}

func TestAddColumnQuery(t *testing.T) {
	assert.Equal(t, `ALTER TABLE "settings" ADD COLUMN "flag" boolean DEFAULT TRUE NOT NULL`,
		(&dialect.PostgresDialect{}).AddColumnQuery("settings", "flag", "boolean", true, true))
	assert.Equal(t, "ALTER TABLE `settings` ADD COLUMN `note` varchar(40)",
		(&dialect.MysqlDialect{}).AddColumnQuery("settings", "note", "varchar(40)", nil, false))
	assert.Equal(t, "ALTER TABLE [settings] ADD [flag] bit DEFAULT 1 NOT NULL",
		(&dialect.MSSQLDialect{}).AddColumnQuery("settings", "flag", "bit", true, true))
	assert.Equal(t, `ALTER TABLE "settings" ADD ("created" TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL)`,
		(&dialect.OracleDialect{}).AddColumnQuery("settings", "created", "TIMESTAMP", dialect.Expr("CURRENT_TIMESTAMP"), true))
}

func TestTypeName(t *testing.T) {
	pg := &dialect.PostgresDialect{}
	assert.Equal(t, "numeric(10,0)", pg.TypeName("decimal", 0, 10, 0))
	assert.Equal(t, "varchar(255)", pg.TypeName("varchar", 0, 0, 0))
	assert.Equal(t, "jsonb", pg.TypeName("json", 0, 0, 0))
	assert.Equal(t, "text", pg.TypeName("unknown", 0, 0, 0))

	assert.Equal(t, "tinyint(1)", (&dialect.MysqlDialect{}).TypeName("boolean", 0, 0, 0))
	assert.Equal(t, "VARCHAR2(40)", (&dialect.OracleDialect{}).TypeName("varchar", 40, 0, 0))
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "'it''s'", dialect.Literal("it's"))
	assert.Equal(t, "0", dialect.Literal(int64(0)))
	assert.Equal(t, "1.5", dialect.Literal(1.5))
	assert.Equal(t, "FALSE", dialect.Literal(false))
	assert.Equal(t, "NULL", dialect.Literal(nil))
}
