package convert_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-migrate/internal/convert"
	"db-migrate/internal/schema"
	"db-migrate/internal/value"
)

var runStart = time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)

func column(name, declared string, nullable bool) schema.ColumnDescriptor {
	return schema.ColumnDescriptor{Name: name, Type: schema.ParseType(declared), Nullable: nullable}
}

func apply(t *testing.T, srcType, dstType string, nullable bool, in value.Value) value.Value {
	t.Helper()
	dst := column("c", dstType, nullable)
	rule := convert.New(runStart).RuleFor(schema.ParseType(srcType), dst.Type)
	out, err := rule.Apply(in, dst)
	require.NoError(t, err)
	return out
}

func TestNullTinyintIntoNotNullBoolean(t *testing.T) {
	// accounts(id INT, active TINYINT(1)) -> accounts(id BIGINT, active BOOLEAN NOT NULL)
	id := apply(t, "int(11)", "bigint", false, value.FromDriver([]byte("7")))
	active := apply(t, "tinyint(1)", "boolean", false, value.NullValue())

	assert.True(t, id.Equal(value.IntValue(7)))
	assert.True(t, active.Equal(value.BoolValue(false)))
}

func TestZeroDateIntoNotNullTimestamp(t *testing.T) {
	out := apply(t, "datetime", "timestamp without time zone", false, value.TextValue("0000-00-00 00:00:00"))
	assert.True(t, out.Equal(value.TimeValue(runStart)), "got %s", out)

	nullable := apply(t, "datetime", "timestamp", true, value.TextValue("0000-00-00 00:00:00"))
	assert.True(t, nullable.IsNull())

	// MySQL with parseTime hands zero dates over as the zero time.
	zero := apply(t, "datetime", "timestamp", false, value.TimeValue(time.Time{}))
	assert.True(t, zero.Equal(value.TimeValue(runStart)))
}

func TestBoolean(t *testing.T) {
	tests := []struct {
		in   value.Value
		want bool
	}{
		{value.IntValue(0), false},
		{value.IntValue(1), true},
		{value.IntValue(-3), true},
		{value.TextValue("0"), false},
		{value.TextValue("false"), false},
		{value.TextValue("FALSE"), false},
		{value.TextValue(" no "), false},
		{value.TextValue("off"), false},
		{value.TextValue(""), false},
		{value.TextValue("1"), true},
		{value.TextValue("yes"), true},
		{value.TextValue("anything"), true},
		{value.FloatValue(0), false},
		{value.BoolValue(true), true},
	}
	for _, tt := range tests {
		out := apply(t, "tinyint(1)", "boolean", true, tt.in)
		assert.True(t, out.Equal(value.BoolValue(tt.want)), "%s -> %s", tt.in, out)
	}
	assert.True(t, apply(t, "tinyint(1)", "boolean", true, value.NullValue()).IsNull())
}

func TestInteger(t *testing.T) {
	assert.True(t, apply(t, "varchar(10)", "integer", true, value.TextValue(" 42 ")).Equal(value.IntValue(42)))
	assert.True(t, apply(t, "varchar(10)", "integer", true, value.TextValue("12.0")).Equal(value.IntValue(12)))
	assert.True(t, apply(t, "varchar(10)", "integer", true, value.TextValue("")).IsNull())
	assert.True(t, apply(t, "varchar(10)", "integer", false, value.TextValue("")).Equal(value.IntValue(0)))
	assert.True(t, apply(t, "bigint", "bigint", true, value.IntValue(1<<40)).Equal(value.IntValue(1<<40)))
	assert.True(t, apply(t, "bit", "integer", true, value.BoolValue(true)).Equal(value.IntValue(1)))
}

func TestIntegerConversionErrors(t *testing.T) {
	r := convert.New(runStart)
	dst := column("qty", "integer", false)
	rule := r.RuleFor(schema.ParseType("varchar(20)"), dst.Type)

	for _, in := range []string{"abc", "12.5", "9999999999"} {
		out, err := rule.Apply(value.TextValue(in), dst)

		var convErr *convert.ConversionError
		require.True(t, errors.As(err, &convErr), in)
		assert.Equal(t, "qty", convErr.Column)
		assert.Equal(t, in, convErr.Value)
		assert.True(t, out.IsNull())
	}
}

func TestDecimalAndFloat(t *testing.T) {
	d := apply(t, "varchar(20)", "numeric(10,2)", true, value.TextValue("3.14159"))
	assert.True(t, d.Equal(value.DecimalValue(decimal.RequireFromString("3.14"))), "got %s", d)

	assert.True(t, apply(t, "varchar(20)", "numeric", true, value.TextValue("")).IsNull())
	assert.True(t, apply(t, "varchar(20)", "numeric(10,2)", false, value.TextValue("")).Equal(value.DecimalValue(decimal.Zero)))

	f := apply(t, "decimal(5,1)", "double precision", true, value.DecimalValue(decimal.RequireFromString("2.5")))
	assert.True(t, f.Equal(value.FloatValue(2.5)))
	assert.True(t, apply(t, "varchar(20)", "real", false, value.NullValue()).Equal(value.FloatValue(0)))

	_, err := convert.New(runStart).RuleFor(schema.ParseType("text"), schema.ParseType("float")).
		Apply(value.TextValue("n/a"), column("f", "float", true))
	var convErr *convert.ConversionError
	assert.True(t, errors.As(err, &convErr))
}

func TestTimestamp(t *testing.T) {
	want := time.Date(2023, 7, 1, 12, 5, 9, 0, time.UTC)
	for _, in := range []string{
		"2023-07-01T12:05:09Z",
		"2023-07-01T12:05:09",
		"2023-07-01 12:05:09",
		"2023/07/01 12:05:09",
	} {
		out := apply(t, "varchar(32)", "timestamp", true, value.TextValue(in))
		assert.True(t, out.Equal(value.TimeValue(want)), "%s -> %s", in, out)
	}

	native := apply(t, "datetime", "timestamp", true, value.TimeValue(want))
	assert.True(t, native.Equal(value.TimeValue(want)))

	assert.True(t, apply(t, "varchar(32)", "timestamp", true, value.TextValue("last tuesday")).IsNull())
	assert.True(t, apply(t, "int", "timestamp", true, value.IntValue(1700000000)).IsNull())
}

func TestDate(t *testing.T) {
	out := apply(t, "datetime", "date", true, value.TextValue("2023-07-01 12:05:09"))
	assert.True(t, out.Equal(value.TimeValue(time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC))))

	fallback := apply(t, "date", "date", false, value.TextValue("0000-00-00"))
	assert.True(t, fallback.Equal(value.TimeValue(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))))
}

func TestText(t *testing.T) {
	assert.True(t, apply(t, "int", "text", true, value.IntValue(5)).Equal(value.TextValue("5")))
	assert.True(t, apply(t, "datetime", "varchar(32)", true, value.TimeValue(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC))).
		Equal(value.TextValue("2023-01-02 03:04:05")))
	assert.True(t, apply(t, "int", "text", true, value.NullValue()).IsNull())
	assert.True(t, apply(t, "int", "text", false, value.NullValue()).Equal(value.TextValue("")))

	long := "a string well beyond eight characters"
	assert.True(t, apply(t, "text", "varchar(8)", true, value.TextValue(long)).Equal(value.TextValue(long)))
}

func TestJSON(t *testing.T) {
	obj := apply(t, "json", "jsonb", true, value.FromDriver(map[string]any{"b": 1, "a": []any{"x"}}))
	assert.True(t, obj.Equal(value.JSONValue(`{"a":["x"],"b":1}`)), "got %s", obj)

	valid := apply(t, "text", "jsonb", true, value.TextValue(`{"k": true}`))
	assert.True(t, valid.Equal(value.JSONValue(`{"k": true}`)))

	assert.True(t, apply(t, "text", "json", true, value.TextValue("{broken")).IsNull())
	assert.True(t, apply(t, "text", "json", false, value.TextValue("{broken")).Equal(value.JSONValue("{}")))
	assert.True(t, apply(t, "int", "json", true, value.IntValue(3)).Equal(value.JSONValue("3")))
}

func TestUnknownPassesThrough(t *testing.T) {
	in := value.TextValue("2c5ea4c0-4067-11e9-8bad-9b1deb4d3b7d")
	assert.True(t, apply(t, "char(36)", "uuid", true, in).Equal(in))
}

func TestRuleForIsPure(t *testing.T) {
	r := convert.New(runStart)
	inputs := []value.Value{
		value.NullValue(), value.IntValue(1), value.TextValue("0"), value.TextValue("2023-01-01"),
		value.TextValue(`{"a":1}`), value.FloatValue(1.5), value.TextValue("x"),
	}
	types := []string{"boolean", "integer", "bigint", "numeric(8,3)", "double precision", "text", "varchar(5)", "timestamp", "date", "jsonb", "uuid"}

	for _, src := range types {
		for _, dst := range types {
			target := column("c", dst, false)
			a := r.RuleFor(schema.ParseType(src), target.Type)
			b := r.RuleFor(schema.ParseType(src), target.Type)
			assert.True(t, a.Fallback.Equal(b.Fallback))
			for _, in := range inputs {
				outA, errA := a.Apply(in, target)
				outB, errB := b.Apply(in, target)
				assert.True(t, outA.Equal(outB), "%s->%s on %s", src, dst, in)
				assert.Equal(t, errA == nil, errB == nil)
			}
		}
	}
}

func TestNotNullNeverYieldsNull(t *testing.T) {
	r := convert.New(runStart)
	types := []string{"boolean", "integer", "bigint", "numeric(8,3)", "double precision", "text", "varchar(5)", "timestamp", "date", "jsonb", "uuid"}
	inputs := []value.Value{value.NullValue(), value.TextValue(""), value.TextValue("0000-00-00"), value.TextValue("{oops")}

	for _, dst := range types {
		target := column("c", dst, false)
		rule := r.RuleFor(schema.ParseType("text"), target.Type)
		for _, in := range inputs {
			out, err := rule.Apply(in, target)
			if err != nil {
				continue
			}
			assert.False(t, out.IsNull(), "%s from %s", dst, in)
		}
	}
}

func TestParseTime(t *testing.T) {
	_, ok := convert.ParseTime("0000-00-00 00:00:00")
	assert.False(t, ok)
	_, ok = convert.ParseTime("  ")
	assert.False(t, ok)

	got, ok := convert.ParseTime("2024-02-29T23:59:59.123456+02:00")
	require.True(t, ok)
	assert.Equal(t, 123456000, got.Nanosecond())
}
