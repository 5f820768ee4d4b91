package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"db-migrate/internal/schema"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		raw    string
		family schema.Family
	}{
		{"tinyint(1)", schema.Boolean},
		{"tinyint(4)", schema.Integer},
		{"boolean", schema.Boolean},
		{"bit", schema.Boolean},
		{"int(11)", schema.Integer},
		{"int(10) unsigned", schema.BigInteger},
		{"integer", schema.Integer},
		{"bigint(20)", schema.BigInteger},
		{"int8", schema.BigInteger},
		{"double precision", schema.Float},
		{"float", schema.Float},
		{"numeric", schema.Decimal},
		{"text", schema.Text},
		{"longtext", schema.Text},
		{"enum('a','b')", schema.Text},
		{"nvarchar(-1)", schema.Text},
		{"nvarchar(max)", schema.Text},
		{"datetime", schema.Timestamp},
		{"timestamp without time zone", schema.Timestamp},
		{"timestamp(6) with time zone", schema.Timestamp},
		{"date", schema.Date},
		{"json", schema.JSON},
		{"jsonb", schema.JSON},
		{"uuid", schema.Unknown},
		{"bytea", schema.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := schema.ParseType(tt.raw)
			assert.Equal(t, tt.family, got.Family)
			assert.Equal(t, tt.raw, got.Raw)
		})
	}
}

func TestParseType_Modifiers(t *testing.T) {
	v := schema.ParseType("character varying(64)")
	assert.Equal(t, schema.VarChar, v.Family)
	assert.Equal(t, 64, v.Length)
	assert.Equal(t, "varchar(64)", v.String())

	d := schema.ParseType("DECIMAL(10,2) UNSIGNED")
	assert.Equal(t, schema.Decimal, d.Family)
	assert.Equal(t, 10, d.Precision)
	assert.Equal(t, 2, d.Scale)
	assert.Equal(t, "decimal(10,2)", d.String())

	assert.Equal(t, schema.Integer, schema.ParseType("number(9,0)").Family)
	assert.Equal(t, schema.BigInteger, schema.ParseType("number(18)").Family)
}

func TestFamilyPredicates(t *testing.T) {
	assert.True(t, schema.Decimal.Numeric())
	assert.False(t, schema.Boolean.Numeric())
	assert.True(t, schema.Date.Temporal())
	assert.Equal(t, "json", schema.JSON.String())
}
