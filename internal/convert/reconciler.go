// Package convert turns source values into values the target column accepts.
//
// Rules are chosen by the pair of declared types and depend on nothing else, so the
// same pair always converts the same way. When a converted value is null and the
// target column is NOT NULL, the family fallback is used instead.
package convert

import (
	"time"

	"github.com/shopspring/decimal"

	"db-migrate/internal/schema"
	"db-migrate/internal/value"
)

// Reconciler hands out conversion rules for one run. The run start time is the
// fallback for NOT NULL temporal columns.
type Reconciler struct {
	runStart time.Time
}

func New(runStart time.Time) *Reconciler {
	return &Reconciler{runStart: runStart}
}

// Rule converts values from one declared type into another.
type Rule struct {
	Source   schema.Type
	Target   schema.Type
	Fallback value.Value

	convert func(value.Value) (value.Value, error)
}

// RuleFor returns the rule for moving src-typed values into dst-typed columns.
func (r *Reconciler) RuleFor(src, dst schema.Type) Rule {
	rule := Rule{Source: src, Target: dst, Fallback: r.fallback(dst)}

	switch dst.Family {
	case schema.Boolean:
		rule.convert = toBoolean
	case schema.Integer:
		rule.convert = func(v value.Value) (value.Value, error) { return toInteger(v, 32) }
	case schema.BigInteger:
		rule.convert = func(v value.Value) (value.Value, error) { return toInteger(v, 64) }
	case schema.Decimal:
		rule.convert = func(v value.Value) (value.Value, error) { return toDecimal(v, dst) }
	case schema.Float:
		rule.convert = toFloat
	case schema.Timestamp:
		rule.convert = func(v value.Value) (value.Value, error) { return toTime(v, false), nil }
	case schema.Date:
		rule.convert = func(v value.Value) (value.Value, error) { return toTime(v, true), nil }
	case schema.Text, schema.VarChar:
		rule.convert = toText
	case schema.JSON:
		rule.convert = toJSON
	default:
		rule.convert = passThrough
	}
	return rule
}

// Apply converts v for the target column. A conversion failure is returned as a
// *ConversionError; a null result for a NOT NULL column becomes the fallback.
func (r Rule) Apply(v value.Value, target schema.ColumnDescriptor) (value.Value, error) {
	out, err := r.convert(v)
	if err != nil {
		return value.NullValue(), &ConversionError{
			Column: target.Name,
			Value:  v.String(),
			Target: r.Target,
			Err:    err,
		}
	}
	if out.IsNull() && !target.Nullable {
		return r.Fallback, nil
	}
	return out, nil
}

func (r *Reconciler) fallback(dst schema.Type) value.Value {
	switch dst.Family {
	case schema.Boolean:
		return value.BoolValue(false)
	case schema.Integer, schema.BigInteger:
		return value.IntValue(0)
	case schema.Float:
		return value.FloatValue(0)
	case schema.Decimal:
		return value.DecimalValue(decimal.Zero)
	case schema.Text, schema.VarChar:
		return value.TextValue("")
	case schema.JSON:
		return value.JSONValue("{}")
	case schema.Timestamp:
		return value.TimeValue(r.runStart)
	case schema.Date:
		return value.TimeValue(truncateDay(r.runStart))
	default:
		return value.TextValue("")
	}
}

func passThrough(v value.Value) (value.Value, error) { return v, nil }
