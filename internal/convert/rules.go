package convert

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"db-migrate/internal/schema"
	"db-migrate/internal/value"
)

var falsy = map[string]bool{
	"":      true,
	"0":     true,
	"false": true,
	"f":     true,
	"no":    true,
	"n":     true,
	"off":   true,
}

func toBoolean(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.Null, value.Bool:
		return v, nil
	case value.Int:
		return value.BoolValue(v.Int() != 0), nil
	case value.Float:
		return value.BoolValue(v.Float() != 0), nil
	case value.Decimal:
		return value.BoolValue(!v.Decimal().IsZero()), nil
	case value.Text, value.JSON:
		return value.BoolValue(!falsy[strings.ToLower(strings.TrimSpace(v.Text()))]), nil
	default:
		return value.BoolValue(true), nil
	}
}

func toInteger(v value.Value, bits int) (value.Value, error) {
	switch v.Kind() {
	case value.Null, value.Float, value.Decimal:
		return v, nil
	case value.Int:
		return intInRange(v.Int(), bits)
	case value.Bool:
		if v.Bool() {
			return value.IntValue(1), nil
		}
		return value.IntValue(0), nil
	case value.Text, value.JSON:
		s := strings.TrimSpace(v.Text())
		if s == "" {
			return value.NullValue(), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return intInRange(n, bits)
		}
		// "12.0" and "1e3" are integers written as decimals.
		d, err := decimal.NewFromString(s)
		if err != nil || !d.IsInteger() || !d.BigInt().IsInt64() {
			return value.NullValue(), errNotInteger
		}
		return intInRange(d.IntPart(), bits)
	default:
		return value.NullValue(), errUnsupported
	}
}

func intInRange(n int64, bits int) (value.Value, error) {
	if bits == 32 && (n < math.MinInt32 || n > math.MaxInt32) {
		return value.NullValue(), errOutOfRange
	}
	return value.IntValue(n), nil
}

func toDecimal(v value.Value, dst schema.Type) (value.Value, error) {
	var d decimal.Decimal
	switch v.Kind() {
	case value.Null:
		return v, nil
	case value.Int:
		d = decimal.NewFromInt(v.Int())
	case value.Float:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return value.NullValue(), errNotNumber
		}
		d = decimal.NewFromFloat(f)
	case value.Decimal:
		d = v.Decimal()
	case value.Bool:
		if v.Bool() {
			d = decimal.NewFromInt(1)
		}
	case value.Text, value.JSON:
		s := strings.TrimSpace(v.Text())
		if s == "" {
			return value.NullValue(), nil
		}
		var err error
		if d, err = decimal.NewFromString(s); err != nil {
			return value.NullValue(), errNotNumber
		}
	default:
		return value.NullValue(), errUnsupported
	}
	if dst.Precision > 0 || dst.Scale > 0 {
		d = d.Round(int32(dst.Scale))
	}
	return value.DecimalValue(d), nil
}

func toFloat(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.Null, value.Float:
		return v, nil
	case value.Int:
		return value.FloatValue(float64(v.Int())), nil
	case value.Decimal:
		return value.FloatValue(v.Decimal().InexactFloat64()), nil
	case value.Bool:
		if v.Bool() {
			return value.FloatValue(1), nil
		}
		return value.FloatValue(0), nil
	case value.Text, value.JSON:
		s := strings.TrimSpace(v.Text())
		if s == "" {
			return value.NullValue(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.NullValue(), errNotNumber
		}
		return value.FloatValue(f), nil
	default:
		return value.NullValue(), errUnsupported
	}
}

// toTime never fails: unparsable input and zero dates become null.
func toTime(v value.Value, dateOnly bool) value.Value {
	var t time.Time
	switch v.Kind() {
	case value.Timestamp:
		t = v.Time()
	case value.Text, value.JSON:
		parsed, ok := ParseTime(v.Text())
		if !ok {
			return value.NullValue()
		}
		t = parsed
	default:
		return value.NullValue()
	}
	if t.IsZero() || t.Year() <= 0 {
		return value.NullValue()
	}
	if dateOnly {
		t = truncateDay(t)
	}
	return value.TimeValue(t)
}

func toText(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.Null, value.Text:
		return v, nil
	case value.JSON:
		return value.TextValue(v.Text()), nil
	default:
		return value.TextValue(v.String()), nil
	}
}

// toJSON validates text and encodes scalars. Invalid JSON becomes null.
func toJSON(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.Null, value.JSON:
		return v, nil
	case value.Text:
		s := strings.TrimSpace(v.Text())
		if s == "" || !json.Valid([]byte(s)) {
			return value.NullValue(), nil
		}
		return value.JSONValue(s), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return value.NullValue(), nil
		}
		return value.JSONValue(string(b)), nil
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
