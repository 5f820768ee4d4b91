// Package value holds the tagged variant rows are carried in between the source
// read and the target write.
package value

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	Null Kind = iota
	Int
	Float
	Decimal
	Bool
	Text
	Timestamp
	JSON
)

var kindNames = [...]string{"null", "int", "float", "decimal", "bool", "text", "timestamp", "json"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable tagged value. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	d    decimal.Decimal
	b    bool
	s    string // Text and JSON
	t    time.Time
}

func NullValue() Value { return Value{} }
func IntValue(i int64) Value { return Value{kind: Int, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }
func DecimalValue(d decimal.Decimal) Value { return Value{kind: Decimal, d: d} }
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func TextValue(s string) Value { return Value{kind: Text, s: s} }
func TimeValue(t time.Time) Value { return Value{kind: Timestamp, t: t} }

// JSONValue wraps already-serialized JSON text. Callers validate before wrapping.
func JSONValue(s string) Value { return Value{kind: JSON, s: s} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }
func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Decimal() decimal.Decimal { return v.d }
func (v Value) Bool() bool { return v.b }
func (v Value) Time() time.Time { return v.t }

// Text returns the raw string of a Text or JSON value.
func (v Value) Text() string { return v.s }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case Decimal:
		return v.d.Equal(o.d)
	case Bool:
		return v.b == o.b
	case Timestamp:
		return v.t.Equal(o.t)
	default:
		return v.s == o.s
	}
}

// Native returns the value as a driver argument. Decimals and JSON travel as text so
// every driver (and pgx in simple protocol mode) accepts them.
func (v Value) Native() any {
	switch v.kind {
	case Int:
		return v.i
	case Float:
		return v.f
	case Decimal:
		return v.d.String()
	case Bool:
		return v.b
	case Text, JSON:
		return v.s
	case Timestamp:
		return v.t
	default:
		return nil
	}
}

// String renders the value for logs and failure samples.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "NULL"
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case Decimal:
		return v.d.String()
	case Bool:
		return strconv.FormatBool(v.b)
	case Timestamp:
		return FormatTime(v.t)
	default:
		return v.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Int:
		return json.Marshal(v.i)
	case Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.f)
	case Decimal:
		return json.Marshal(v.d.String())
	case Bool:
		return json.Marshal(v.b)
	case Timestamp:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case JSON:
		return []byte(v.s), nil
	default:
		return json.Marshal(v.s)
	}
}

// FormatTime prints a timestamp the way MySQL and PostgreSQL print them, keeping
// fractional seconds only when present.
func FormatTime(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.999999")
}

// FromDriver lifts a value produced by database/sql or pgx into a Value.
// Byte slices are treated as text: MySQL's text protocol returns every column that way.
func FromDriver(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case int64:
		return IntValue(x)
	case int32:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int8:
		return IntValue(int64(x))
	case int:
		return IntValue(int64(x))
	case uint8:
		return IntValue(int64(x))
	case uint16:
		return IntValue(int64(x))
	case uint32:
		return IntValue(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return DecimalValue(decimal.RequireFromString(strconv.FormatUint(x, 10)))
		}
		return IntValue(int64(x))
	case uint:
		return FromDriver(uint64(x))
	case float64:
		return FloatValue(x)
	case float32:
		return FloatValue(float64(x))
	case bool:
		return BoolValue(x)
	case string:
		return TextValue(x)
	case []byte:
		if x == nil {
			return NullValue()
		}
		return TextValue(string(x))
	case time.Time:
		return TimeValue(x)
	case decimal.Decimal:
		return DecimalValue(x)
	case [16]byte:
		return TextValue(uuid.UUID(x).String())
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return TextValue(fmt.Sprint(x))
		}
		return JSONValue(string(b))
	case json.RawMessage:
		return JSONValue(string(x))
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return TextValue(fmt.Sprint(x))
		}
		if _, again := inner.(driver.Valuer); again {
			return TextValue(fmt.Sprint(inner))
		}
		return FromDriver(inner)
	default:
		return TextValue(fmt.Sprint(x))
	}
}

// Row is one record aligned with a column list.
type Row []Value

// Natives converts the row to driver arguments.
func (r Row) Natives() []any {
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = v.Native()
	}
	return out
}
