package database

import (
	"fmt"
	"strconv"
)

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	case []byte:
		n, err := strconv.ParseInt(string(x), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		n, err := strconv.ParseInt(fmt.Sprint(x), 10, 64)
		return n, err == nil
	}
}

// NullableString reads a nullable text column.
func NullableString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	return asString(v), true
}

// String reads a text column, mapping NULL to "".
func String(v any) string {
	return asString(v)
}
