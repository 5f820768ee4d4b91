package schema

import (
	"strconv"
	"strings"
)

// ParseType reduces a declared type as printed by any supported system
// ("int(11) unsigned", "character varying(64)", "numeric(10,2)", "tinyint(1)")
// to a Type. Unrecognized types map to Unknown and are passed through untouched
// by the reconciler.
func ParseType(raw string) Type {
	t := Type{Raw: raw}
	s := strings.ToLower(strings.TrimSpace(raw))

	unsigned := strings.Contains(s, "unsigned")
	for _, junk := range []string{"unsigned", "zerofill", "with time zone", "without time zone", "[]"} {
		s = strings.ReplaceAll(s, junk, "")
	}
	s = strings.Join(strings.Fields(s), " ")

	base, args := s, []string(nil)
	if open := strings.Index(s, "("); open >= 0 {
		base = strings.TrimSpace(s[:open])
		inner := s[open+1:]
		if end := strings.Index(inner, ")"); end >= 0 {
			// "timestamp(6)" style: modifiers before the closing paren, keywords after it.
			rest := strings.TrimSpace(inner[end+1:])
			inner = inner[:end]
			if rest != "" {
				base = base + " " + rest
			}
		}
		for _, a := range strings.Split(inner, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}
	arg := func(i int) int {
		if i >= len(args) {
			return 0
		}
		n, err := strconv.Atoi(args[i])
		if err != nil {
			if args[i] == "max" {
				return -1
			}
			return 0
		}
		return n
	}

	switch base {
	case "bool", "boolean", "bit":
		t.Family = Boolean
	case "tinyint":
		if arg(0) == 1 {
			t.Family = Boolean
		} else {
			t.Family = Integer
		}
	case "smallint", "mediumint", "int2", "int4", "smallserial", "serial", "serial4", "year":
		t.Family = Integer
	case "int", "integer":
		t.Family = Integer
		if unsigned {
			t.Family = BigInteger
		}
	case "bigint", "int8", "bigserial", "serial8":
		t.Family = BigInteger
	case "float", "float4", "float8", "double", "double precision", "real", "binary_float", "binary_double":
		t.Family = Float
	case "decimal", "numeric", "dec", "fixed", "number", "money", "smallmoney":
		t.Family = Decimal
		t.Precision, t.Scale = arg(0), arg(1)
		if base == "number" && t.Precision > 0 && t.Scale == 0 {
			if t.Precision <= 9 {
				t.Family = Integer
			} else if t.Precision <= 18 {
				t.Family = BigInteger
			}
		}
	case "char", "varchar", "character", "character varying", "nchar", "nvarchar", "bpchar",
		"varchar2", "nvarchar2", "varbinary":
		t.Family = VarChar
		t.Length = arg(0)
		if base == "varbinary" {
			t.Family = Unknown
		} else if t.Length < 0 {
			t.Family = Text
			t.Length = 0
		}
	case "text", "tinytext", "mediumtext", "longtext", "ntext", "clob", "nclob", "citext",
		"enum", "set", "string", "long":
		t.Family = Text
	case "timestamp", "timestamptz", "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		t.Family = Timestamp
	case "date":
		t.Family = Date
	case "json", "jsonb":
		t.Family = JSON
	default:
		t.Family = Unknown
	}
	return t
}
