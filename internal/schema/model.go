package schema

import (
	"fmt"
	"strings"
)

// Family is the normalized type family a declared column type belongs to.
type Family int

const (
	Unknown Family = iota
	Integer
	BigInteger
	Float
	Decimal
	Boolean
	Text
	VarChar
	Timestamp
	Date
	JSON
)

var familyNames = map[Family]string{
	Unknown:    "unknown",
	Integer:    "integer",
	BigInteger: "biginteger",
	Float:      "float",
	Decimal:    "decimal",
	Boolean:    "boolean",
	Text:       "text",
	VarChar:    "varchar",
	Timestamp:  "timestamp",
	Date:       "date",
	JSON:       "json",
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Numeric reports whether the family holds numbers.
func (f Family) Numeric() bool {
	return f == Integer || f == BigInteger || f == Float || f == Decimal
}

// Temporal reports whether the family holds dates or timestamps.
func (f Family) Temporal() bool {
	return f == Timestamp || f == Date
}

// Type is a declared column type reduced to its family and modifiers.
// Raw keeps the type as the system printed it.
type Type struct {
	Family    Family
	Length    int // VarChar(n)
	Precision int // Decimal(p,s)
	Scale     int
	Raw       string
}

func (t Type) String() string {
	switch t.Family {
	case VarChar:
		if t.Length > 0 {
			return fmt.Sprintf("varchar(%d)", t.Length)
		}
	case Decimal:
		if t.Precision > 0 {
			return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
		}
	}
	return t.Family.String()
}

// ColumnDescriptor describes one column of one table on one system.
type ColumnDescriptor struct {
	Name          string
	Type          Type
	Nullable      bool
	Default       string
	HasDefault    bool
	PrimaryKey    bool
	AutoIncrement bool
	Position      int
}

// ForeignKey is one outgoing reference: Column on this table points at RefTable.RefColumn.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableSchema is the column list and outgoing references of a table as read from
// one system.
type TableSchema struct {
	Name        string
	Columns     []ColumnDescriptor
	ForeignKeys []ForeignKey
}

// Column finds a column by name, ignoring case.
func (t *TableSchema) Column(name string) (ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// ColumnNames returns the column names in ordinal order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the primary key column names in ordinal order.
func (t *TableSchema) PrimaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// References returns the distinct tables this table points at, excluding itself.
func (t *TableSchema) References() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, fk := range t.ForeignKeys {
		key := strings.ToLower(fk.RefTable)
		if seen[key] || strings.EqualFold(fk.RefTable, t.Name) {
			continue
		}
		seen[key] = true
		refs = append(refs, fk.RefTable)
	}
	return refs
}
