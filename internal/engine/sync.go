package engine

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"db-migrate/internal/convert"
	"db-migrate/internal/database"
	"db-migrate/internal/dialect"
	"db-migrate/internal/schema"
	"db-migrate/internal/value"
)

// ColumnChange is one column added, or to be added, to a target table.
type ColumnChange struct {
	Column  string `json:"column"`
	Type    string `json:"type"`
	NotNull bool   `json:"not_null"`
	Default string `json:"default,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SyncResult lists the changes made to one table.
type SyncResult struct {
	Table   string         `json:"table"`
	Columns []ColumnChange `json:"columns"`
}

// Failed counts the columns that could not be added.
func (r *SyncResult) Failed() int {
	n := 0
	for _, c := range r.Columns {
		if c.Error != "" {
			n++
		}
	}
	return n
}

// Syncer adds the columns a target table is missing compared to the source, so
// the migration carries every source column. NOT NULL columns get a default taken
// from the source or, failing that, the reconciler's fallback for the family.
type Syncer struct {
	Target     database.Handle
	Reconciler *convert.Reconciler
	DryRun     bool
}

// AddMissingColumns adds every source-only column of src to dst. A rejected column
// is recorded and the rest are still added; an unreachable target is returned.
func (s *Syncer) AddMissingColumns(ctx context.Context, src, dst *schema.TableSchema) (*SyncResult, error) {
	d := s.Target.Dialect()
	logger := log.WithField("table", dst.Name)
	res := &SyncResult{Table: dst.Name, Columns: []ColumnChange{}}

	for _, name := range schema.Compare(src, dst).SourceOnly {
		col, _ := src.Column(name)
		t := col.Type
		sqlType := d.TypeName(t.Family.String(), t.Length, t.Precision, t.Scale)
		def := s.columnDefault(col)

		change := ColumnChange{Column: col.Name, Type: sqlType, NotNull: !col.Nullable}
		if def != nil {
			change.Default = dialect.Literal(def)
		}
		logger.Infof("adding column %s %s", col.Name, sqlType)

		if !s.DryRun {
			if _, err := s.Target.Exec(ctx, d.AddColumnQuery(dst.Name, col.Name, sqlType, def, !col.Nullable)); err != nil {
				if unreachable(err) {
					return res, err
				}
				logger.WithError(err).Warnf("failed to add column %s", col.Name)
				change.Error = err.Error()
			}
		}
		res.Columns = append(res.Columns, change)
	}
	return res, nil
}

// columnDefault keeps a usable source default and otherwise gives NOT NULL columns
// the family fallback so existing rows can be filled.
func (s *Syncer) columnDefault(col schema.ColumnDescriptor) any {
	rule := s.Reconciler.RuleFor(col.Type, col.Type)

	if raw, ok := sourceDefault(col); ok {
		upper := strings.ToUpper(raw)
		switch {
		case col.Type.Family.Temporal() && (strings.Contains(upper, "CURRENT_TIMESTAMP") || strings.Contains(upper, "NOW(")):
			if col.Type.Family == schema.Date {
				return dialect.Expr("CURRENT_DATE")
			}
			return dialect.Expr("CURRENT_TIMESTAMP")
		case !strings.Contains(raw, "("):
			// Defaults are converted like data, so "1" on a tinyint(1) becomes TRUE.
			if v, err := rule.Apply(value.TextValue(raw), col); err == nil && !v.IsNull() {
				return literalOf(v, col.Type)
			}
		}
	}
	if col.Nullable {
		return nil
	}
	return literalOf(rule.Fallback, col.Type)
}

// sourceDefault strips quoting and casts from a declared default. NULL defaults
// count as none.
func sourceDefault(col schema.ColumnDescriptor) (string, bool) {
	if !col.HasDefault {
		return "", false
	}
	raw := strings.TrimSpace(col.Default)
	if i := strings.Index(raw, "::"); i > 0 {
		raw = raw[:i]
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		raw = strings.ReplaceAll(raw[1:len(raw)-1], "''", "'")
	} else if raw == "" || strings.EqualFold(raw, "NULL") {
		return "", false
	}
	return raw, true
}

// literalOf turns a converted value into what Dialect.AddColumnQuery renders.
func literalOf(v value.Value, t schema.Type) any {
	switch v.Kind() {
	case value.Null:
		return nil
	case value.Bool:
		return v.Bool()
	case value.Int:
		return v.Int()
	case value.Float:
		return v.Float()
	case value.Decimal:
		return dialect.Expr(v.Decimal().String())
	case value.Timestamp:
		if t.Family == schema.Date {
			return v.Time().Format("2006-01-02")
		}
		return value.FormatTime(v.Time())
	default:
		return v.Text()
	}
}

// String summarizes a change for the console.
func (c ColumnChange) String() string {
	s := fmt.Sprintf("%s %s", c.Column, c.Type)
	if c.Default != "" {
		s += " DEFAULT " + c.Default
	}
	if c.NotNull {
		s += " NOT NULL"
	}
	return s
}
