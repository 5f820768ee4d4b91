package schema

// ColumnPair is a column present on both systems.
type ColumnPair struct {
	Name       string `json:"name"`
	SourceType string `json:"source_type"`
	TargetType string `json:"target_type"`
	// Changed is set when the two declared types fall in different families or
	// have different modifiers.
	Changed bool `json:"changed"`
}

// Drift is how a table differs between the source and the target.
type Drift struct {
	Table      string       `json:"table"`
	Common     []ColumnPair `json:"common"`
	SourceOnly []string     `json:"source_only"`
	TargetOnly []string     `json:"target_only"`
	// Unfillable are NOT NULL target columns with no source column and no default:
	// every insert into the table will fail.
	Unfillable []string `json:"unfillable"`
}

// Clean reports whether the table has the same columns on both sides.
func (d *Drift) Clean() bool {
	if len(d.SourceOnly) > 0 || len(d.TargetOnly) > 0 {
		return false
	}
	for _, c := range d.Common {
		if c.Changed {
			return false
		}
	}
	return true
}

// Compare lines up the columns of a table as read from both systems.
func Compare(src, dst *TableSchema) *Drift {
	d := &Drift{
		Table:      dst.Name,
		Common:     []ColumnPair{},
		SourceOnly: []string{},
		TargetOnly: []string{},
		Unfillable: []string{},
	}
	for _, tc := range dst.Columns {
		sc, ok := src.Column(tc.Name)
		if !ok {
			d.TargetOnly = append(d.TargetOnly, tc.Name)
			if !tc.Nullable && !tc.HasDefault && !tc.AutoIncrement {
				d.Unfillable = append(d.Unfillable, tc.Name)
			}
			continue
		}
		d.Common = append(d.Common, ColumnPair{
			Name:       tc.Name,
			SourceType: sc.Type.Raw,
			TargetType: tc.Type.Raw,
			Changed:    sc.Type.String() != tc.Type.String(),
		})
	}
	for _, sc := range src.Columns {
		if _, ok := dst.Column(sc.Name); !ok {
			d.SourceOnly = append(d.SourceOnly, sc.Name)
		}
	}
	return d
}
