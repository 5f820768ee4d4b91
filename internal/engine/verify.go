package engine

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"db-migrate/internal/schema"
	"db-migrate/internal/value"
)

// DefaultSampleRows is how many target rows are shown per critical table.
const DefaultSampleRows = 3

// TableCheck compares one table across the two systems after a run.
type TableCheck struct {
	Table       string                   `json:"table"`
	SourceCount int64                    `json:"source_count"`
	TargetCount int64                    `json:"target_count"`
	Match       bool                     `json:"match"`
	Critical    bool                     `json:"critical,omitempty"`
	Sample      []map[string]value.Value `json:"sample,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// VerificationReport lists count comparisons. Mismatches are reported, never fixed.
type VerificationReport struct {
	Tables     []TableCheck `json:"tables"`
	Mismatched []string     `json:"mismatched"`
}

// Verifier counts rows on both systems and samples the target side of critical
// tables.
type Verifier struct {
	Source     *schema.Catalog
	Target     *schema.Catalog
	SampleRows int
}

// Verify checks tables in the given order, then any critical table not among them.
func (v *Verifier) Verify(ctx context.Context, tables, critical []string) *VerificationReport {
	sampleRows := v.SampleRows
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	isCritical := make(map[string]bool, len(critical))
	for _, c := range critical {
		isCritical[strings.ToLower(c)] = true
	}

	seen := make(map[string]bool)
	var names []string
	for _, t := range append(append([]string(nil), tables...), critical...) {
		if key := strings.ToLower(t); !seen[key] {
			seen[key] = true
			names = append(names, t)
		}
	}

	report := &VerificationReport{Tables: []TableCheck{}, Mismatched: []string{}}
	for _, name := range names {
		check := v.check(ctx, name, isCritical[strings.ToLower(name)], sampleRows)
		if !check.Match {
			report.Mismatched = append(report.Mismatched, name)
		}
		report.Tables = append(report.Tables, check)
	}
	return report
}

func (v *Verifier) check(ctx context.Context, name string, critical bool, sampleRows int) TableCheck {
	logger := log.WithField("table", name)
	check := TableCheck{Table: name, Critical: critical}

	var err error
	if check.SourceCount, err = v.Source.RowCount(ctx, name); err != nil {
		logger.WithError(err).Warn("verification failed")
		check.Error = err.Error()
		return check
	}
	if check.TargetCount, err = v.Target.RowCount(ctx, name); err != nil {
		logger.WithError(err).Warn("verification failed")
		check.Error = err.Error()
		return check
	}
	check.Match = check.SourceCount == check.TargetCount
	if !check.Match {
		logger.Warnf("row counts differ: source %d, target %d", check.SourceCount, check.TargetCount)
	}

	if critical {
		rs, err := v.Target.Sample(ctx, name, sampleRows)
		if err != nil {
			logger.WithError(err).Warn("cannot sample target rows")
			check.Error = err.Error()
			return check
		}
		for _, raw := range rs.Rows {
			row := make(map[string]value.Value, len(rs.Columns))
			for i, col := range rs.Columns {
				row[col] = value.FromDriver(raw[i])
			}
			check.Sample = append(check.Sample, row)
		}
	}
	return check
}
