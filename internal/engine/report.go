package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Outcome tags one attempted row.
type Outcome int

const (
	Migrated Outcome = iota
	Skipped
	Failed
)

// RowOutcome is the fate of one source row. Row identifies it by primary key when
// the table has one.
type RowOutcome struct {
	Outcome Outcome
	Row     string
	Reason  string
}

// Table statuses.
const (
	StatusOK        = "ok"
	StatusPartial   = "partial"
	StatusSkipped   = "skipped"
	StatusAborted   = "aborted"
	StatusCancelled = "cancelled"
)

// SampleFailure is one recorded row failure.
type SampleFailure struct {
	Row    string `json:"row,omitempty"`
	Reason string `json:"reason"`
}

// TableResult aggregates the outcomes of one table. Migrated + Failed always equals
// Attempted; rows skipped for lack of common columns are counted apart.
type TableResult struct {
	Table          string          `json:"table"`
	Attempted      int64           `json:"attempted"`
	Migrated       int64           `json:"migrated"`
	Failed         int64           `json:"failed"`
	SampleFailures []SampleFailure `json:"sample_failures"`
	DurationMS     int64           `json:"duration_ms"`
	Skipped        int64           `json:"skipped,omitempty"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`

	sampleLimit int
	seen        map[string]bool
}

func newTableResult(table string, sampleLimit int) *TableResult {
	return &TableResult{
		Table:          table,
		SampleFailures: []SampleFailure{},
		Status:         StatusOK,
		sampleLimit:    sampleLimit,
		seen:           make(map[string]bool),
	}
}

// Record counts one row outcome. Failures with a reason already sampled are
// counted but not sampled again.
func (r *TableResult) Record(o RowOutcome) {
	switch o.Outcome {
	case Migrated:
		r.Attempted++
		r.Migrated++
	case Failed:
		r.Attempted++
		r.Failed++
		if len(r.SampleFailures) < r.sampleLimit && !r.seen[o.Reason] {
			r.seen[o.Reason] = true
			r.SampleFailures = append(r.SampleFailures, SampleFailure{Row: o.Row, Reason: o.Reason})
		}
	case Skipped:
		r.Skipped++
	}
}

// abort marks the table as not (fully) migrated.
func (r *TableResult) abort(status string, err error) {
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *TableResult) finish(start time.Time) {
	r.DurationMS = time.Since(start).Milliseconds()
	if r.Status == StatusOK && r.Failed > 0 {
		r.Status = StatusPartial
	}
}

// SkippedTable is a requested table left out of the plan.
type SkippedTable struct {
	Table  string `json:"table"`
	Reason string `json:"reason"`
}

type Summary struct {
	TotalAttempted int64 `json:"total_attempted"`
	TotalMigrated  int64 `json:"total_migrated"`
	TotalFailed    int64 `json:"total_failed"`
	TablesSkipped  int   `json:"tables_skipped"`
}

// RunReport is the outcome of one run.
type RunReport struct {
	RunID                string              `json:"run_id"`
	StartedAt            time.Time           `json:"started_at"`
	FinishedAt           time.Time           `json:"finished_at"`
	Mode                 Mode                `json:"mode"`
	DryRun               bool                `json:"dry_run"`
	ConstraintsSuspended bool                `json:"constraints_suspended"`
	Tables               []*TableResult      `json:"tables"`
	Skipped              []SkippedTable      `json:"skipped,omitempty"`
	Warnings             []string            `json:"warnings,omitempty"`
	Verification         *VerificationReport `json:"verification,omitempty"`
	Summary              Summary             `json:"summary"`
}

func (r *RunReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Finish stamps the end time and recomputes the summary.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
	s := Summary{TablesSkipped: len(r.Skipped)}
	for _, t := range r.Tables {
		s.TotalAttempted += t.Attempted
		s.TotalMigrated += t.Migrated
		s.TotalFailed += t.Failed
		switch t.Status {
		case StatusSkipped, StatusAborted, StatusCancelled:
			s.TablesSkipped++
		}
	}
	r.Summary = s
}

// Complete reports whether every requested table was migrated without a failed row.
func (r *RunReport) Complete() bool {
	return r.Summary.TotalFailed == 0 && r.Summary.TablesSkipped == 0
}

// WriteJSON writes the report as indented JSON.
func (r *RunReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
