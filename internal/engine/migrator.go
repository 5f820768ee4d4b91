package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"db-migrate/internal/database"
	"db-migrate/internal/value"
)

var errNoSharedColumns = errors.New("no columns in common between source and target")

// Migrator copies planned tables from source to target, one table at a time in
// plan order.
type Migrator struct {
	source   database.Handle
	target   database.Handle
	opts     Options
	progress Progress
}

func NewMigrator(source, target database.Handle, opts Options, progress Progress) *Migrator {
	if progress == nil {
		progress = noProgress{}
	}
	return &Migrator{source: source, target: target, opts: opts.withDefaults(), progress: progress}
}

// Migrate runs the plan and returns the report. Row and table failures are recorded
// in the report; the error is reserved for failures that stop the run or leave the
// target in an unknown state: a lost source or target connection, or a failed
// suspension or restore of constraints.
func (m *Migrator) Migrate(ctx context.Context, plan *Plan) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Mode:      m.opts.Mode,
		DryRun:    m.opts.DryRun,
		Tables:    []*TableResult{},
		Skipped:   plan.Skipped,
	}
	defer m.progress.Stop()

	if m.opts.DryRun || !m.opts.SuspendConstraints {
		err := m.run(ctx, plan, report)
		report.Finish()
		return report, err
	}

	targets := make([]string, 0, len(plan.Order))
	for _, name := range plan.Order {
		targets = append(targets, plan.Tables[name].Target.Name)
	}
	ctrl := NewController(m.target, targets)
	denied := func(err error) {
		log.WithError(err).Warn("cannot suspend foreign key enforcement, continuing with it on")
		report.warn("constraints not suspended: %v", err)
	}
	err := ctrl.WithSuspended(ctx, denied, func() error {
		report.ConstraintsSuspended = ctrl.Suspended()
		return m.run(ctx, plan, report)
	})
	if err != nil {
		report.warn("%v", err)
	}
	report.Finish()
	return report, err
}

// run migrates the tables in plan order. It stops at the first connectivity
// failure and returns it; every other failure stays with its table.
func (m *Migrator) run(ctx context.Context, plan *Plan, report *RunReport) error {
	// Counting first also proves the source answers before anything is deleted.
	totals, err := m.countAll(ctx, plan)
	if err != nil {
		m.halt(plan.Order, report, err)
		return err
	}

	var cleared map[string]error
	if m.opts.Mode == Replace && !m.opts.DryRun {
		if cleared, err = m.clear(ctx, plan); err != nil {
			m.halt(plan.Order, report, err)
			return err
		}
	}

	for i, name := range plan.Order {
		tp := plan.Tables[name]
		res := newTableResult(name, m.opts.SampleFailures)
		report.Tables = append(report.Tables, res)

		if err := ctx.Err(); err != nil {
			res.abort(StatusCancelled, err)
			continue
		}
		if err := cleared[name]; err != nil {
			res.abort(StatusAborted, err)
			continue
		}
		if err := m.migrateTable(ctx, tp, totals[name], res); err != nil {
			m.halt(plan.Order[i+1:], report, err)
			return err
		}
	}
	return nil
}

// halt records tables that were never started because the run stopped.
func (m *Migrator) halt(names []string, report *RunReport, cause error) {
	for _, name := range names {
		res := newTableResult(name, m.opts.SampleFailures)
		res.abort(StatusAborted, fmt.Errorf("run stopped: %w", cause))
		report.Tables = append(report.Tables, res)
	}
}

func (m *Migrator) countAll(ctx context.Context, plan *Plan) (map[string]int64, error) {
	totals := make(map[string]int64, len(plan.Order))
	for _, name := range plan.Order {
		n, err := m.count(ctx, plan.Tables[name])
		if unreachable(err) {
			return nil, err
		}
		if err != nil {
			log.WithField("table", name).WithError(err).Warn("cannot count source rows")
		}
		totals[name] = n
	}
	return totals, nil
}

// clear deletes target rows children first, so replace mode works with enforcement
// on. A table whose delete fails is not migrated; losing the target stops the run.
func (m *Migrator) clear(ctx context.Context, plan *Plan) (map[string]error, error) {
	failed := make(map[string]error)
	d := m.target.Dialect()
	for i := len(plan.Order) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return failed, nil
		}
		tp := plan.Tables[plan.Order[i]]
		logger := log.WithField("table", tp.Name)

		var deleted int64
		err := m.attempt(ctx, true, database.IsConnectionLost, func(c context.Context) error {
			n, err := m.target.Exec(c, d.DeleteQuery(tp.Target.Name))
			deleted = n
			return err
		})
		if unreachable(err) {
			return failed, err
		}
		if err != nil {
			logger.WithError(err).Error("failed to clear target table")
			failed[tp.Name] = fmt.Errorf("failed to clear target table: %w", err)
			continue
		}
		logger.Debugf("cleared %d target rows", deleted)
	}
	return failed, nil
}

// batch is one page read from the source, already converted.
type batch struct {
	size     int
	rows     []pendingRow
	failures []RowOutcome
}

type pendingRow struct {
	key string
	row value.Row
}

// migrateTable copies one table. Only a connectivity failure is returned; every
// other outcome is recorded on res.
func (m *Migrator) migrateTable(ctx context.Context, tp *TablePlan, total int64, res *TableResult) error {
	start := time.Now()
	defer res.finish(start)
	logger := log.WithField("table", tp.Name)

	if !tp.Shared() {
		logger.Warn(errNoSharedColumns)
		res.Skipped = total
		res.abort(StatusSkipped, errNoSharedColumns)
		return nil
	}

	logger.Infof("migrating %d rows (%d columns)", total, len(tp.TargetColumns))
	tracker := m.progress.Start(tp.Name, total)
	defer tracker.Done()

	pages := make(chan *batch, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(pages)
		return m.read(ctx, gctx, tp, pages)
	})
	g.Go(func() error {
		var stopped error
		for b := range pages {
			// A batch already read is dropped, not half written, once the run stops.
			if stopped = ctx.Err(); stopped != nil {
				continue
			}
			if err := m.write(ctx, tp, b, res); err != nil {
				return err
			}
			tracker.Add(b.size)
		}
		return stopped
	})

	err := g.Wait()
	switch {
	case err == nil:
		logger.WithFields(log.Fields{"migrated": res.Migrated, "failed": res.Failed}).Info("table done")
		return nil
	case unreachable(err):
		logger.WithError(err).Error("connection lost, stopping the run")
		res.abort(StatusAborted, err)
		return err
	case ctx.Err() != nil:
		logger.Warn("cancelled")
		res.abort(StatusCancelled, ctx.Err())
	default:
		logger.WithError(err).Error("table aborted")
		res.abort(StatusAborted, err)
	}
	return nil
}

func (m *Migrator) count(ctx context.Context, tp *TablePlan) (int64, error) {
	var n int64
	err := m.attempt(ctx, false, retryAlways, func(c context.Context) error {
		rs, err := m.source.Query(c, m.source.Dialect().CountQuery(tp.Source.Name))
		if err != nil {
			return err
		}
		n, _ = rs.Int64()
		return nil
	})
	return n, err
}

// read pages through the source table and hands converted batches to the writer.
// gctx is only used to stop waiting on the queue when the writer side is gone.
func (m *Migrator) read(ctx, gctx context.Context, tp *TablePlan, out chan<- *batch) error {
	d := m.source.Dialect()
	keys := keyColumns(tp)

	for offset := 0; ; {
		if err := ctx.Err(); err != nil {
			return err
		}
		query := d.SelectPageQuery(tp.Source.Name, tp.SourceColumns, tp.OrderBy, m.opts.BatchSize, offset)

		var rs *database.ResultSet
		err := m.attempt(ctx, false, retryAlways, func(c context.Context) (err error) {
			rs, err = m.source.Query(c, query)
			return err
		})
		if err != nil {
			return &ReadError{Table: tp.Name, Offset: offset, Err: err}
		}
		if len(rs.Rows) == 0 {
			return nil
		}

		b := m.convert(tp, keys, rs.Rows)
		select {
		case out <- b:
		case <-gctx.Done():
			return gctx.Err()
		}
		if len(rs.Rows) < m.opts.BatchSize {
			return nil
		}
		offset += len(rs.Rows)
	}
}

func (m *Migrator) convert(tp *TablePlan, keys []int, raw [][]any) *batch {
	b := &batch{size: len(raw)}
	for _, r := range raw {
		key := rowKey(tp, keys, r)
		row := make(value.Row, len(tp.Rules))
		var convErr error
		for i, rule := range tp.Rules {
			out, err := rule.Apply(value.FromDriver(r[i]), tp.Targets[i])
			if err != nil {
				convErr = err
				break
			}
			row[i] = out
		}
		if convErr != nil {
			b.failures = append(b.failures, RowOutcome{Outcome: Failed, Row: key, Reason: truncate(convErr.Error(), m.opts.ErrorLength)})
			continue
		}
		b.rows = append(b.rows, pendingRow{key: key, row: row})
	}
	return b
}

// write inserts a batch in bulk and falls back to row-by-row inserts when the bulk
// insert is rejected, so one bad row does not cost the others. The error is only
// set when the target is unreachable.
func (m *Migrator) write(ctx context.Context, tp *TablePlan, b *batch, res *TableResult) error {
	for _, f := range b.failures {
		res.Record(f)
	}
	if len(b.rows) == 0 {
		return nil
	}
	if m.opts.DryRun {
		for range b.rows {
			res.Record(RowOutcome{Outcome: Migrated})
		}
		return nil
	}

	logger := log.WithField("table", tp.Name)
	err := m.attempt(ctx, true, database.IsConnectionLost, func(c context.Context) error {
		return m.target.ExecAtomic(c, m.insertStatements(tp, b.rows))
	})
	if err == nil {
		for range b.rows {
			res.Record(RowOutcome{Outcome: Migrated})
		}
		return nil
	}
	if database.IsConnectionLost(err) {
		logger.WithError(err).Error("batch failed after retry")
		m.failAll(b.rows, "batch failed: "+err.Error(), res)
		if unreachable(err) {
			return err
		}
		return nil
	}

	logger.WithError(err).Debug("bulk insert rejected, inserting rows one by one")
	d := m.target.Dialect()
	query := d.InsertQuery(tp.Target.Name, tp.TargetColumns, 1)
	for i, p := range b.rows {
		err := m.attempt(ctx, true, database.IsConnectionLost, func(c context.Context) error {
			_, err := m.target.Exec(c, query, p.row.Natives()...)
			return err
		})
		if unreachable(err) {
			m.failAll(b.rows[i:], "batch failed: "+err.Error(), res)
			return err
		}
		if err != nil {
			rowErr := &RowInsertError{Table: tp.Name, Row: p.key, Err: err}
			logger.WithField("row", p.key).Debug(rowErr)
			res.Record(RowOutcome{Outcome: Failed, Row: p.key, Reason: truncate(rowErr.Error(), m.opts.ErrorLength)})
			continue
		}
		res.Record(RowOutcome{Outcome: Migrated})
	}
	return nil
}

func (m *Migrator) failAll(rows []pendingRow, reason string, res *TableResult) {
	reason = truncate(reason, m.opts.ErrorLength)
	for _, p := range rows {
		res.Record(RowOutcome{Outcome: Failed, Row: p.key, Reason: reason})
	}
}

// insertStatements splits rows into multi-row INSERTs within the bind parameter limit.
func (m *Migrator) insertStatements(tp *TablePlan, rows []pendingRow) []database.Statement {
	d := m.target.Dialect()
	cols := tp.TargetColumns
	per := d.MaxBindParams() / len(cols)
	if per < 1 {
		per = 1
	}

	var stmts []database.Statement
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		args := make([]any, 0, (end-start)*len(cols))
		for _, p := range rows[start:end] {
			args = append(args, p.row.Natives()...)
		}
		stmts = append(stmts, database.Statement{Query: d.InsertQuery(tp.Target.Name, cols, end-start), Args: args})
	}
	return stmts
}

// attempt runs fn under the batch timeout and runs it once more when retry says the
// error is worth it. Detached attempts ignore cancellation of ctx so a write is
// never cut off halfway.
func (m *Migrator) attempt(ctx context.Context, detach bool, retry func(error) bool, fn func(context.Context) error) error {
	base := ctx
	if detach {
		base = context.WithoutCancel(ctx)
	}
	var err error
	for try := 0; try < 2; try++ {
		c, cancel := context.WithTimeout(base, m.opts.BatchTimeout)
		err = fn(c)
		cancel()
		if err == nil || !retry(err) || (!detach && ctx.Err() != nil) {
			return err
		}
	}
	return err
}

func retryAlways(error) bool { return true }

// unreachable reports whether err means a system could not be reached even after
// reconnecting. Such a failure ends the run.
func unreachable(err error) bool {
	var ce *database.ConnectivityError
	return errors.As(err, &ce)
}

// keyColumns finds the source primary key among the selected columns.
func keyColumns(tp *TablePlan) []int {
	var idx []int
	for _, pk := range tp.Source.PrimaryKey() {
		for i, c := range tp.SourceColumns {
			if c == pk {
				idx = append(idx, i)
			}
		}
	}
	return idx
}

func rowKey(tp *TablePlan, keys []int, raw []any) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = tp.SourceColumns[k] + "=" + value.FromDriver(raw[k]).String()
	}
	return strings.Join(parts, ",")
}
