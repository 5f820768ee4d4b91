package engine

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"db-migrate/internal/convert"
	"db-migrate/internal/schema"
)

// AllTables requests every source table that has rows and exists on the target.
const AllTables = "all"

// TablePlan is what the migrator needs to copy one table: the columns both sides
// share, in target ordinal order, with one rule per column.
type TablePlan struct {
	Name   string
	Source *schema.TableSchema
	Target *schema.TableSchema

	SourceColumns []string
	TargetColumns []string
	Targets       []schema.ColumnDescriptor
	Rules         []convert.Rule

	// OrderBy keeps paging stable: the source primary key, or every selected column.
	OrderBy []string
}

// Shared reports whether the two sides have any column in common.
func (p *TablePlan) Shared() bool { return len(p.TargetColumns) > 0 }

// Plan is the ordered set of tables for a run.
type Plan struct {
	Order   []string
	Tables  map[string]*TablePlan
	Skipped []SkippedTable
	// Cycle is set when the references contain a cycle that was allowed through.
	Cycle *schema.CycleError
}

// Planner builds plans from the live catalogs of both systems.
type Planner struct {
	Source     *schema.Catalog
	Target     *schema.Catalog
	Reconciler *convert.Reconciler
	// AllowCycles appends cycle members after the acyclic order instead of failing.
	AllowCycles bool
}

// Build describes every requested table on both systems and orders them by the
// target's foreign keys. Tables missing on either side are skipped, not fatal.
// A *schema.CycleError is returned unless AllowCycles is set.
func (p *Planner) Build(ctx context.Context, requested []string) (*Plan, error) {
	plan := &Plan{Tables: make(map[string]*TablePlan)}

	names, err := p.expand(ctx, requested)
	if err != nil {
		return nil, err
	}

	var ordered []string
	targets := make(map[string]*schema.TableSchema)
	seen := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		tp, err := p.describe(ctx, name)
		var nf *schema.SchemaNotFoundError
		if errors.As(err, &nf) {
			log.WithField("table", name).Warnf("skipping: %v", nf)
			plan.Skipped = append(plan.Skipped, SkippedTable{Table: name, Reason: nf.Error()})
			continue
		}
		if err != nil {
			return nil, err
		}
		plan.Tables[tp.Name] = tp
		targets[tp.Name] = tp.Target
		ordered = append(ordered, tp.Name)
	}

	order, err := schema.Order(ordered, targets)
	var cycle *schema.CycleError
	if errors.As(err, &cycle) {
		if !p.AllowCycles {
			return plan, cycle
		}
		log.Warnf("proceeding despite %v", cycle)
		plan.Cycle = cycle
		order = append(order, cycle.Tables...)
		// Tables blocked behind the cycle do not reference each other cyclically.
		rest, _ := schema.Order(cycle.Blocked, targets)
		order = append(order, rest...)
	} else if err != nil {
		return nil, err
	}
	plan.Order = order
	return plan, nil
}

// expand resolves "all" into the source tables that have rows and also exist on
// the target.
func (p *Planner) expand(ctx context.Context, requested []string) ([]string, error) {
	if !(len(requested) == 0 || (len(requested) == 1 && strings.EqualFold(requested[0], AllTables))) {
		return requested, nil
	}
	tables, err := p.Source.Tables(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, t := range tables {
		if _, err := p.Target.Resolve(ctx, t); err != nil {
			var nf *schema.SchemaNotFoundError
			if errors.As(err, &nf) {
				log.WithField("table", t).Debug("not on target, leaving out")
				continue
			}
			return nil, err
		}
		n, err := p.Source.RowCount(ctx, t)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			log.WithField("table", t).Debug("empty on source, leaving out")
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *Planner) describe(ctx context.Context, name string) (*TablePlan, error) {
	src, err := p.Source.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	dst, err := p.Target.Describe(ctx, name)
	if err != nil {
		return nil, err
	}

	tp := &TablePlan{Name: dst.Name, Source: src, Target: dst}
	for _, tc := range dst.Columns {
		sc, ok := src.Column(tc.Name)
		if !ok {
			continue
		}
		tp.SourceColumns = append(tp.SourceColumns, sc.Name)
		tp.TargetColumns = append(tp.TargetColumns, tc.Name)
		tp.Targets = append(tp.Targets, tc)
		tp.Rules = append(tp.Rules, p.Reconciler.RuleFor(sc.Type, tc.Type))
	}

	tp.OrderBy = src.PrimaryKey()
	if len(tp.OrderBy) == 0 {
		tp.OrderBy = tp.SourceColumns
	}
	return tp, nil
}
