package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"db-migrate/internal/database"
	"db-migrate/internal/schema"
	"db-migrate/internal/value"
)

// poolLimit caps how many parent keys are loaded for foreign-key columns.
const poolLimit = 1000

// SeedResult is the outcome of seeding one table.
type SeedResult struct {
	Table     string `json:"table"`
	Requested int    `json:"requested"`
	Inserted  int    `json:"inserted"`
	Actual    int64  `json:"actual"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Seeder fills tables with generated rows, parents first, so rehearsal databases
// have data to migrate. Foreign-key columns take values already present in the
// referenced table.
type Seeder struct {
	db      database.Handle
	catalog *schema.Catalog
	gen     *generator

	pool map[string][]any
}

// NewSeeder returns a Seeder. A zero seed picks a random one.
func NewSeeder(db database.Handle, catalog *schema.Catalog, seed int64) *Seeder {
	return &Seeder{db: db, catalog: catalog, gen: newGenerator(seed), pool: make(map[string][]any)}
}

// Seed inserts count rows into each table. Tables caught in a reference cycle are
// seeded after the rest; their non-nullable references may then be unsatisfiable.
func (s *Seeder) Seed(ctx context.Context, tables []string, count int, progress Progress) ([]SeedResult, error) {
	if progress == nil {
		progress = noProgress{}
	}
	defer progress.Stop()

	schemas := make(map[string]*schema.TableSchema)
	var names []string
	for _, t := range tables {
		ts, err := s.catalog.Describe(ctx, t)
		if err != nil {
			return nil, err
		}
		schemas[ts.Name] = ts
		names = append(names, ts.Name)
	}

	order, err := schema.Order(names, schemas)
	var cycle *schema.CycleError
	if errors.As(err, &cycle) {
		log.Warnf("seeding despite %v", cycle)
		order = append(order, cycle.Tables...)
		rest, _ := schema.Order(cycle.Blocked, schemas)
		order = append(order, rest...)
	} else if err != nil {
		return nil, err
	}

	var results []SeedResult
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.seedTable(ctx, schemas[name], count, progress))
	}
	return results, nil
}

func (s *Seeder) seedTable(ctx context.Context, ts *schema.TableSchema, count int, progress Progress) SeedResult {
	logger := log.WithField("table", ts.Name)
	res := SeedResult{Table: ts.Name, Requested: count, Status: StatusOK}

	initial, err := s.catalog.RowCount(ctx, ts.Name)
	if err != nil {
		res.Status, res.Error = StatusAborted, err.Error()
		return res
	}

	var cols []schema.ColumnDescriptor
	var names []string
	for _, c := range ts.Columns {
		if !c.AutoIncrement {
			cols = append(cols, c)
			names = append(names, c.Name)
		}
	}
	if len(cols) == 0 {
		res.Status, res.Error = StatusSkipped, "no insertable columns"
		return res
	}

	refs := make(map[string]schema.ForeignKey)
	for _, fk := range ts.ForeignKeys {
		refs[strings.ToLower(fk.Column)] = fk
	}

	query := s.db.Dialect().InsertQuery(ts.Name, names, 1)
	tracker := progress.Start(ts.Name, int64(count))
	defer tracker.Done()

	used := make(map[string]bool)
	var lastErr error
	for attempt := 1; res.Inserted < count && attempt <= count*10; attempt++ {
		if ctx.Err() != nil {
			break
		}
		row, err := s.row(ctx, ts, cols, refs, int(initial)+attempt)
		if err != nil {
			res.Status, res.Error = StatusSkipped, err.Error()
			logger.Warn(err)
			break
		}
		if duplicate(cols, row, used) {
			continue
		}
		if _, err := s.db.Exec(ctx, query, row.Natives()...); err != nil {
			lastErr = err
			if attempt <= 3 {
				logger.WithError(err).Debugf("attempt %d rejected", attempt)
			}
			continue
		}
		res.Inserted++
		tracker.Add(1)
	}

	if res.Actual, err = s.catalog.RowCount(ctx, ts.Name); err == nil {
		res.Actual -= initial
	}
	if res.Status == StatusOK && res.Inserted < count {
		res.Status = StatusPartial
		if lastErr != nil {
			res.Error = truncate(lastErr.Error(), DefaultErrorLength)
		}
	}
	// Children seeded later must see this table's keys.
	for key := range s.pool {
		if strings.HasPrefix(key, strings.ToLower(ts.Name)+".") {
			delete(s.pool, key)
		}
	}
	logger.Infof("seeded %d/%d rows", res.Inserted, count)
	return res
}

func (s *Seeder) row(ctx context.Context, ts *schema.TableSchema, cols []schema.ColumnDescriptor, refs map[string]schema.ForeignKey, index int) (value.Row, error) {
	row := make(value.Row, len(cols))
	for i, c := range cols {
		fk, ok := refs[strings.ToLower(c.Name)]
		if !ok {
			row[i] = s.gen.value(c, index)
			continue
		}
		parents, err := s.parents(ctx, fk)
		if err != nil {
			return nil, err
		}
		switch {
		case len(parents) > 0:
			row[i] = value.FromDriver(parents[index%len(parents)])
		case c.Nullable:
			row[i] = value.NullValue()
		default:
			return nil, fmt.Errorf("no rows in %s to reference from %s.%s", fk.RefTable, ts.Name, c.Name)
		}
	}
	return row, nil
}

// parents loads the referenced column's values once per table.
func (s *Seeder) parents(ctx context.Context, fk schema.ForeignKey) ([]any, error) {
	key := strings.ToLower(fk.RefTable + "." + fk.RefColumn)
	if vals, ok := s.pool[key]; ok {
		return vals, nil
	}
	d := s.db.Dialect()
	cols := []string{fk.RefColumn}
	rs, err := s.db.Query(ctx, d.SelectPageQuery(fk.RefTable, cols, cols, poolLimit, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to load keys of %s: %w", fk.RefTable, err)
	}
	vals := make([]any, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		if len(r) > 0 && r[0] != nil {
			vals = append(vals, r[0])
		}
	}
	s.pool[key] = vals
	return vals, nil
}

// duplicate reports whether the row repeats a primary key generated earlier for
// this table, and remembers it otherwise.
func duplicate(cols []schema.ColumnDescriptor, row value.Row, used map[string]bool) bool {
	var pk []string
	for i, c := range cols {
		if c.PrimaryKey {
			pk = append(pk, row[i].String())
		}
	}
	if len(pk) == 0 {
		return false
	}
	key := strings.Join(pk, "|")
	if used[key] {
		return true
	}
	used[key] = true
	return false
}
