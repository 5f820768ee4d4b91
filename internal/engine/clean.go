package engine

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"db-migrate/internal/database"
	"db-migrate/internal/schema"
)

// CleanResult is the outcome of emptying one table.
type CleanResult struct {
	Table   string `json:"table"`
	Deleted int64  `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// Clean deletes every row of the given tables, children before parents, with
// foreign-key enforcement suspended when the session is allowed to. A table that
// cannot be emptied is reported and the rest are still cleaned.
func Clean(ctx context.Context, db database.Handle, catalog *schema.Catalog, tables []string) ([]CleanResult, error) {
	schemas := make(map[string]*schema.TableSchema)
	var names []string
	for _, t := range tables {
		ts, err := catalog.Describe(ctx, t)
		if err != nil {
			return nil, err
		}
		schemas[ts.Name] = ts
		names = append(names, ts.Name)
	}
	order, err := schema.Order(names, schemas)
	var cycle *schema.CycleError
	if errors.As(err, &cycle) {
		order = append(order, cycle.Tables...)
		order = append(order, cycle.Blocked...)
	} else if err != nil {
		return nil, err
	}

	var results []CleanResult
	ctrl := NewController(db, order)
	denied := func(err error) { log.WithError(err).Warn("cleaning with foreign keys enforced") }
	err = ctrl.WithSuspended(ctx, denied, func() error {
		d := db.Dialect()
		for i := len(order) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := CleanResult{Table: order[i]}
			n, err := db.Exec(ctx, d.DeleteQuery(order[i]))
			if err != nil {
				log.WithField("table", order[i]).WithError(err).Warn("failed to clean, continuing")
				res.Error = err.Error()
			}
			res.Deleted = n
			results = append(results, res)

			if done := len(results); done%5 == 0 || done == len(order) {
				log.Infof("cleaned %d/%d tables", done, len(order))
			}
		}
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("failed to clean %s: %w", db.Label(), err)
	}
	return results, nil
}
