package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"db-migrate/internal/database"
)

// Controller turns foreign-key enforcement off and back on for a set of target
// tables. Both directions are idempotent; Restore only acts after a successful
// Suspend.
type Controller struct {
	db     database.Handle
	tables []string

	mu        sync.Mutex
	suspended bool
}

func NewController(db database.Handle, tables []string) *Controller {
	return &Controller{db: db, tables: tables}
}

// Suspend disables enforcement for the session. A missing privilege comes back
// wrapping database.ErrInsufficientPrivilege.
func (c *Controller) Suspend(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return nil
	}
	for _, stmt := range c.db.Dialect().SuspendStatements(c.tables) {
		if err := c.db.ExecSession(ctx, stmt); err != nil {
			if database.IsPrivilegeError(err) {
				return fmt.Errorf("%w: %v", database.ErrInsufficientPrivilege, err)
			}
			return fmt.Errorf("failed to suspend constraints on %s: %w", c.db.Label(), err)
		}
	}
	c.suspended = true
	log.WithField("system", c.db.Label()).Info("foreign key enforcement suspended")
	return nil
}

// Restore re-enables enforcement. It ignores cancellation of ctx so it still runs
// when the run is being torn down.
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.suspended {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	for _, stmt := range c.db.Dialect().RestoreStatements(c.tables) {
		if err := c.db.ExecSession(ctx, stmt); err != nil {
			return fmt.Errorf("failed to restore constraints on %s: %w", c.db.Label(), err)
		}
	}
	c.suspended = false
	log.WithField("system", c.db.Label()).Info("foreign key enforcement restored")
	return nil
}

// Suspended reports whether enforcement is currently off.
func (c *Controller) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// WithSuspended runs fn with enforcement suspended and restores it on every exit
// path. When the privilege is missing fn still runs, unsuspended, and the privilege
// error is passed to onDenied.
func (c *Controller) WithSuspended(ctx context.Context, onDenied func(error), fn func() error) (err error) {
	if serr := c.Suspend(ctx); serr != nil {
		if !database.IsPrivilegeError(serr) {
			return serr
		}
		if onDenied != nil {
			onDenied(serr)
		}
	}
	defer func() {
		if rerr := c.Restore(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}
