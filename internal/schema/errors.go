package schema

import (
	"fmt"
	"strings"
)

// SchemaNotFoundError means a table does not exist on one of the systems.
type SchemaNotFoundError struct {
	System string
	Table  string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found on %s", e.Table, e.System)
}

// CycleError reports the tables caught in (or blocked behind) a foreign-key cycle.
// Tables are the cycle members; Blocked are tables that only wait on them.
type CycleError struct {
	Tables  []string
	Blocked []string
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("foreign key cycle between tables: %s", strings.Join(e.Tables, ", "))
	if len(e.Blocked) > 0 {
		msg += fmt.Sprintf(" (blocking %s)", strings.Join(e.Blocked, ", "))
	}
	return msg
}
