package engine

import (
	"fmt"
	"unicode/utf8"
)

// RowInsertError is a target-side rejection of a single row. The row key is kept
// out of the message so the same rejection reads the same for every row.
type RowInsertError struct {
	Table string
	Row   string
	Err   error
}

func (e *RowInsertError) Error() string {
	return fmt.Sprintf("insert into %s rejected: %v", e.Table, e.Err)
}

func (e *RowInsertError) Unwrap() error { return e.Err }

// ReadError means a page could not be read from the source; the table is aborted.
type ReadError struct {
	Table  string
	Offset int
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s at offset %d: %v", e.Table, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// truncate bounds an error message to n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
