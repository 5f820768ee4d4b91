package engine

import (
	"fmt"
	"strings"
	"time"
)

// Mode decides what happens to rows already in the target tables.
type Mode string

const (
	// Replace deletes existing target rows before copying.
	Replace Mode = "replace"
	// Append keeps them and inserts alongside.
	Append Mode = "append"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Replace:
		return Replace, nil
	case Append:
		return Append, nil
	}
	return "", fmt.Errorf("invalid mode %q (want replace or append)", s)
}

const (
	DefaultBatchSize      = 200
	MaxBatchSize          = 5000
	DefaultProgressEvery  = 200
	DefaultBatchTimeout   = 30 * time.Second
	DefaultErrorLength    = 200
	DefaultSampleFailures = 5
)

// Options tunes a migration run.
type Options struct {
	Mode               Mode
	BatchSize          int
	DryRun             bool
	SuspendConstraints bool
	BatchTimeout       time.Duration
	ErrorLength        int
	SampleFailures     int
}

// withDefaults fills zero values and clamps the batch size.
func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = Replace
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize > MaxBatchSize {
		o.BatchSize = MaxBatchSize
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = DefaultBatchTimeout
	}
	if o.ErrorLength <= 0 {
		o.ErrorLength = DefaultErrorLength
	}
	if o.SampleFailures <= 0 {
		o.SampleFailures = DefaultSampleFailures
	}
	return o
}
