package engine

import (
	"fmt"
	"sync"

	"github.com/gosuri/uiprogress"
	log "github.com/sirupsen/logrus"
)

// Progress hands out a tracker per table.
type Progress interface {
	Start(table string, total int64) Tracker
	Stop()
}

// Tracker follows one table's rows.
type Tracker interface {
	Add(n int)
	Done()
}

// NewProgress returns bars on an interactive terminal and periodic log lines
// otherwise.
func NewProgress(interactive bool, every int) Progress {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	if interactive {
		return &barProgress{}
	}
	return &logProgress{every: int64(every)}
}

// barProgress draws one uiprogress bar per table.
type barProgress struct {
	mu      sync.Mutex
	started bool
}

func (p *barProgress) Start(table string, total int64) Tracker {
	p.mu.Lock()
	if !p.started {
		uiprogress.Start()
		p.started = true
	}
	p.mu.Unlock()
	size := int(total)
	if size <= 0 {
		size = 1
	}
	bar := uiprogress.AddBar(size).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("%-24s", table)
	})
	return &barTracker{bar: bar, total: size}
}

func (p *barProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		uiprogress.Stop()
		p.started = false
	}
}

type barTracker struct {
	bar   *uiprogress.Bar
	total int
	done  int
}

func (t *barTracker) Add(n int) {
	t.done += n
	if t.done > t.total {
		t.done = t.total
	}
	t.bar.Set(t.done)
}

func (t *barTracker) Done() { t.bar.Set(t.total) }

// logProgress logs a line every N rows.
type logProgress struct {
	every int64
}

func (p *logProgress) Start(table string, total int64) Tracker {
	return &logTracker{table: table, total: total, every: p.every}
}

func (p *logProgress) Stop() {}

type logTracker struct {
	table string
	total int64
	every int64
	done  int64
	next  int64
}

func (t *logTracker) Add(n int) {
	t.done += int64(n)
	if t.next == 0 {
		t.next = t.every
	}
	if t.done < t.next {
		return
	}
	for t.next <= t.done {
		t.next += t.every
	}
	log.WithField("table", t.table).Infof("%d/%d rows processed", t.done, t.total)
}

func (t *logTracker) Done() {
	log.WithField("table", t.table).Infof("%d rows processed", t.done)
}

type noProgress struct{}

func (noProgress) Start(string, int64) Tracker { return noTracker{} }
func (noProgress) Stop()                       {}

type noTracker struct{}

func (noTracker) Add(int) {}
func (noTracker) Done()   {}
