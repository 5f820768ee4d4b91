package schema

import "strings"

// Order sorts tables so that every referenced table comes before the tables that
// reference it. Only references between the given tables count. Among tables that
// are ready at the same time the input order wins.
//
// When the references form a cycle, Order returns the tables it could place along
// with a *CycleError naming the rest.
func Order(tables []string, schemas map[string]*TableSchema) ([]string, error) {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[strings.ToLower(t)] = i
	}

	// deps[i] holds the tables i must wait for; dependents is the reverse.
	deps := make([]map[int]bool, len(tables))
	dependents := make([]map[int]bool, len(tables))
	for i := range tables {
		deps[i] = make(map[int]bool)
		dependents[i] = make(map[int]bool)
	}
	for i, t := range tables {
		ts := lookup(schemas, t)
		if ts == nil {
			continue
		}
		for _, ref := range ts.References() {
			j, ok := index[strings.ToLower(ref)]
			if !ok || j == i {
				continue
			}
			deps[i][j] = true
			dependents[j][i] = true
		}
	}

	pending := make([]int, len(tables))
	for i := range tables {
		pending[i] = len(deps[i])
	}
	placed := make([]bool, len(tables))
	sorted := make([]string, 0, len(tables))

	for len(sorted) < len(tables) {
		next := -1
		for i := range tables {
			if !placed[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return sorted, cycleError(tables, placed, deps)
		}
		placed[next] = true
		sorted = append(sorted, tables[next])
		for d := range dependents[next] {
			pending[d]--
		}
	}
	return sorted, nil
}

// cycleError splits the unplaced tables into cycle members and tables merely
// waiting on a cycle. Members are the tables in a strongly connected component of
// more than one table (Tarjan's algorithm over the unplaced references).
func cycleError(tables []string, placed []bool, deps []map[int]bool) *CycleError {
	t := &tarjan{
		deps:  deps,
		skip:  placed,
		index: make([]int, len(tables)),
		low:   make([]int, len(tables)),
		on:    make([]bool, len(tables)),
		cycle: make([]bool, len(tables)),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for i := range tables {
		if !placed[i] && t.index[i] < 0 {
			t.visit(i)
		}
	}

	e := &CycleError{}
	for i, name := range tables {
		switch {
		case placed[i]:
		case t.cycle[i]:
			e.Tables = append(e.Tables, name)
		default:
			e.Blocked = append(e.Blocked, name)
		}
	}
	return e
}

type tarjan struct {
	deps  []map[int]bool
	skip  []bool
	next  int
	index []int
	low   []int
	on    []bool
	stack []int
	cycle []bool
}

func (t *tarjan) visit(v int) {
	t.index[v], t.low[v] = t.next, t.next
	t.next++
	t.stack = append(t.stack, v)
	t.on[v] = true

	for w := range t.deps[v] {
		if t.skip[w] {
			continue
		}
		if t.index[w] < 0 {
			t.visit(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.on[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var component []int
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.on[w] = false
		component = append(component, w)
		if w == v {
			break
		}
	}
	// Self references are dropped when deps are built, so a single table is never a cycle.
	if len(component) > 1 {
		for _, w := range component {
			t.cycle[w] = true
		}
	}
}

func lookup(schemas map[string]*TableSchema, table string) *TableSchema {
	if ts, ok := schemas[table]; ok {
		return ts
	}
	for name, ts := range schemas {
		if strings.EqualFold(name, table) {
			return ts
		}
	}
	return nil
}
