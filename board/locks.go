package board

import (
	"sort"
	"sync"

	"taskboard-api/domain"
)

// columnLocks serializes reconciliations per column. Every read-modify-write
// of a column's ordering happens under that column's mutex; cross-column
// moves take both mutexes in sorted order so two opposing moves cannot
// deadlock.
type columnLocks struct {
	mu   sync.Mutex
	cols map[domain.ColumnID]*sync.Mutex
}

func newColumnLocks() *columnLocks {
	return &columnLocks{cols: make(map[domain.ColumnID]*sync.Mutex)}
}

func (l *columnLocks) get(col domain.ColumnID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.cols[col]
	if !ok {
		m = &sync.Mutex{}
		l.cols[col] = m
	}
	return m
}

// lock acquires the mutexes for the given columns and returns the matching
// unlock function.
func (l *columnLocks) lock(cols ...domain.ColumnID) func() {
	uniq := make([]domain.ColumnID, 0, len(cols))
	seen := make(map[domain.ColumnID]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	locked := make([]*sync.Mutex, 0, len(uniq))
	for _, c := range uniq {
		m := l.get(c)
		m.Lock()
		locked = append(locked, m)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
