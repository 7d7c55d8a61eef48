package reconcile

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// memLedger is an in-memory Ledger for tests.
type memLedger struct {
	mu      sync.Mutex
	rows    map[string]Entry
	reads   atomic.Int32
	err     error
	putErr  error
	removed []string
}

func newMemLedger(entries ...Entry) *memLedger {
	l := &memLedger{rows: make(map[string]Entry)}
	for _, e := range entries {
		l.rows[e.Key] = e
	}
	return l
}

func (l *memLedger) Entries(_ context.Context, _, _ string) ([]Entry, error) {
	l.reads.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.rows))
	for _, e := range l.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (l *memLedger) Put(_ context.Context, _ string, e Entry) error {
	if l.putErr != nil {
		return l.putErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[e.Key] = e
	return nil
}

func (l *memLedger) Remove(_ context.Context, _, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rows, key)
	l.removed = append(l.removed, key)
	return nil
}
