package orchestrator

import "sync"

// docLocks serializes mutations per document id. Webhook, toggle and delete
// calls for the same document interleave at the store otherwise; contention is
// expected to be rare so a keyed mutex beats optimistic versioning here.
type docLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[string]*lockEntry)}
}

// acquire locks the entry for id and returns its release func.
func (l *docLocks) acquire(id string) func() {
	l.mu.Lock()
	entry, exists := l.locks[id]
	if !exists {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
