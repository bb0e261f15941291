package writer

import "sync"

// pathLocks serializes mutations per file path: writes against one path
// never interleave, while writes to different paths proceed concurrently.
// An entry is removed from the map once its last holder releases, so the
// map never grows unboundedly over a long session.
type pathLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem     chan struct{}
	waiters int
}

func newPathLocks() *pathLocks {
	return &pathLocks{entries: make(map[string]*lockEntry)}
}

func (l *pathLocks) acquire(path string) {
	l.mu.Lock()
	e, ok := l.entries[path]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[path] = e
	}
	e.waiters++
	l.mu.Unlock()

	e.sem <- struct{}{}
}

func (l *pathLocks) release(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[path]
	if !ok {
		return
	}
	<-e.sem
	e.waiters--
	if e.waiters == 0 {
		delete(l.entries, path)
	}
}

// do runs fn while holding the lock for path.
func (l *pathLocks) do(path string, fn func() error) error {
	l.acquire(path)
	defer l.release(path)
	return fn()
}

// size reports the number of live entries; used to verify cleanup in tests.
func (l *pathLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
