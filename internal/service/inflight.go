package service

import "sync"

// inflightGuard tracks operations currently executing by key.
//
// Toggle endpoints are not idempotent at the store level (two toggles
// undo each other), so a double-tap in the client must not run the
// operation twice. The first request acquires the key; duplicates
// arriving while it runs are detected and answered with the current
// state instead of toggling again.
type inflightGuard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{keys: make(map[string]struct{})}
}

// tryAcquire marks key as in flight. Returns false if the key is
// already held by another request.
func (g *inflightGuard) tryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.keys[key]; held {
		return false
	}
	g.keys[key] = struct{}{}
	return true
}

// release frees the key for future requests.
func (g *inflightGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
}
