package locks

import "sync"

// Registry hands out one mutex per aggregate key so every mutating
// command on a league (or standalone match) runs serialized. The store
// is embedded sqlite in a single process, so an in-process lock is the
// whole coordination story.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) lock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

// With runs fn while holding the lock for key.
func (r *Registry) With(key string, fn func() error) error {
	l := r.lock(key)
	l.Lock()
	defer l.Unlock()
	return fn()
}
