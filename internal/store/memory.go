package store

import "sync"

// memoryBacking is the shared substrate behind one or more Memory
// handles. Each handle models an independent execution context; writes
// through one handle signal subscribers registered on the others.
type memoryBacking struct {
	mu     sync.RWMutex
	values map[string]string
	subs   map[int]memorySub
	nextID int
}

type memorySub struct {
	context int
	fn      func(key string)
}

// Memory is an in-process Adapter used as the default test double and
// for ephemeral sessions.
type Memory struct {
	backing *memoryBacking
	context int
}

// NewMemory creates a fresh in-memory store with one execution context.
func NewMemory() *Memory {
	b := &memoryBacking{
		values: make(map[string]string),
		subs:   make(map[int]memorySub),
	}
	return &Memory{backing: b, context: b.nextContext()}
}

// Sibling returns a second handle over the same backing values,
// modelling another execution context (tab) sharing the durable store.
func (m *Memory) Sibling() *Memory {
	return &Memory{backing: m.backing, context: m.backing.nextContext()}
}

func (b *memoryBacking) nextContext() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}

// Get implements Adapter.
func (m *Memory) Get(key string) (string, bool) {
	m.backing.mu.RLock()
	defer m.backing.mu.RUnlock()
	v, ok := m.backing.values[key]
	return v, ok
}

// Set implements Adapter.
func (m *Memory) Set(key, value string) {
	m.backing.mu.Lock()
	m.backing.values[key] = value
	subs := m.backing.othersLocked(m.context)
	m.backing.mu.Unlock()

	for _, fn := range subs {
		fn(key)
	}
}

// Remove implements Adapter.
func (m *Memory) Remove(key string) {
	m.backing.mu.Lock()
	_, existed := m.backing.values[key]
	delete(m.backing.values, key)
	var subs []func(string)
	if existed {
		subs = m.backing.othersLocked(m.context)
	}
	m.backing.mu.Unlock()

	for _, fn := range subs {
		fn(key)
	}
}

// Subscribe implements Notifier. The callback fires for writes made
// through sibling handles only.
func (m *Memory) Subscribe(fn func(key string)) (cancel func()) {
	m.backing.mu.Lock()
	m.backing.nextID++
	id := m.backing.nextID
	m.backing.subs[id] = memorySub{context: m.context, fn: fn}
	m.backing.mu.Unlock()

	return func() {
		m.backing.mu.Lock()
		delete(m.backing.subs, id)
		m.backing.mu.Unlock()
	}
}

// othersLocked snapshots the callbacks registered by other contexts.
// Caller holds the mutex.
func (b *memoryBacking) othersLocked(context int) []func(string) {
	out := make([]func(string), 0, len(b.subs))
	for _, s := range b.subs {
		if s.context != context {
			out = append(out, s.fn)
		}
	}
	return out
}
