// Package favorites persists the set of listings a student has starred.
package favorites

import (
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/store"
)

// Store holds the favorited property IDs for the current store
// namespace. Favorites are keyed to the durable store, not to the
// authenticated user; two users sharing one store share favorites.
// Concurrent toggles from separate execution contexts resolve
// last-write-wins.
type Store struct {
	adapter store.Adapter
	logger  *zap.Logger

	mu     sync.Mutex
	ids    map[int64]struct{}
	loaded bool
}

// New builds a favorites store over the given adapter. The persisted set
// is loaded lazily on first access.
func New(adapter store.Adapter, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{adapter: adapter, logger: logger}
}

// List returns the current favorites in ascending ID order for stable
// output; membership itself is unordered.
func (s *Store) List() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.snapshotLocked()
}

// Contains reports whether the property is favorited.
func (s *Store) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	_, ok := s.ids[id]
	return ok
}

// Toggle adds the ID when absent and removes it when present, persists
// the resulting set, and returns the new membership. Toggling twice
// restores the original set.
func (s *Store) Toggle(id int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.persistLocked()
	return s.snapshotLocked()
}

// loadLocked reads the persisted set once. Corrupt JSON resets to empty;
// duplicates in the stored array collapse into set membership.
func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.ids = make(map[int64]struct{})

	raw, ok := s.adapter.Get(store.KeyFavorites)
	if !ok || raw == "" {
		return
	}

	var stored []int64
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("favorites corrupt, resetting", zap.Error(err))
		s.adapter.Remove(store.KeyFavorites)
		return
	}
	for _, id := range stored {
		s.ids[id] = struct{}{}
	}
}

func (s *Store) persistLocked() {
	ids := s.snapshotLocked()
	raw, err := json.Marshal(ids)
	if err != nil {
		s.logger.Warn("favorites marshal failed", zap.Error(err))
		return
	}
	s.adapter.Set(store.KeyFavorites, string(raw))
}

func (s *Store) snapshotLocked() []int64 {
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
