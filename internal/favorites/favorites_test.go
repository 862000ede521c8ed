package favorites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusstay/discovery/internal/store"
)

func TestToggleAddsAndRemoves(t *testing.T) {
	s := New(store.NewMemory(), nil)

	assert.Equal(t, []int64{7}, s.Toggle(7))
	assert.True(t, s.Contains(7))

	assert.Empty(t, s.Toggle(7))
	assert.False(t, s.Contains(7))
}

func TestToggleTwiceRestoresOriginalSet(t *testing.T) {
	s := New(store.NewMemory(), nil)
	s.Toggle(1)
	s.Toggle(2)
	before := s.List()

	s.Toggle(99)
	s.Toggle(99)

	assert.Equal(t, before, s.List())
}

func TestTogglePersistsImmediately(t *testing.T) {
	adapter := store.NewMemory()
	s := New(adapter, nil)
	s.Toggle(3)
	s.Toggle(1)

	raw, ok := adapter.Get(store.KeyFavorites)
	require.True(t, ok)
	assert.JSONEq(t, `[1,3]`, raw)

	// A second store over the same adapter sees the persisted set.
	reloaded := New(adapter, nil)
	assert.Equal(t, []int64{1, 3}, reloaded.List())
}

func TestLoadCollapsesDuplicates(t *testing.T) {
	adapter := store.NewMemory()
	adapter.Set(store.KeyFavorites, `[5,5,2,5,2]`)

	s := New(adapter, nil)
	assert.Equal(t, []int64{2, 5}, s.List())
}

func TestLoadResetsCorruptState(t *testing.T) {
	adapter := store.NewMemory()
	adapter.Set(store.KeyFavorites, `{"not":"an array"`)

	s := New(adapter, nil)
	assert.Empty(t, s.List())

	_, ok := adapter.Get(store.KeyFavorites)
	assert.False(t, ok, "corrupt value is cleared, not kept")
}
