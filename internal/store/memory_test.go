package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()

	_, ok := m.Get("missing")
	assert.False(t, ok)

	m.Set("identity", `{"role":"student"}`)
	v, ok := m.Get("identity")
	assert.True(t, ok)
	assert.Equal(t, `{"role":"student"}`, v)

	m.Remove("identity")
	_, ok = m.Get("identity")
	assert.False(t, ok)
}

func TestMemorySiblingsShareValues(t *testing.T) {
	a := NewMemory()
	b := a.Sibling()

	a.Set("favorites", "[1,2]")
	v, ok := b.Get("favorites")
	assert.True(t, ok)
	assert.Equal(t, "[1,2]", v)
}

func TestMemorySignalsOtherContextsOnly(t *testing.T) {
	a := NewMemory()
	b := a.Sibling()

	var aKeys, bKeys []string
	cancelA := a.Subscribe(func(key string) { aKeys = append(aKeys, key) })
	defer cancelA()
	cancelB := b.Subscribe(func(key string) { bKeys = append(bKeys, key) })
	defer cancelB()

	a.Set("credential", "token")

	assert.Empty(t, aKeys, "a context never sees its own writes")
	assert.Equal(t, []string{"credential"}, bKeys)
}

func TestMemoryRemoveSignalsOnlyWhenPresent(t *testing.T) {
	a := NewMemory()
	b := a.Sibling()

	var keys []string
	cancel := b.Subscribe(func(key string) { keys = append(keys, key) })
	defer cancel()

	a.Remove("absent")
	assert.Empty(t, keys)

	a.Set("identity", "x")
	a.Remove("identity")
	assert.Equal(t, []string{"identity", "identity"}, keys)
}

func TestMemoryUnsubscribe(t *testing.T) {
	a := NewMemory()
	b := a.Sibling()

	calls := 0
	cancel := b.Subscribe(func(string) { calls++ })
	a.Set("k", "1")
	cancel()
	a.Set("k", "2")

	assert.Equal(t, 1, calls)
}
