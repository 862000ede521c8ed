// Package store provides the durable key/value persistence used by the
// discovery engine. Adapters are synchronous and fail-silent: a backend
// error is logged and counted, never surfaced to the caller.
package store

// Keys the engine persists under. They are shared by every execution
// context that points at the same backing store.
const (
	KeyIdentity   = "identity"
	KeyCredential = "credential"
	KeyFavorites  = "favorites"
)

// Adapter abstracts the concrete durable store so the engine stays
// storage-agnostic and testable with an in-memory fake.
type Adapter interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool)
	// Set stores the value, replacing any previous one.
	Set(key, value string)
	// Remove deletes the key. Removing an absent key is a no-op.
	Remove(key string)
}

// Notifier is an optional adapter capability: delivery of change signals
// for keys written by other execution contexts sharing the same backing
// store. A context never receives signals for its own writes.
type Notifier interface {
	Subscribe(fn func(key string)) (cancel func())
}
