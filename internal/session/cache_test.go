package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusstay/discovery/internal/models"
	"github.com/campusstay/discovery/internal/store"
)

// A long window keeps the poll fallback out of event-driven tests.
var quietOptions = Options{StalenessWindow: time.Hour}

func TestLoadEmptyStore(t *testing.T) {
	c := New(store.NewMemory(), quietOptions)
	defer c.Close()

	state := c.Load()
	assert.True(t, state.Ready)
	assert.Nil(t, state.Identity)
	assert.Empty(t, state.Credential)
	assert.False(t, state.Authenticated())
}

func TestLoadClearsMismatchedKeys(t *testing.T) {
	adapter := store.NewMemory()
	adapter.Set(store.KeyIdentity, `{"role":"student"}`)

	c := New(adapter, quietOptions)
	defer c.Close()

	state := c.Load()
	assert.True(t, state.Ready)
	assert.Nil(t, state.Identity)
	assert.Empty(t, state.Credential)

	_, hasIdentity := adapter.Get(store.KeyIdentity)
	_, hasCredential := adapter.Get(store.KeyCredential)
	assert.False(t, hasIdentity, "mismatched identity key must be cleared")
	assert.False(t, hasCredential)
}

func TestLoadClearsCorruptIdentity(t *testing.T) {
	adapter := store.NewMemory()
	adapter.Set(store.KeyIdentity, `{"role":`)
	adapter.Set(store.KeyCredential, "token-1")

	c := New(adapter, quietOptions)
	defer c.Close()

	state := c.Load()
	assert.Nil(t, state.Identity)

	_, hasCredential := adapter.Get(store.KeyCredential)
	assert.False(t, hasCredential, "credential is cleared alongside corrupt identity")
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	adapter := store.NewMemory()
	adapter.Set(store.KeyIdentity, `{"role":"superuser"}`)
	adapter.Set(store.KeyCredential, "token-1")

	c := New(adapter, quietOptions)
	defer c.Close()

	state := c.Load()
	assert.Nil(t, state.Identity, "unknown role is corruption, not a default")
}

func TestLoadValidSession(t *testing.T) {
	adapter := store.NewMemory()
	adapter.Set(store.KeyIdentity, `{"role":"admin","email":"staff@campus.example"}`)
	adapter.Set(store.KeyCredential, "token-9")

	c := New(adapter, quietOptions)
	defer c.Close()

	state := c.Load()
	require.NotNil(t, state.Identity)
	assert.Equal(t, models.RoleAdmin, state.Identity.Role)
	assert.Equal(t, "token-9", state.Credential)
	assert.True(t, state.Authenticated())
}

func TestSetAuthenticatedBroadcastsLocally(t *testing.T) {
	c := New(store.NewMemory(), quietOptions)
	defer c.Close()
	c.Load()

	deliveries := make(chan models.SessionState, 4)
	cancel := c.Subscribe(func(s models.SessionState) { deliveries <- s })
	defer cancel()

	c.SetAuthenticated(models.Identity{Role: models.RoleStudent, Email: "s@campus.example"}, "token-1")

	select {
	case state := <-deliveries:
		require.NotNil(t, state.Identity)
		assert.Equal(t, models.RoleStudent, state.Identity.Role)
		assert.Equal(t, "token-1", state.Credential)
	case <-time.After(time.Second):
		t.Fatal("expected a delivery after login")
	}

	c.Clear()
	select {
	case state := <-deliveries:
		assert.False(t, state.Authenticated())
	case <-time.After(time.Second):
		t.Fatal("expected a delivery after logout")
	}
}

func TestValueEqualityGateSuppressesRedundantDeliveries(t *testing.T) {
	c := New(store.NewMemory(), quietOptions)
	defer c.Close()
	c.Load()

	deliveries := make(chan models.SessionState, 4)
	cancel := c.Subscribe(func(s models.SessionState) { deliveries <- s })
	defer cancel()

	ident := models.Identity{Role: models.RoleStudent}
	c.SetAuthenticated(ident, "token-1")
	<-deliveries

	// Same role and credential again: the gate swallows it.
	c.SetAuthenticated(ident, "token-1")
	select {
	case <-deliveries:
		t.Fatal("redundant state must not be delivered")
	case <-time.After(100 * time.Millisecond):
	}

	// A new credential passes the gate.
	c.SetAuthenticated(ident, "token-2")
	select {
	case state := <-deliveries:
		assert.Equal(t, "token-2", state.Credential)
	case <-time.After(time.Second):
		t.Fatal("expected a delivery for the changed credential")
	}
}

func TestCrossContextChangeIsObserved(t *testing.T) {
	shared := store.NewMemory()
	local := New(shared, quietOptions)
	defer local.Close()
	local.Load()

	deliveries := make(chan models.SessionState, 4)
	cancel := local.Subscribe(func(s models.SessionState) { deliveries <- s })
	defer cancel()

	remote := New(shared.Sibling(), quietOptions)
	defer remote.Close()
	remote.SetAuthenticated(models.Identity{Role: models.RoleAdmin}, "token-x")

	var state models.SessionState
	for {
		select {
		case state = <-deliveries:
		case <-time.After(time.Second):
			t.Fatal("expected the other context's login to be observed")
		}
		if state.Authenticated() {
			break
		}
	}
	assert.Equal(t, models.RoleAdmin, state.Identity.Role)
	assert.Equal(t, "token-x", state.Credential)
}

func TestPollFallbackObservesSilentChange(t *testing.T) {
	adapter := store.NewMemory()
	c := New(adapter, Options{StalenessWindow: 20 * time.Millisecond})
	defer c.Close()
	c.Load()

	deliveries := make(chan models.SessionState, 4)
	cancel := c.Subscribe(func(s models.SessionState) { deliveries <- s })
	defer cancel()

	// Write through a sibling handle with no notifier consumer attached;
	// the bounded-interval reconciliation must still pick it up.
	sibling := adapter.Sibling()
	sibling.Set(store.KeyIdentity, `{"role":"student"}`)
	sibling.Set(store.KeyCredential, "token-poll")

	for {
		select {
		case state := <-deliveries:
			if state.Authenticated() {
				assert.Equal(t, "token-poll", state.Credential)
				return
			}
		case <-time.After(time.Second):
			t.Fatal("poll fallback did not observe the change")
		}
	}
}

func TestCloseStopsDeliveries(t *testing.T) {
	c := New(store.NewMemory(), quietOptions)
	c.Load()

	deliveries := make(chan models.SessionState, 4)
	c.Subscribe(func(s models.SessionState) { deliveries <- s })

	c.Close()

	select {
	case <-deliveries:
		t.Fatal("no deliveries expected after Close")
	case <-time.After(50 * time.Millisecond):
	}
}
