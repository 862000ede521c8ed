// Package session reconciles the persisted identity and credential keys
// into one consistent session state and keeps that state in sync across
// execution contexts sharing the durable store.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/metrics"
	"github.com/campusstay/discovery/internal/models"
	"github.com/campusstay/discovery/internal/store"
)

// Options tunes cache behaviour.
type Options struct {
	// StalenessWindow bounds how long this context may observe stale
	// session values when the store's change signal is unreliable. The
	// cache re-reconciles on this interval as defense in depth; the
	// event-driven path remains primary. Zero selects one second.
	StalenessWindow time.Duration
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

// Cache is constructed once per application root and torn down with it.
// There is no ambient singleton.
type Cache struct {
	adapter store.Adapter
	logger  *zap.Logger
	metrics *metrics.Metrics
	window  time.Duration

	mu            sync.Mutex
	subs          map[int]func(models.SessionState)
	nextSub       int
	lastDelivered models.SessionState
	delivered     bool
	loadedOnce    bool

	storeCancel func()
	signals     chan struct{}
	ticker      *time.Ticker
	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// signalCoalesce batches store change signals before reconciling, so the
// two session keys written back to back by another context are observed
// together rather than as a transient mismatch. This stands in for the
// event-loop batching a browser host provides.
const signalCoalesce = 25 * time.Millisecond

// New builds a session cache over the adapter and starts the change
// sources: the adapter's cross-context signal when available, and the
// bounded-interval reconciliation tick.
func New(adapter store.Adapter, opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.StalenessWindow <= 0 {
		opts.StalenessWindow = time.Second
	}

	c := &Cache{
		adapter: adapter,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		window:  opts.StalenessWindow,
		subs:    make(map[int]func(models.SessionState)),
		signals: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	if notifier, ok := adapter.(store.Notifier); ok {
		c.storeCancel = notifier.Subscribe(func(key string) {
			if key == store.KeyIdentity || key == store.KeyCredential {
				select {
				case c.signals <- struct{}{}:
				default:
				}
			}
		})
	}

	c.ticker = time.NewTicker(c.window)
	c.wg.Add(2)
	go c.poll()
	go c.watchSignals()

	return c
}

// Close stops the poll ticker and the store subscription. Subscribers
// receive no further deliveries.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ticker.Stop()
		if c.storeCancel != nil {
			c.storeCancel()
		}
		c.wg.Wait()

		c.mu.Lock()
		c.subs = make(map[int]func(models.SessionState))
		c.mu.Unlock()
	})
}

// Load reads both keys and returns the reconciled state. Corrupt or
// mismatched values self-heal: both keys are cleared and the empty state
// is returned. Ready is always true once Load returns.
func (c *Cache) Load() models.SessionState {
	state := c.reconcile()

	c.mu.Lock()
	if !c.loadedOnce {
		c.loadedOnce = true
		c.lastDelivered = state
		c.delivered = true
	}
	c.mu.Unlock()

	return state
}

// Subscribe registers for session changes from any source: writes by
// other execution contexts, this context's own SetAuthenticated/Clear,
// and the reconciliation tick. Deliveries pass a value-equality gate on
// role and credential, so redundant signals produce no callback.
func (c *Cache) Subscribe(onChange func(models.SessionState)) (cancel func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = onChange
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// SetAuthenticated persists the identity and credential issued by the
// identity provider, then broadcasts locally so this context observes
// the login before any store-level signal arrives.
func (c *Cache) SetAuthenticated(identity models.Identity, credential string) {
	raw, err := json.Marshal(identity)
	if err != nil {
		c.logger.Warn("identity marshal failed", zap.Error(err))
		return
	}
	c.adapter.Set(store.KeyIdentity, string(raw))
	c.adapter.Set(store.KeyCredential, credential)
	c.reconcileAndDeliver()
}

// Clear removes both session keys (logout) and broadcasts locally.
func (c *Cache) Clear() {
	c.adapter.Remove(store.KeyIdentity)
	c.adapter.Remove(store.KeyCredential)
	c.reconcileAndDeliver()
}

func (c *Cache) poll() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C:
			c.reconcileAndDeliver()
		}
	}
}

// watchSignals drains coalesced store change signals and reconciles once
// per burst.
func (c *Cache) watchSignals() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.signals:
			timer := time.NewTimer(signalCoalesce)
		drain:
			for {
				select {
				case <-c.done:
					timer.Stop()
					return
				case <-c.signals:
				case <-timer.C:
					break drain
				}
			}
			c.reconcileAndDeliver()
		}
	}
}

// reconcile derives one consistent state from the two independently
// persisted keys. Presence mismatch and unparseable identity are both
// corruption: the keys are cleared and the empty state returned.
func (c *Cache) reconcile() models.SessionState {
	empty := models.SessionState{Ready: true}

	rawIdentity, hasIdentity := c.adapter.Get(store.KeyIdentity)
	credential, hasCredential := c.adapter.Get(store.KeyCredential)
	hasIdentity = hasIdentity && rawIdentity != ""
	hasCredential = hasCredential && credential != ""

	if !hasIdentity && !hasCredential {
		c.metrics.RecordReconcile("empty")
		return empty
	}

	if hasIdentity != hasCredential {
		c.logger.Warn("session keys out of sync, clearing",
			zap.Bool("has_identity", hasIdentity),
			zap.Bool("has_credential", hasCredential),
		)
		c.clearBoth()
		c.metrics.RecordReconcile("repaired")
		return empty
	}

	var identity models.Identity
	if err := json.Unmarshal([]byte(rawIdentity), &identity); err != nil {
		c.logger.Warn("stored identity corrupt, clearing", zap.Error(err))
		c.clearBoth()
		c.metrics.RecordReconcile("repaired")
		return empty
	}
	if _, err := models.ParseRole(string(identity.Role)); err != nil {
		c.logger.Warn("stored identity has invalid role, clearing", zap.Error(err))
		c.clearBoth()
		c.metrics.RecordReconcile("repaired")
		return empty
	}

	c.metrics.RecordReconcile("clean")
	return models.SessionState{
		Identity:   &identity,
		Credential: credential,
		Ready:      true,
	}
}

func (c *Cache) clearBoth() {
	c.adapter.Remove(store.KeyIdentity)
	c.adapter.Remove(store.KeyCredential)
}

// reconcileAndDeliver loads the current state and notifies subscribers
// only when role or credential actually changed since the last
// delivery.
func (c *Cache) reconcileAndDeliver() {
	state := c.reconcile()

	c.mu.Lock()
	if c.delivered && c.lastDelivered.Equal(state) {
		c.mu.Unlock()
		return
	}
	c.lastDelivered = state
	c.delivered = true
	c.loadedOnce = true
	subs := make([]func(models.SessionState), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
