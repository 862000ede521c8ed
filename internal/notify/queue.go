// Package notify holds the transient queue of user-facing messages.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/metrics"
	"github.com/campusstay/discovery/internal/models"
)

// Options tunes queue behaviour.
type Options struct {
	// TTL is how long a notification stays visible before self-expiry.
	// Zero selects five seconds. The timer is per notification.
	TTL     time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Queue is a self-expiring list of notifications in arrival order. It
// holds no persistence; a fresh queue is always empty.
type Queue struct {
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	nextID  int64
	items   []models.Notification
	timers  map[int64]*time.Timer
	subs    map[int]func([]models.Notification)
	nextSub int
	closed  bool
}

// New builds an empty queue.
func New(opts Options) *Queue {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Queue{
		ttl:     opts.TTL,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		timers:  make(map[int64]*time.Timer),
		subs:    make(map[int]func([]models.Notification)),
	}
}

// Push appends a notification and schedules its expiry. The returned ID
// is monotonic within this queue.
func (q *Queue) Push(kind models.NotificationKind, text string) int64 {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.nextID++
	id := q.nextID
	q.items = append(q.items, models.Notification{ID: id, Kind: kind, Text: text})
	q.timers[id] = time.AfterFunc(q.ttl, func() { q.remove(id) })
	subs := q.subsLocked()
	items := q.itemsLocked()
	q.mu.Unlock()

	q.metrics.RecordNotification(string(kind))
	for _, fn := range subs {
		fn(items)
	}
	return id
}

// Dismiss removes a notification before its expiry. Dismissing an
// already-expired or unknown ID is a no-op.
func (q *Queue) Dismiss(id int64) {
	q.remove(id)
}

// List returns the live notifications in arrival order.
func (q *Queue) List() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.itemsLocked()
}

// Subscribe registers for queue changes; the callback receives the full
// remaining list after every push, dismissal or expiry.
func (q *Queue) Subscribe(fn func([]models.Notification)) (cancel func()) {
	q.mu.Lock()
	q.nextSub++
	id := q.nextSub
	q.subs[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// Close stops all expiry timers and empties the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.subs = make(map[int]func([]models.Notification))
}

// remove drops one notification. Expiry and dismissal share this path,
// so a dismissed notification's late timer firing has nothing to do.
func (q *Queue) remove(id int64) {
	q.mu.Lock()
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	idx := -1
	for i, n := range q.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	subs := q.subsLocked()
	items := q.itemsLocked()
	q.mu.Unlock()

	for _, fn := range subs {
		fn(items)
	}
}

func (q *Queue) itemsLocked() []models.Notification {
	out := make([]models.Notification, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) subsLocked() []func([]models.Notification) {
	out := make([]func([]models.Notification), 0, len(q.subs))
	for _, fn := range q.subs {
		out = append(out, fn)
	}
	return out
}
