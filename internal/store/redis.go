package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/metrics"
)

const (
	redisHashKey     = "discovery:kv"
	redisChangesChan = "discovery:kv:changes"
	redisOpTimeout   = 3 * time.Second
)

// Redis is an Adapter backed by a Redis hash, with cross-context change
// signals over pub/sub. Published messages carry the origin context ID so
// a context never reacts to its own writes.
type Redis struct {
	client  *redis.Client
	origin  string
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	subs    map[int]func(key string)
	nextSub int

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedis wraps an established Redis client as a persistence adapter
// and starts the change-signal listener.
func NewRedis(client *redis.Client, logger *zap.Logger, m *metrics.Metrics) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Redis{
		client:  client,
		origin:  uuid.NewString(),
		logger:  logger,
		metrics: m,
		subs:    make(map[int]func(string)),
		cancel:  cancel,
	}

	r.pubsub = client.Subscribe(ctx, redisChangesChan)
	r.wg.Add(1)
	go r.listen(ctx)

	return r
}

// Close stops the pub/sub listener. The underlying client is owned by
// the caller and is not closed here.
func (r *Redis) Close() error {
	r.cancel()
	err := r.pubsub.Close()
	r.wg.Wait()
	return err
}

// Get implements Adapter.
func (r *Redis) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := r.client.HGet(ctx, redisHashKey, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("redis store get failed", zap.String("key", key), zap.Error(err))
			r.metrics.RecordStoreOp("redis", "get", false)
		}
		return "", false
	}
	r.metrics.RecordStoreOp("redis", "get", true)
	return v, true
}

// Set implements Adapter.
func (r *Redis) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.HSet(ctx, redisHashKey, key, value).Err(); err != nil {
		r.logger.Warn("redis store set failed", zap.String("key", key), zap.Error(err))
		r.metrics.RecordStoreOp("redis", "set", false)
		return
	}
	r.metrics.RecordStoreOp("redis", "set", true)
	r.publish(ctx, key)
}

// Remove implements Adapter.
func (r *Redis) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	removed, err := r.client.HDel(ctx, redisHashKey, key).Result()
	if err != nil {
		r.logger.Warn("redis store remove failed", zap.String("key", key), zap.Error(err))
		r.metrics.RecordStoreOp("redis", "remove", false)
		return
	}
	r.metrics.RecordStoreOp("redis", "remove", true)
	if removed > 0 {
		r.publish(ctx, key)
	}
}

// Subscribe implements Notifier.
func (r *Redis) Subscribe(fn func(key string)) (cancel func()) {
	r.mu.Lock()
	r.nextSub++
	id := r.nextSub
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Redis) publish(ctx context.Context, key string) {
	payload := r.origin + " " + key
	if err := r.client.Publish(ctx, redisChangesChan, payload).Err(); err != nil {
		r.logger.Warn("redis store publish failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) listen(ctx context.Context) {
	defer r.wg.Done()
	ch := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			origin, key, found := strings.Cut(msg.Payload, " ")
			if !found || origin == r.origin {
				continue
			}
			r.mu.Lock()
			subs := make([]func(string), 0, len(r.subs))
			for _, fn := range r.subs {
				subs = append(subs, fn)
			}
			r.mu.Unlock()
			for _, fn := range subs {
				fn(key)
			}
		}
	}
}
