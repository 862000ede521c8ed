package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/metrics"
)

// File is an Adapter persisting all keys as one JSON object in a single
// file. Writes go through a temp file plus rename so a concurrent reader
// never observes a partial document. Cross-context change signals come
// from an fsnotify watch on the file; this context's own writes are
// folded into the snapshot before the event arrives and therefore
// produce no signal.
type File struct {
	path    string
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	snapshot map[string]string
	subs     map[int]func(key string)
	nextSub  int

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewFile opens (or creates) a file-backed store at path and starts the
// change watcher.
func NewFile(path string, logger *zap.Logger, m *metrics.Metrics) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &File{
		path:    path,
		logger:  logger,
		metrics: m,
		subs:    make(map[int]func(string)),
		done:    make(chan struct{}),
	}
	f.snapshot = f.read()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := f.write(map[string]string{}); err != nil {
			return nil, err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	f.watcher = watcher
	go f.watch()

	return f, nil
}

// Close stops the watcher. Pending callbacks may still run briefly.
func (f *File) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return f.watcher.Close()
}

// Get implements Adapter.
func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := f.read()
	f.snapshot = values
	v, ok := values[key]
	f.metrics.RecordStoreOp("file", "get", true)
	return v, ok
}

// Set implements Adapter.
func (f *File) Set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := f.read()
	values[key] = value
	err := f.write(values)
	if err != nil {
		f.logger.Warn("file store set failed", zap.String("key", key), zap.Error(err))
	}
	f.snapshot = values
	f.metrics.RecordStoreOp("file", "set", err == nil)
}

// Remove implements Adapter.
func (f *File) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := f.read()
	if _, ok := values[key]; !ok {
		f.snapshot = values
		return
	}
	delete(values, key)
	err := f.write(values)
	if err != nil {
		f.logger.Warn("file store remove failed", zap.String("key", key), zap.Error(err))
	}
	f.snapshot = values
	f.metrics.RecordStoreOp("file", "remove", err == nil)
}

// Subscribe implements Notifier.
func (f *File) Subscribe(fn func(key string)) (cancel func()) {
	f.mu.Lock()
	f.nextSub++
	id := f.nextSub
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *File) watch() {
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			f.diffAndNotify()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("file store watch error", zap.Error(err))
		}
	}
}

// diffAndNotify reloads the file and signals subscribers for every key
// whose value differs from the last snapshot this context observed.
func (f *File) diffAndNotify() {
	f.mu.Lock()
	current := f.read()
	changed := changedKeys(f.snapshot, current)
	f.snapshot = current
	subs := make([]func(string), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, key := range changed {
		for _, fn := range subs {
			fn(key)
		}
	}
}

func changedKeys(before, after map[string]string) []string {
	var keys []string
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			keys = append(keys, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// read loads the backing file. A missing or corrupt file yields an empty
// map; corruption is logged, not surfaced.
func (f *File) read() map[string]string {
	values := make(map[string]string)
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("file store read failed", zap.Error(err))
		}
		return values
	}
	if len(raw) == 0 {
		return values
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		f.logger.Warn("file store corrupt, resetting", zap.Error(err))
		return make(map[string]string)
	}
	return values
}

func (f *File) write(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
