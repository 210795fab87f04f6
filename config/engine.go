package config

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dshills/grabkit/config/cache"
	"github.com/dshills/grabkit/config/coerce"
	"github.com/dshills/grabkit/config/layer"
	"github.com/dshills/grabkit/config/loader"
	"github.com/dshills/grabkit/config/notify"
	"github.com/dshills/grabkit/config/registry"
	"github.com/dshills/grabkit/config/store"
	"github.com/dshills/grabkit/config/watcher"
	"github.com/dshills/grabkit/log"
)

// Mode selects how unregistered keys are treated during resolution.
type Mode = coerce.Mode

const (
	// Strict fails resolution on any unregistered key.
	Strict = coerce.Strict

	// Permissive drops unregistered keys with a warning, once per key
	// per loaded tree.
	Permissive = coerce.Permissive
)

// Engine ties the registry, tree store, resolver, and cache together and
// provides the public configuration API.
type Engine struct {
	registry  *registry.Registry
	store     *store.Store
	cache     *cache.Cache[*Effective]
	notifier  *notify.Notifier
	logger    log.Logger
	fs        loader.FileSystem
	mode      Mode
	envPrefix string

	// loadMu serializes loads and overrides so the purge-and-notify
	// sequence of one mutation cannot interleave with another.
	loadMu    sync.Mutex
	lastFiles []string

	// Warn-once bookkeeping for permissive resolutions. Reset whenever
	// the tree version moves.
	warnMu      sync.Mutex
	warnVersion uint64
	warned      map[string]struct{}

	watchMu    sync.Mutex
	watcher    *watcher.Watcher
	liveReload bool
	closed     bool

	closeOnce sync.Once

	// Collected by options, consumed once in New.
	cacheOpts  []cache.Option
	notifyOpts []notify.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the option registry. Specs must be registered before
// resolutions that reference them.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithLogger sets the logger for load, override, and drop diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMode sets the default resolution mode. The default is Permissive.
func WithMode(mode Mode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithFileSystem sets the file system used by LoadFile and LoadFiles.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(e *Engine) {
		if fsys != nil {
			e.fs = fsys
		}
	}
}

// WithCacheTTL bounds how long cached resolutions for dead tree versions
// may linger.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.cacheOpts = append(e.cacheOpts, cache.WithTTL(ttl))
		}
	}
}

// WithCacheCapacity caps the number of cached resolutions.
func WithCacheCapacity(n uint64) Option {
	return func(e *Engine) {
		e.cacheOpts = append(e.cacheOpts, cache.WithCapacity(n))
	}
}

// WithAsyncNotify delivers change notifications on a background goroutine
// with the given buffer size instead of synchronously.
func WithAsyncNotify(bufferSize int) Option {
	return func(e *Engine) {
		e.notifyOpts = append(e.notifyOpts, notify.WithAsync(bufferSize))
	}
}

// WithLiveReload makes LoadFile and LoadFiles watch their files and reload
// the tree when they change on disk.
func WithLiveReload() Option {
	return func(e *Engine) {
		e.liveReload = true
	}
}

// WithEnvOverrides overlays environment variables carrying the given prefix
// onto every loaded tree. Variable names map onto dotted paths the way
// loader.EnvLoader documents, and their values sit above file values.
func WithEnvOverrides(prefix string) Option {
	return func(e *Engine) {
		e.envPrefix = prefix
	}
}

// New creates a configuration engine. Callers must Close the engine when
// done with it.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: registry.New(),
		store:    store.New(),
		logger:   log.NewNop(),
		fs:       loader.DefaultFS(),
		mode:     Permissive,
		warned:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.cache = cache.New[*Effective](e.cacheOpts...)
	e.notifier = notify.New(e.notifyOpts...)

	return e
}

// Registry returns the engine's option registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Version returns the current tree version. Version zero is the empty tree
// before the first load.
func (e *Engine) Version() uint64 {
	return e.store.Version()
}

// Metrics returns resolution cache counters.
func (e *Engine) Metrics() cache.Metrics {
	return e.cache.Metrics()
}

// Load replaces the configuration tree with the given document and returns
// the new version. The document is deep-cloned; the caller keeps ownership
// of its argument. All cached resolutions are invalidated.
func (e *Engine) Load(tree map[string]any) uint64 {
	tree = e.overlayEnv(tree)

	e.loadMu.Lock()
	version := e.swap(tree)
	e.lastFiles = nil
	e.loadMu.Unlock()

	e.notifier.NotifyReload(version, "load")
	e.logger.Info("configuration loaded",
		log.Uint64("version", version),
		log.Int("keys", len(tree)))
	return version
}

// LoadFile loads a single configuration file, chosen by extension, and
// replaces the tree with its contents. A parse failure leaves the current
// tree, version, and cached resolutions untouched.
func (e *Engine) LoadFile(path string) (uint64, error) {
	return e.LoadFiles(path)
}

// LoadFiles loads several configuration files and merges them in order,
// later files overriding earlier ones key by key. Files that do not exist
// are skipped; a tree still loads (and the version still moves) when none
// exist. Any parse failure aborts the whole load and leaves the current
// tree untouched.
func (e *Engine) LoadFiles(paths ...string) (uint64, error) {
	if len(paths) == 0 {
		return 0, fmt.Errorf("load: %w", ErrNoSource)
	}

	merged := map[string]any{}
	for _, path := range paths {
		l, err := loader.ForPathWithFS(e.fs, path)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		data, err := l.Load()
		if err != nil {
			return 0, err
		}
		if data == nil {
			continue
		}
		merged = layer.DeepMerge(merged, data)
	}
	merged = e.overlayEnv(merged)

	e.loadMu.Lock()
	version := e.swap(merged)
	e.lastFiles = append([]string(nil), paths...)
	e.loadMu.Unlock()

	source := paths[len(paths)-1]
	e.notifier.NotifyReload(version, "file:"+source)
	e.logger.Info("configuration loaded",
		log.Uint64("version", version),
		log.Strings("files", paths))

	if e.liveReload {
		if err := e.watchFiles(paths); err != nil {
			e.logger.Warn("live reload unavailable", log.Err(err))
		}
	}
	return version, nil
}

// Reload re-reads the files from the last LoadFile or LoadFiles call.
// A parse failure leaves the current tree and resolutions untouched.
func (e *Engine) Reload() (uint64, error) {
	e.loadMu.Lock()
	paths := append([]string(nil), e.lastFiles...)
	e.loadMu.Unlock()

	if len(paths) == 0 {
		return 0, ErrNoSource
	}
	return e.LoadFiles(paths...)
}

// SetOverride writes a value into the tree at a dotted path and returns
// the new version. Overrides are raw tree edits: the value is validated
// against its spec at resolution time, like any loaded value.
func (e *Engine) SetOverride(path string, value any) (uint64, error) {
	e.loadMu.Lock()
	old, _ := e.store.Snapshot().Node(path)
	version, err := e.store.Set(path, value)
	if err != nil {
		e.loadMu.Unlock()
		return 0, err
	}
	e.invalidate(version)
	e.loadMu.Unlock()

	e.notifier.NotifySet(path, old, value, version, "override")
	e.logger.Debug("override set",
		log.String("path", path),
		log.Uint64("version", version))
	return version, nil
}

// SetOverrides applies several overrides as one batch: paths are applied
// in sorted order, the cache is invalidated once, and observers see the
// events only after every path is written. A malformed path fails the
// whole batch before any write happens.
func (e *Engine) SetOverrides(values map[string]any) (uint64, error) {
	paths := make([]string, 0, len(values))
	for path := range values {
		if err := store.CheckPath(path); err != nil {
			return 0, fmt.Errorf("override %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	batch := e.notifier.NewBatch()

	e.loadMu.Lock()
	version := e.store.Version()
	for _, path := range paths {
		old, _ := e.store.Snapshot().Node(path)
		v, err := e.store.Set(path, values[path])
		if err != nil {
			e.loadMu.Unlock()
			batch.Discard()
			return 0, fmt.Errorf("override %s: %w", path, err)
		}
		version = v
		batch.Set(path, old, values[path], version, "override")
	}
	e.invalidate(version)
	e.loadMu.Unlock()

	batch.Commit()
	e.logger.Debug("overrides set",
		log.Int("count", len(paths)),
		log.Uint64("version", version))
	return version, nil
}

// RemoveOverride deletes the value at a dotted path. Removing a path that
// is not present leaves the tree, version, and cache alone.
func (e *Engine) RemoveOverride(path string) (uint64, error) {
	e.loadMu.Lock()
	old, _ := e.store.Snapshot().Node(path)
	version, removed, err := e.store.Remove(path)
	if err != nil {
		e.loadMu.Unlock()
		return 0, err
	}
	if removed {
		e.invalidate(version)
	}
	e.loadMu.Unlock()

	if removed {
		e.notifier.NotifyDelete(path, old, version, "override")
		e.logger.Debug("override removed",
			log.String("path", path),
			log.Uint64("version", version))
	}
	return version, nil
}

// Subscribe registers an observer for all configuration changes.
func (e *Engine) Subscribe(observer notify.Observer) *notify.Subscription {
	return e.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes at or below a dotted path.
func (e *Engine) SubscribePath(path string, observer notify.Observer) *notify.Subscription {
	return e.notifier.SubscribePath(path, observer)
}

// Close shuts down the engine's watcher, notifier, and cache janitor.
// It is safe to call Close multiple times.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.watchMu.Lock()
		w := e.watcher
		e.watcher = nil
		e.closed = true
		e.watchMu.Unlock()
		if w != nil {
			_ = w.Close()
		}
		e.notifier.Close()
		e.cache.Stop()
	})
}

// overlayEnv merges environment overrides onto tree when they are enabled.
// The input is never mutated.
func (e *Engine) overlayEnv(tree map[string]any) map[string]any {
	if e.envPrefix == "" {
		return tree
	}
	env, err := loader.NewEnvLoader(e.envPrefix).Load()
	if err != nil {
		e.logger.Warn("environment overrides skipped", log.Err(err))
		return tree
	}
	if len(env) == 0 {
		return tree
	}
	e.logger.Debug("environment overrides applied",
		log.String("prefix", e.envPrefix),
		log.Int("keys", len(env)))
	return layer.DeepMerge(layer.CloneMap(tree), env)
}

// swap installs a new tree and resets per-version state. Callers hold loadMu.
func (e *Engine) swap(tree map[string]any) uint64 {
	version := e.store.Replace(tree)
	e.invalidate(version)
	return version
}

// invalidate drops every cached resolution and resets warn-once state for
// the new version. Callers hold loadMu.
func (e *Engine) invalidate(version uint64) {
	e.cache.Purge()

	e.warnMu.Lock()
	e.warnVersion = version
	e.warned = make(map[string]struct{})
	e.warnMu.Unlock()
}

// warnOnce logs a dropped unknown key the first time it is seen for the
// tree version it was resolved against.
func (e *Engine) warnOnce(version uint64, key string) {
	e.warnMu.Lock()
	if version != e.warnVersion {
		e.warnVersion = version
		e.warned = make(map[string]struct{})
	}
	if _, seen := e.warned[key]; seen {
		e.warnMu.Unlock()
		return
	}
	e.warned[key] = struct{}{}
	e.warnMu.Unlock()

	e.logger.Warn("unknown option dropped",
		log.String("key", key),
		log.Uint64("version", version))
}

// watchFiles starts (or extends) the live reload watcher for paths.
func (e *Engine) watchFiles(paths []string) error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if e.closed {
		return nil
	}
	if e.watcher == nil {
		w, err := watcher.New(watcher.WithLogger(e.logger))
		if err != nil {
			return err
		}
		w.OnChange(e.handleFileChange)
		e.watcher = w
	}
	for _, path := range paths {
		if err := e.watcher.Watch(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
	return nil
}

// handleFileChange reloads the tree when a watched config file changes.
// A file that fails to parse keeps the previous tree in place.
func (e *Engine) handleFileChange(event watcher.Event) {
	if event.Op == watcher.OpRemove {
		return
	}
	if _, err := e.Reload(); err != nil {
		e.logger.Warn("config reload failed, keeping previous tree",
			log.String("path", event.Path),
			log.Err(err))
	}
}
