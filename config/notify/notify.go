// Package notify provides change notification for configuration updates.
//
// The notify package implements an observer pattern that allows components
// to subscribe to configuration changes and receive callbacks when the
// tree is reloaded or an override is applied. Every event carries the tree
// version it produced so observers can discard stale work.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// EventType represents the type of configuration change.
type EventType int

const (
	// EventSet indicates an override was set or updated.
	EventSet EventType = iota

	// EventDelete indicates an override was removed.
	EventDelete

	// EventReload indicates the entire configuration tree was replaced.
	EventReload
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventSet:
		return "set"
	case EventDelete:
		return "delete"
	case EventReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Event represents a configuration change.
type Event struct {
	// Path is the dot-separated path to the changed option.
	// Empty for reload events.
	Path string

	// Type is the type of change.
	Type EventType

	// Version is the tree version after the change.
	Version uint64

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value (may be nil for deletes).
	NewValue any

	// Source identifies where the change came from, such as a file path
	// or "override".
	Source string
}

// Observer is called when configuration changes occur.
type Observer func(event Event)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uuid.UUID
	path     string
	observer Observer
	notifier *Notifier
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages configuration change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	// Global observers that receive all changes
	globalObservers map[uuid.UUID]Observer

	// Path-specific observers
	pathObservers map[string]map[uuid.UUID]Observer

	// Whether to notify synchronously or asynchronously
	async bool

	// Buffer for async notifications
	buffer chan Event

	// Done channel for shutdown
	done chan struct{}

	// Wait group for async goroutine
	wg sync.WaitGroup

	// Closed flag for idempotent Close
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Event, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers: make(map[uuid.UUID]Observer),
		pathObservers:   make(map[string]map[uuid.UUID]Observer),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.New()
	n.globalObservers[id] = observer

	return &Subscription{
		id:       id,
		observer: observer,
		notifier: n,
	}
}

// SubscribePath registers an observer for changes to a specific path.
// The observer is called for exact matches and for descendants of the
// path. For example, subscribing to "downloader" receives changes to
// "downloader.retries". Reload events reach every path observer.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.New()

	if n.pathObservers[path] == nil {
		n.pathObservers[path] = make(map[uuid.UUID]Observer)
	}
	n.pathObservers[path][id] = observer

	return &Subscription{
		id:       id,
		path:     path,
		observer: observer,
		notifier: n,
	}
}

// Notify sends a change notification to all relevant observers.
func (n *Notifier) Notify(event Event) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- event:
		case <-n.done:
		}
		return
	}

	n.deliver(event)
}

// NotifySet is a convenience method for override set events.
func (n *Notifier) NotifySet(path string, oldValue, newValue any, version uint64, source string) {
	n.Notify(Event{
		Path:     path,
		Type:     EventSet,
		Version:  version,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyDelete is a convenience method for override removal events.
func (n *Notifier) NotifyDelete(path string, oldValue any, version uint64, source string) {
	n.Notify(Event{
		Path:     path,
		Type:     EventDelete,
		Version:  version,
		OldValue: oldValue,
		Source:   source,
	})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(version uint64, source string) {
	n.Notify(Event{
		Type:    EventReload,
		Version: version,
		Source:  source,
	})
}

// Close shuts down the notifier. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

// unsubscribe removes an observer by ID.
func (n *Notifier) unsubscribe(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for path, observers := range n.pathObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.pathObservers, path)
		}
	}
}

// deliver sends an event to all matching observers.
func (n *Notifier) deliver(event Event) {
	n.mu.RLock()

	var observers []Observer

	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}

	if event.Path != "" {
		if pathObs, ok := n.pathObservers[event.Path]; ok {
			for _, obs := range pathObs {
				observers = append(observers, obs)
			}
		}

		for path, pathObs := range n.pathObservers {
			if isParentPath(path, event.Path) {
				for _, obs := range pathObs {
					observers = append(observers, obs)
				}
			}
		}
	} else {
		// Reload event - notify all path observers too
		for _, pathObs := range n.pathObservers {
			for _, obs := range pathObs {
				observers = append(observers, obs)
			}
		}
	}

	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(event)
	}
}

// processAsync handles asynchronous notification delivery.
func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case event := <-n.buffer:
			n.deliver(event)
		case <-n.done:
			// Drain remaining buffered events
			for {
				select {
				case event := <-n.buffer:
					n.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// isParentPath checks if parent is a parent path of child.
// e.g., "downloader" is parent of "downloader.retries".
func isParentPath(parent, child string) bool {
	if len(parent) >= len(child) {
		return false
	}
	if parent == "" {
		return true
	}
	return child[:len(parent)] == parent && child[len(parent)] == '.'
}

// Batch collects multiple changes and delivers them as a group.
type Batch struct {
	notifier *Notifier
	events   []Event
	mu       sync.Mutex
}

// NewBatch creates a new batch for collecting changes.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{
		notifier: n,
		events:   make([]Event, 0),
	}
}

// Add adds an event to the batch.
func (b *Batch) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// Set adds an override set event to the batch.
func (b *Batch) Set(path string, oldValue, newValue any, version uint64, source string) {
	b.Add(Event{
		Path:     path,
		Type:     EventSet,
		Version:  version,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// Commit sends all batched events to observers.
func (b *Batch) Commit() {
	b.mu.Lock()
	events := b.events
	b.events = make([]Event, 0)
	b.mu.Unlock()

	for _, event := range events {
		b.notifier.Notify(event)
	}
}

// Discard clears the batch without sending notifications.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make([]Event, 0)
}

// Len returns the number of pending events.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
