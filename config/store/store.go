// Package store holds the raw configuration tree for grabkit.
//
// The store keeps a single immutable snapshot of the merged document and
// swaps it atomically on every mutation. Readers grab the current snapshot
// once and work against it without locking; writers serialize through a
// mutex, build a new tree, and publish it with a version bump.
package store

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dshills/grabkit/config/layer"
)

// ErrInvalidPath reports a malformed dotted path.
var ErrInvalidPath = errors.New("invalid config path")

// Snapshot is one immutable version of the configuration tree.
type Snapshot struct {
	root    map[string]any
	version uint64
}

// Version returns the version counter for this snapshot.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Root returns the tree root. Callers must not modify the returned map;
// every mutation goes through the owning Store.
func (s *Snapshot) Root() map[string]any {
	return s.root
}

// Node returns the value at a dotted path within this snapshot.
func (s *Snapshot) Node(path string) (any, bool) {
	return layer.GetByPath(s.root, path)
}

// Store owns the configuration tree and its version counter.
type Store struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

// New creates an empty store at version zero.
func New() *Store {
	st := &Store{}
	st.snap.Store(&Snapshot{root: map[string]any{}})
	return st
}

// Snapshot returns the current tree snapshot. The result stays valid and
// unchanged even while later mutations publish new versions.
func (st *Store) Snapshot() *Snapshot {
	return st.snap.Load()
}

// Version returns the current tree version.
func (st *Store) Version() uint64 {
	return st.snap.Load().version
}

// Replace swaps in a whole new tree and returns the new version. The tree
// is deep-cloned first so the caller keeps ownership of its argument. A nil
// tree installs an empty one.
func (st *Store) Replace(tree map[string]any) uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()

	root := layer.CloneMap(tree)
	if root == nil {
		root = map[string]any{}
	}
	return st.publish(root)
}

// Set writes a value at a dotted path, creating intermediate objects as
// needed, and returns the new version. The untouched parts of the tree are
// shared with the previous snapshot.
func (st *Store) Set(path string, value any) (uint64, error) {
	if err := CheckPath(path); err != nil {
		return 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	root := layer.SetByPath(st.snap.Load().root, path, layer.CloneValue(value))
	return st.publish(root), nil
}

// Remove deletes the value at a dotted path and returns the new version.
// Removing a path that is not present leaves the tree and version alone.
func (st *Store) Remove(path string) (uint64, bool, error) {
	if err := CheckPath(path); err != nil {
		return 0, false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	cur := st.snap.Load()
	root, removed := layer.DeleteByPath(cur.root, path)
	if !removed {
		return cur.version, false, nil
	}
	return st.publish(root), true, nil
}

// publish installs a new root under the writer lock.
func (st *Store) publish(root map[string]any) uint64 {
	next := &Snapshot{root: root, version: st.snap.Load().version + 1}
	st.snap.Store(next)
	return next.version
}

// CheckPath reports whether path is a well-formed dotted path.
func CheckPath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return ErrInvalidPath
		}
	}
	return nil
}
