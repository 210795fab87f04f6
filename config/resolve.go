package config

import (
	"fmt"
	"sort"

	"github.com/dshills/grabkit/config/cache"
	"github.com/dshills/grabkit/config/coerce"
	"github.com/dshills/grabkit/config/layer"
	"github.com/dshills/grabkit/config/registry"
	"github.com/dshills/grabkit/config/store"
)

// Resolve computes the effective configuration for a (component, category)
// pair under the engine's default mode. Pass an empty category for a
// component-level resolution.
//
// Resolution captures one tree snapshot at entry: concurrent reloads and
// overrides never produce a half-old, half-new result. Repeated calls for
// the same pair against an unchanged tree return the identical cached
// value.
func (e *Engine) Resolve(component, category string) (*Effective, error) {
	return e.ResolveMode(component, category, e.mode)
}

// ResolveMode computes the effective configuration under an explicit mode.
func (e *Engine) ResolveMode(component, category string, mode Mode) (*Effective, error) {
	if !e.registry.IsComponent(component) {
		return nil, fmt.Errorf("%q: %w", component, ErrUnknownComponent)
	}

	snap := e.store.Snapshot()
	key := cache.Key{Component: component, Category: category, Mode: mode, Version: snap.Version()}
	if eff, ok := e.cache.Get(key); ok {
		return eff, nil
	}

	eff, err := e.resolveSnapshot(snap, component, category, mode)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, eff)
	return eff, nil
}

// Get resolves the pair and returns a single option value.
func (e *Engine) Get(component, category, name string) (any, error) {
	eff, err := e.Resolve(component, category)
	if err != nil {
		return nil, err
	}
	v, ok := eff.Get(name)
	if !ok {
		return nil, eff.notFound(name)
	}
	return v, nil
}

// resolution carries the state of one resolve pass.
type resolution struct {
	eng       *Engine
	component string
	category  string
	mode      Mode
	version   uint64
	opaque    bool
	values    map[string]any
	dropped   []string
}

// resolveSnapshot merges the four tiers against a fixed snapshot.
func (e *Engine) resolveSnapshot(snap *store.Snapshot, component, category string, mode Mode) (*Effective, error) {
	r := &resolution{
		eng:       e,
		component: component,
		category:  category,
		mode:      mode,
		version:   snap.Version(),
		opaque:    e.registry.OpaqueNested(component),
		values:    make(map[string]any),
	}

	r.seedDefaults()

	root := snap.Root()
	if err := r.applyGlobalTier(root); err != nil {
		return nil, err
	}

	compNode, err := r.childObject(root, component, component)
	if err != nil {
		return nil, err
	}
	if compNode != nil {
		if err := r.applyComponentTier(compNode); err != nil {
			return nil, err
		}
		if category != "" {
			catNode, err := r.childObject(compNode, category, component+"."+category)
			if err != nil {
				return nil, err
			}
			if catNode != nil {
				if err := r.applyCategoryTier(catNode); err != nil {
					return nil, err
				}
			}
		}
	}

	sort.Strings(r.dropped)
	return &Effective{
		component: component,
		category:  category,
		mode:      mode,
		version:   r.version,
		values:    r.values,
		dropped:   r.dropped,
	}, nil
}

// seedDefaults fills tier one from the registered specs: globals first,
// then component-level specs, then category-specific specs, so a more
// specific default wins the leaf name.
func (r *resolution) seedDefaults() {
	reg := r.eng.registry
	for _, spec := range reg.GlobalSpecs() {
		r.values[spec.Leaf()] = seedValue(spec)
	}
	for _, spec := range reg.ComponentSpecs(r.component) {
		r.values[spec.Leaf()] = seedValue(spec)
	}
	if r.category != "" {
		for _, spec := range reg.CategorySpecs(r.component, r.category) {
			r.values[spec.Leaf()] = seedValue(spec)
		}
	}
}

// seedValue produces the canonical default for a spec. Object specs seed
// the declared default plus the defaults of any registered child specs the
// default does not set itself.
func seedValue(spec *registry.Spec) any {
	if spec.Type == registry.TypeObject && !spec.Opaque {
		seeded := map[string]any{}
		if def, ok := spec.Default.(map[string]any); ok {
			if v, err := coerce.Coerce(spec, def); err == nil {
				if m, ok := v.(map[string]any); ok {
					seeded = m
				}
			}
		}
		for _, child := range spec.Children() {
			leaf := child.Leaf()
			if _, ok := seeded[leaf]; !ok {
				seeded[leaf] = seedValue(child)
			}
		}
		return seeded
	}

	v, err := coerce.Coerce(spec, nil)
	if err != nil {
		return layer.CloneValue(spec.Default)
	}
	return v
}

// applyGlobalTier merges root-level scalars. Component blocks are consumed
// by the later tiers; every other root key must be a registered global.
func (r *resolution) applyGlobalTier(root map[string]any) error {
	reg := r.eng.registry
	for _, k := range sortedKeys(root) {
		if reg.IsComponent(k) {
			continue
		}
		spec, err := reg.Lookup(k)
		if err != nil {
			if err := r.unknown(k); err != nil {
				return err
			}
			continue
		}
		if err := r.mergeSpec(spec, spec.Leaf(), root[k]); err != nil {
			return err
		}
	}
	return nil
}

// applyComponentTier merges the component's block. Nested maps without a
// spec are category blocks and contribute nothing at this tier; for opaque
// components they pass through unvalidated instead.
func (r *resolution) applyComponentTier(node map[string]any) error {
	reg := r.eng.registry
	for _, k := range sortedKeys(node) {
		v := node[k]
		spec, err := reg.Lookup(r.component + "." + k)
		if err == nil {
			if err := r.mergeSpec(spec, spec.Leaf(), v); err != nil {
				return err
			}
			continue
		}

		if r.opaque {
			// The requested category's block still resolves at tier four.
			if _, isMap := v.(map[string]any); isMap && k == r.category {
				continue
			}
			r.values[k] = layer.MergeValue(r.values[k], v)
			continue
		}

		if _, isMap := v.(map[string]any); isMap {
			// Category block for some site; not an option here.
			continue
		}
		if err := r.unknown(r.component + "." + k); err != nil {
			return err
		}
	}
	return nil
}

// applyCategoryTier merges the requested category's block. Option names
// resolve against category-specific specs first, then component-level
// specs that allow category scope.
func (r *resolution) applyCategoryTier(node map[string]any) error {
	reg := r.eng.registry
	for _, k := range sortedKeys(node) {
		v := node[k]

		if spec, ok := reg.CategorySpec(r.component, r.category, k); ok {
			if err := r.mergeSpec(spec, spec.Leaf(), v); err != nil {
				return err
			}
			continue
		}

		spec, err := reg.Lookup(r.component + "." + k)
		if err == nil && spec.Scope == registry.ScopeCategory {
			if err := r.mergeSpec(spec, spec.Leaf(), v); err != nil {
				return err
			}
			continue
		}

		if r.opaque {
			r.values[k] = layer.MergeValue(r.values[k], v)
			continue
		}
		if err := r.unknown(r.component + "." + r.category + "." + k); err != nil {
			return err
		}
	}
	return nil
}

// mergeSpec coerces a raw value against its spec and merges it into the
// result at the given leaf name.
func (r *resolution) mergeSpec(spec *registry.Spec, leaf string, raw any) error {
	res, err := coerce.CoerceMode(spec, raw, r.mode)
	if err != nil {
		return err
	}
	for _, key := range res.Dropped {
		r.drop(key)
	}
	r.values[leaf] = layer.MergeValue(r.values[leaf], res.Value)
	return nil
}

// unknown handles an unregistered key: fatal in strict mode, dropped with
// a once-per-key warning in permissive mode.
func (r *resolution) unknown(key string) error {
	if r.mode == Strict {
		return &registry.UnknownKeyError{Key: key}
	}
	r.drop(key)
	return nil
}

func (r *resolution) drop(key string) {
	r.dropped = append(r.dropped, key)
	r.eng.warnOnce(r.version, key)
}

// childObject fetches a nested block, requiring it to be an object.
// A missing block is nil without error; a scalar in its place is a
// malformed document in any mode.
func (r *resolution) childObject(node map[string]any, key, path string) (map[string]any, error) {
	v, ok := node[key]
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &coerce.TypeMismatchError{
			Key:      path,
			Expected: "object",
			Actual:   coerce.TypeName(v),
		}
	}
	return m, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
