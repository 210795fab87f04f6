package config

import (
	"go.uber.org/multierr"

	"github.com/dshills/grabkit/config/coerce"
	"github.com/dshills/grabkit/config/registry"
)

// Validate checks the current tree against the registry in strict mode and
// reports every problem at once instead of stopping at the first. A nil
// return means the tree would resolve cleanly for any registered component
// in strict mode.
func (e *Engine) Validate() error {
	return e.ValidateTree(e.store.Snapshot().Root())
}

// ValidateTree checks an arbitrary document tree without loading it. Useful
// for vetting a document before handing it to Load.
func (e *Engine) ValidateTree(root map[string]any) error {
	var errs error
	for _, k := range sortedKeys(root) {
		v := root[k]
		if e.registry.IsComponent(k) {
			m, ok := v.(map[string]any)
			if !ok {
				errs = multierr.Append(errs, &coerce.TypeMismatchError{
					Key:      k,
					Expected: "object",
					Actual:   coerce.TypeName(v),
				})
				continue
			}
			errs = multierr.Append(errs, e.validateComponent(k, m))
			continue
		}
		spec, err := e.registry.Lookup(k)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, err := coerce.Coerce(spec, v); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// validateComponent checks one component block. Unregistered nested maps
// are category blocks and are checked against the category's specs;
// opaque components accept anything unregistered.
func (e *Engine) validateComponent(name string, node map[string]any) error {
	var errs error
	opaque := e.registry.OpaqueNested(name)
	for _, k := range sortedKeys(node) {
		v := node[k]
		spec, err := e.registry.Lookup(name + "." + k)
		if err == nil {
			if _, cerr := coerce.Coerce(spec, v); cerr != nil {
				errs = multierr.Append(errs, cerr)
			}
			continue
		}
		if opaque {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			errs = multierr.Append(errs, e.validateCategory(name, k, m))
			continue
		}
		errs = multierr.Append(errs, &registry.UnknownKeyError{Key: name + "." + k})
	}
	return errs
}

// validateCategory checks one category block with the same name resolution
// the resolver uses: category-specific specs first, then component specs
// that permit category-tier overrides.
func (e *Engine) validateCategory(component, category string, node map[string]any) error {
	var errs error
	for _, k := range sortedKeys(node) {
		v := node[k]
		if spec, ok := e.registry.CategorySpec(component, category, k); ok {
			if _, err := coerce.Coerce(spec, v); err != nil {
				errs = multierr.Append(errs, err)
			}
			continue
		}
		spec, err := e.registry.Lookup(component + "." + k)
		if err == nil && spec.Scope == registry.ScopeCategory {
			if _, cerr := coerce.Coerce(spec, v); cerr != nil {
				errs = multierr.Append(errs, cerr)
			}
			continue
		}
		errs = multierr.Append(errs, &registry.UnknownKeyError{Key: component + "." + category + "." + k})
	}
	return errs
}
