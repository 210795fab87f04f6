package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maintains all known option definitions. It is safe for concurrent
// use. Registration is additive only; no removal operation exists.
type Registry struct {
	mu         sync.RWMutex
	specs      map[string]*Spec // all specs by full key
	globals    []*Spec
	components map[string]*component
}

// component holds per-component registration state.
type component struct {
	name       string
	opaque     bool
	specs      []*Spec
	categories map[string][]*Spec
}

// ComponentOption configures component registration.
type ComponentOption func(*component)

// WithOpaqueNested marks the component's unregistered nested blocks as opaque
// passthrough: their keys are carried into resolved configurations unvalidated
// instead of being dropped or rejected.
func WithOpaqueNested() ComponentOption {
	return func(c *component) { c.opaque = true }
}

// New creates a new option registry.
func New() *Registry {
	return &Registry{
		specs:      make(map[string]*Spec),
		components: make(map[string]*component),
	}
}

// RegisterComponent declares a component namespace. Calling it again for the
// same component with identical options is a no-op; changing options fails.
func (r *Registry) RegisterComponent(name string, opts ...ComponentOption) error {
	if name == "" || strings.Contains(name, ".") {
		return fmt.Errorf("invalid component name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	probe := component{name: name}
	for _, opt := range opts {
		opt(&probe)
	}

	if existing, ok := r.components[name]; ok {
		if existing.opaque != probe.opaque {
			return fmt.Errorf("component %q already registered with different options", name)
		}
		return nil
	}

	probe.categories = make(map[string][]*Spec)
	r.components[name] = &probe
	return nil
}

// Register adds option specs for a component. Spec keys must live under the
// component's namespace (component name plus one segment, or nested beneath a
// registered object spec). Re-registering a key with an identical type is a
// no-op; a differing type fails with DuplicateKeyError.
func (r *Registry) Register(componentName string, specs ...Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, err := r.component(componentName)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		prefix := componentName + "."
		if !strings.HasPrefix(spec.Key, prefix) {
			return fmt.Errorf("spec %q is outside component %q", spec.Key, componentName)
		}
		if err := r.register(comp, "", spec); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister registers component specs and panics on error.
// Useful for registering built-in specs at init time.
func (r *Registry) MustRegister(componentName string, specs ...Spec) {
	if err := r.Register(componentName, specs...); err != nil {
		panic(err)
	}
}

// RegisterCategory adds category-specific specs, keyed
// component.category.option. Their scope is always ScopeCategory.
func (r *Registry) RegisterCategory(componentName, category string, specs ...Spec) error {
	if category == "" || strings.Contains(category, ".") {
		return fmt.Errorf("invalid category name %q", category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	comp, err := r.component(componentName)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		prefix := componentName + "." + category + "."
		if !strings.HasPrefix(spec.Key, prefix) {
			return fmt.Errorf("spec %q is outside category %q of component %q",
				spec.Key, category, componentName)
		}
		spec.Scope = ScopeCategory
		if err := r.register(comp, category, spec); err != nil {
			return err
		}
	}
	return nil
}

// MustRegisterCategory registers category specs and panics on error.
func (r *Registry) MustRegisterCategory(componentName, category string, specs ...Spec) {
	if err := r.RegisterCategory(componentName, category, specs...); err != nil {
		panic(err)
	}
}

// RegisterGlobal adds specs that live at the document root, outside any
// component block. Keys must be single segments; scope is always ScopeGlobal.
func (r *Registry) RegisterGlobal(specs ...Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, spec := range specs {
		if strings.Contains(spec.Key, ".") {
			return fmt.Errorf("global spec %q must be a single segment", spec.Key)
		}
		spec.Scope = ScopeGlobal
		if err := r.register(nil, "", spec); err != nil {
			return err
		}
	}
	return nil
}

// MustRegisterGlobal registers global specs and panics on error.
func (r *Registry) MustRegisterGlobal(specs ...Spec) {
	if err := r.RegisterGlobal(specs...); err != nil {
		panic(err)
	}
}

// component returns the named component, creating it on first use.
// Caller holds the write lock.
func (r *Registry) component(name string) (*component, error) {
	if name == "" || strings.Contains(name, ".") {
		return nil, fmt.Errorf("invalid component name %q", name)
	}
	comp, ok := r.components[name]
	if !ok {
		comp = &component{name: name, categories: make(map[string][]*Spec)}
		r.components[name] = comp
	}
	return comp, nil
}

// register stores one spec. Caller holds the write lock. All validation
// happens before any state is touched so a failed registration leaves the
// registry unchanged.
func (r *Registry) register(comp *component, category string, spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	if existing, ok := r.specs[spec.Key]; ok {
		if existing.Type != spec.Type {
			return &DuplicateKeyError{Key: spec.Key, Existing: existing.Type, Proposed: spec.Type}
		}
		return nil
	}

	parent, err := r.parentObject(spec.Key)
	if err != nil {
		return err
	}

	var childSeg string
	switch {
	case parent != nil:
		childSeg = spec.Key[len(parent.Key)+1:]
		if strings.Contains(childSeg, ".") {
			return fmt.Errorf("spec %q: intermediate object spec %q.%s not registered",
				spec.Key, parent.Key, childSeg[:strings.Index(childSeg, ".")])
		}
	case comp != nil && category == "":
		if strings.Contains(spec.Key[len(comp.name)+1:], ".") {
			return fmt.Errorf("spec %q: nested key requires an object spec parent", spec.Key)
		}
	case comp != nil:
		if strings.Contains(spec.Key[len(comp.name)+len(category)+2:], ".") {
			return fmt.Errorf("spec %q: nested key requires an object spec parent", spec.Key)
		}
	}

	s := &spec // Copy to heap
	if parent != nil {
		if parent.children == nil {
			parent.children = make(map[string]*Spec)
		}
		parent.children[childSeg] = s
		s.parent = parent
	}
	r.specs[s.Key] = s

	// Child specs are reached through their parent during coercion and do
	// not seed the defaults tier themselves.
	if s.parent != nil {
		return nil
	}

	switch {
	case comp == nil:
		r.globals = append(r.globals, s)
	case category == "":
		comp.specs = append(comp.specs, s)
	default:
		comp.categories[category] = append(comp.categories[category], s)
	}
	return nil
}

// parentObject finds the registered object spec the key nests beneath, if any.
// Nesting under a non-object or opaque spec is an error.
func (r *Registry) parentObject(key string) (*Spec, error) {
	for i := strings.LastIndex(key, "."); i > 0; i = strings.LastIndex(key[:i], ".") {
		s, ok := r.specs[key[:i]]
		if !ok {
			continue
		}
		if s.Type != TypeObject {
			return nil, fmt.Errorf("spec %q nests under non-object spec %q", key, s.Key)
		}
		if s.Opaque {
			return nil, fmt.Errorf("spec %q nests under opaque spec %q", key, s.Key)
		}
		return s, nil
	}
	return nil, nil
}

// Lookup returns the spec for the given key.
func (r *Registry) Lookup(key string) (*Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.specs[key]; ok {
		return s, nil
	}
	return nil, &UnknownKeyError{Key: key}
}

// Has checks if a key is registered.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[key]
	return ok
}

// IsComponent reports whether the name is a registered component.
func (r *Registry) IsComponent(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// OpaqueNested reports whether the component treats unregistered nested
// blocks as opaque passthrough.
func (r *Registry) OpaqueNested(componentName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comp, ok := r.components[componentName]
	return ok && comp.opaque
}

// Components returns all registered component names sorted.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.components))
	for name := range r.components {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// GlobalSpecs returns the global specs sorted by key.
func (r *Registry) GlobalSpecs() []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedSpecs(r.globals)
}

// ComponentSpecs returns the component-level specs for a component sorted
// by key. Child specs of object specs are not included.
func (r *Registry) ComponentSpecs(componentName string) []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comp, ok := r.components[componentName]
	if !ok {
		return nil
	}
	return sortedSpecs(comp.specs)
}

// CategorySpecs returns the category-specific specs for a (component,
// category) pair sorted by key.
func (r *Registry) CategorySpecs(componentName, category string) []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comp, ok := r.components[componentName]
	if !ok {
		return nil
	}
	return sortedSpecs(comp.categories[category])
}

// CategorySpec returns the category-specific spec for a leaf option name,
// if one was registered for the (component, category) pair.
func (r *Registry) CategorySpec(componentName, category, name string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comp, ok := r.components[componentName]
	if !ok {
		return nil, false
	}
	for _, s := range comp.categories[category] {
		if s.Leaf() == name {
			return s, true
		}
	}
	return nil, false
}

// SpecsFor returns the specs applicable to a (component, category) pair:
// every global spec, the component's own specs, and category-specific specs
// for the given category. Sorted by key; child specs of object specs are not
// included.
func (r *Registry) SpecsFor(componentName, category string) []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Spec
	result = append(result, r.globals...)
	if comp, ok := r.components[componentName]; ok {
		result = append(result, comp.specs...)
		if category != "" {
			result = append(result, comp.categories[category]...)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// All returns every registered spec sorted by key.
func (r *Registry) All() []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Spec, 0, len(r.specs))
	for _, s := range r.specs {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// sortedSpecs returns a sorted copy of specs.
func sortedSpecs(specs []*Spec) []*Spec {
	result := make([]*Spec, len(specs))
	copy(result, specs)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}
