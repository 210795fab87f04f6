package config

import (
	"fmt"
	"sort"

	"github.com/dshills/grabkit/config/coerce"
	"github.com/dshills/grabkit/config/layer"
)

// Effective is a fully resolved configuration for one (component, category)
// pair. It is immutable: later reloads and overrides produce new Effective
// values and never touch one a caller already holds.
//
// Values are stored in canonical form: booleans, int64, float64, string,
// []string, map[string]any, and nil for string-or-null options that were
// explicitly cleared.
type Effective struct {
	component string
	category  string
	mode      Mode
	version   uint64
	values    map[string]any
	dropped   []string
}

// Component returns the component this configuration was resolved for.
func (e *Effective) Component() string {
	return e.component
}

// Category returns the category this configuration was resolved for.
// Empty for component-level resolutions.
func (e *Effective) Category() string {
	return e.category
}

// Mode returns the resolution mode the configuration was computed under.
func (e *Effective) Mode() Mode {
	return e.mode
}

// Version returns the tree version the configuration was resolved against.
func (e *Effective) Version() uint64 {
	return e.version
}

// Dropped returns the unknown keys discarded during a permissive
// resolution. Empty in strict mode, where unknown keys fail instead.
func (e *Effective) Dropped() []string {
	out := make([]string, len(e.dropped))
	copy(out, e.dropped)
	return out
}

// Get returns the raw value for an option name. The boolean reports
// whether the option is present; an explicitly cleared string-or-null
// option is present with a nil value.
func (e *Effective) Get(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Has reports whether the option is present.
func (e *Effective) Has(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Keys returns the option names in sorted order.
func (e *Effective) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bool returns a boolean option.
func (e *Effective) Bool(name string) (bool, error) {
	v, ok := e.values[name]
	if !ok {
		return false, e.notFound(name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, e.typeError(name, "boolean", v)
	}
	return b, nil
}

// Int returns an integer option.
func (e *Effective) Int(name string) (int64, error) {
	v, ok := e.values[name]
	if !ok {
		return 0, e.notFound(name)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, e.typeError(name, "integer", v)
	}
	return n, nil
}

// Float returns a float option.
func (e *Effective) Float(name string) (float64, error) {
	v, ok := e.values[name]
	if !ok {
		return 0, e.notFound(name)
	}
	switch f := v.(type) {
	case float64:
		return f, nil
	case int64:
		return float64(f), nil
	default:
		return 0, e.typeError(name, "float", v)
	}
}

// String returns a string option.
func (e *Effective) String(name string) (string, error) {
	v, ok := e.values[name]
	if !ok {
		return "", e.notFound(name)
	}
	s, ok := v.(string)
	if !ok {
		return "", e.typeError(name, "string", v)
	}
	return s, nil
}

// StringOrNull returns a string-or-null option. The pointer is nil when
// the option was explicitly cleared.
func (e *Effective) StringOrNull(name string) (*string, error) {
	v, ok := e.values[name]
	if !ok {
		return nil, e.notFound(name)
	}
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, e.typeError(name, "string-or-null", v)
	}
	return &s, nil
}

// Strings returns a list-of-string option. The returned slice is a copy.
func (e *Effective) Strings(name string) ([]string, error) {
	v, ok := e.values[name]
	if !ok {
		return nil, e.notFound(name)
	}
	list, ok := v.([]string)
	if !ok {
		return nil, e.typeError(name, "list-of-string", v)
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

// Object returns a nested object option as a deep copy, so callers can
// mutate the result without corrupting the cached resolution.
func (e *Effective) Object(name string) (map[string]any, error) {
	v, ok := e.values[name]
	if !ok {
		return nil, e.notFound(name)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, e.typeError(name, "object", v)
	}
	return layer.CloneMap(m), nil
}

// Values returns a deep copy of every resolved option.
func (e *Effective) Values() map[string]any {
	return layer.CloneMap(e.values)
}

func (e *Effective) notFound(name string) error {
	return fmt.Errorf("%s: %w", e.qualify(name), ErrOptionNotFound)
}

func (e *Effective) typeError(name, expected string, v any) error {
	return &coerce.TypeMismatchError{
		Key:      e.qualify(name),
		Expected: expected,
		Actual:   coerce.TypeName(v),
	}
}

// qualify prefixes an option name with the resolution's component and
// category for error messages.
func (e *Effective) qualify(name string) string {
	if e.category != "" {
		return e.component + "." + e.category + "." + name
	}
	return e.component + "." + name
}
