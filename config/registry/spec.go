// Package registry provides the option schema registry for grabkit
// configuration.
//
// The registry maintains definitions of all known options with their types,
// defaults, and permissible override scopes. Runtime components register
// their specs at initialization, before any resolution request that
// references them; the registry is additive for the process lifetime.
package registry

import (
	"fmt"
	"strings"
)

// Spec defines one configuration option.
type Spec struct {
	// Key is the canonical dot-separated path (e.g. "downloader.http.retries").
	Key string

	// Type is the option's declared type.
	Type OptionType

	// Default is the default value. It must satisfy Type; only
	// TypeStringOrNull permits a nil default.
	Default any

	// Description is human-readable documentation.
	Description string

	// Scope defines the tiers at which the option may be overridden.
	Scope Scope

	// Opaque marks a TypeObject subtree as passthrough: its child keys are
	// not validated and are handed to the owning component unchanged.
	Opaque bool

	// children holds specs registered beneath a TypeObject spec, keyed by
	// the child segment relative to this spec.
	children map[string]*Spec

	// parent is non-nil for child specs of a TypeObject spec.
	parent *Spec
}

// Child returns the child spec for the given segment, or nil.
func (s *Spec) Child(name string) *Spec {
	return s.children[name]
}

// Children returns the child specs registered beneath this spec, sorted by
// key. Empty for non-object and opaque specs.
func (s *Spec) Children() []*Spec {
	if len(s.children) == 0 {
		return nil
	}
	return sortedSpecs(specValues(s.children))
}

// specValues collects the specs from a child map.
func specValues(m map[string]*Spec) []*Spec {
	result := make([]*Spec, 0, len(m))
	for _, s := range m {
		result = append(result, s)
	}
	return result
}

// Leaf returns the final segment of the spec's key.
func (s *Spec) Leaf() string {
	if i := strings.LastIndex(s.Key, "."); i >= 0 {
		return s.Key[i+1:]
	}
	return s.Key
}

// validate checks structural invariants at registration time.
func (s *Spec) validate() error {
	if s.Key == "" {
		return fmt.Errorf("spec has empty key")
	}
	for _, seg := range strings.Split(s.Key, ".") {
		if seg == "" {
			return fmt.Errorf("spec key %q has an empty segment", s.Key)
		}
	}
	if s.Opaque && s.Type != TypeObject {
		return fmt.Errorf("spec %q: opaque requires object type", s.Key)
	}
	return s.validateDefault()
}

// validateDefault checks that the default satisfies the spec's own type.
func (s *Spec) validateDefault() error {
	if s.Default == nil {
		if s.Type == TypeStringOrNull {
			return nil
		}
		return fmt.Errorf("spec %q: nil default for %s type", s.Key, s.Type)
	}

	switch s.Type {
	case TypeBool:
		if _, ok := s.Default.(bool); !ok {
			return fmt.Errorf("spec %q: default %T does not satisfy boolean", s.Key, s.Default)
		}
	case TypeInt:
		switch v := s.Default.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("spec %q: fractional default for integer", s.Key)
			}
		default:
			return fmt.Errorf("spec %q: default %T does not satisfy integer", s.Key, s.Default)
		}
	case TypeFloat:
		switch s.Default.(type) {
		case float32, float64, int, int64:
		default:
			return fmt.Errorf("spec %q: default %T does not satisfy float", s.Key, s.Default)
		}
	case TypeString, TypeStringOrNull:
		if _, ok := s.Default.(string); !ok {
			return fmt.Errorf("spec %q: default %T does not satisfy string", s.Key, s.Default)
		}
	case TypeStringList:
		switch v := s.Default.(type) {
		case []string:
		case []any:
			for _, el := range v {
				if _, ok := el.(string); !ok {
					return fmt.Errorf("spec %q: default list element %T is not a string", s.Key, el)
				}
			}
		default:
			return fmt.Errorf("spec %q: default %T does not satisfy list-of-string", s.Key, s.Default)
		}
	case TypeObject:
		if _, ok := s.Default.(map[string]any); !ok {
			return fmt.Errorf("spec %q: default %T does not satisfy object", s.Key, s.Default)
		}
	default:
		return fmt.Errorf("spec %q: unknown type %d", s.Key, s.Type)
	}
	return nil
}

// OptionType represents the declared type of an option.
type OptionType uint8

const (
	// TypeBool represents a boolean value.
	TypeBool OptionType = iota
	// TypeInt represents an integer value.
	TypeInt
	// TypeFloat represents a floating-point value.
	TypeFloat
	// TypeString represents a string value.
	TypeString
	// TypeStringOrNull represents a string value where explicit null is
	// meaningful and preserved.
	TypeStringOrNull
	// TypeStringList represents a list of strings.
	TypeStringList
	// TypeObject represents a nested mapping.
	TypeObject
)

// String returns the string representation of the type.
func (t OptionType) String() string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeStringOrNull:
		return "string-or-null"
	case TypeStringList:
		return "list-of-string"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Scope defines the highest tier at which an option may be overridden.
type Scope uint8

const (
	// ScopeComponent allows overrides at the component tier only.
	ScopeComponent Scope = iota
	// ScopeCategory allows overrides at the component and category tiers.
	ScopeCategory
	// ScopeGlobal places the option at the document root, outside any
	// component block.
	ScopeGlobal
)

// String returns a string representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeComponent:
		return "component"
	case ScopeCategory:
		return "category"
	case ScopeGlobal:
		return "global"
	default:
		return "unknown"
	}
}
