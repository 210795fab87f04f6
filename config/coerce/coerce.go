// Package coerce converts loosely-typed input values into validated typed
// values per the option registry.
//
// Input trees come from JSON, TOML, or YAML decoders, so the same logical
// type arrives as different Go types (JSON numbers as float64, TOML integers
// as int64, YAML integers as int). Coercion canonicalizes: integers become
// int64, floats become float64, string lists become []string. Values are
// dispatched on the spec's declared type, never inferred from the input.
package coerce

import (
	"math"
	"sort"

	"github.com/dshills/grabkit/config/layer"
	"github.com/dshills/grabkit/config/registry"
)

// Mode controls how unknown keys inside object values are handled.
type Mode uint8

const (
	// Strict surfaces unknown keys as errors.
	Strict Mode = iota
	// Permissive drops unknown keys and reports them for warning.
	Permissive
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Permissive:
		return "permissive"
	default:
		return "unknown"
	}
}

// Result carries a coerced value plus the unknown child keys that were
// dropped from object values in permissive mode.
type Result struct {
	Value   any
	Dropped []string
}

// Coerce converts raw into the typed value declared by spec, strictly.
// It is a pure function of its arguments.
//
// An explicit nil maps to the spec's default for every type except
// string-or-null, where nil is meaningful and preserved.
func Coerce(spec *registry.Spec, raw any) (any, error) {
	res, err := CoerceMode(spec, raw, Strict)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// CoerceMode converts raw into the typed value declared by spec under the
// given unknown-key mode.
func CoerceMode(spec *registry.Spec, raw any, mode Mode) (Result, error) {
	var dropped []string
	v, err := coerceValue(spec, raw, mode, &dropped)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: v, Dropped: dropped}, nil
}

func coerceValue(spec *registry.Spec, raw any, mode Mode, dropped *[]string) (any, error) {
	if raw == nil {
		if spec.Type == registry.TypeStringOrNull {
			return nil, nil
		}
		if spec.Default == nil {
			return nil, nil
		}
		return coerceValue(spec, spec.Default, mode, dropped)
	}

	switch spec.Type {
	case registry.TypeBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case registry.TypeInt:
		return coerceInt(spec, raw)
	case registry.TypeFloat:
		return coerceFloat(spec, raw)
	case registry.TypeString, registry.TypeStringOrNull:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case registry.TypeStringList:
		return coerceStringList(spec, raw)
	case registry.TypeObject:
		return coerceObject(spec, raw, mode, dropped)
	}

	return nil, mismatch(spec, raw)
}

// coerceInt accepts integer input of any width and integral floats.
// Fractional floats are rejected; strings are never parsed.
func coerceInt(spec *registry.Spec, raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, mismatch(spec, raw)
		}
		return int64(v), nil
	case float32:
		return coerceIntFromFloat(spec, float64(v))
	case float64:
		return coerceIntFromFloat(spec, v)
	}
	return nil, mismatch(spec, raw)
}

func coerceIntFromFloat(spec *registry.Spec, f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, &TypeMismatchError{Key: spec.Key, Expected: spec.Type.String(), Actual: "fractional float"}
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, mismatch(spec, f)
	}
	return int64(f), nil
}

// coerceFloat accepts floating input and widens integer input.
func coerceFloat(spec *registry.Spec, raw any) (any, error) {
	switch v := raw.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return nil, mismatch(spec, raw)
}

// coerceStringList requires a list whose every element is a string. A scalar
// where a list is expected fails; there is no implicit single-element wrap.
func coerceStringList(spec *registry.Spec, raw any) (any, error) {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, len(v))
		for i, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil, &TypeMismatchError{
					Key:      spec.Key,
					Expected: spec.Type.String(),
					Actual:   "list containing " + TypeName(el),
				}
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, mismatch(spec, raw)
}

// coerceObject recurses into a mapping. Child keys with a registered child
// spec are coerced against it; for opaque specs the whole subtree passes
// through as a deep clone. Unknown children are surfaced or dropped per mode.
func coerceObject(spec *registry.Spec, raw any, mode Mode, dropped *[]string) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, mismatch(spec, raw)
	}

	if spec.Opaque {
		return layer.CloneMap(m), nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		child := spec.Child(k)
		if child == nil {
			fullKey := spec.Key + "." + k
			if mode == Permissive {
				*dropped = append(*dropped, fullKey)
				continue
			}
			return nil, &registry.UnknownKeyError{Key: fullKey}
		}
		v, err := coerceValue(child, m[k], mode, dropped)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func mismatch(spec *registry.Spec, raw any) error {
	return &TypeMismatchError{
		Key:      spec.Key,
		Expected: spec.Type.String(),
		Actual:   TypeName(raw),
	}
}

// TypeName names a raw value's type in the vocabulary of the option type
// system, for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "float"
	case string:
		return "string"
	case []any, []string:
		return "list"
	case map[string]any:
		return "object"
	default:
		return "unsupported"
	}
}
