package layer

import "strings"

// GetByPath retrieves a value from a nested map using a dot-separated path.
func GetByPath(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	current := any(data)

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, exists := m[part]
		if !exists {
			return nil, false
		}
		current = val
	}

	return current, true
}

// SetByPath returns a new tree with the value placed at the dot-separated
// path. The input tree is never mutated: the spine along the path is copied,
// intermediate maps are created as needed, and a scalar in the way of the
// path is replaced by a map. Untouched branches are shared by reference,
// which is safe because trees are treated as immutable values.
func SetByPath(data map[string]any, path string, value any) map[string]any {
	parts := strings.Split(path, ".")
	return setRecursive(data, parts, value)
}

func setRecursive(data map[string]any, parts []string, value any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}

	key := parts[0]
	if len(parts) == 1 {
		out[key] = value
		return out
	}

	child, _ := out[key].(map[string]any)
	out[key] = setRecursive(child, parts[1:], value)
	return out
}

// DeleteByPath returns a new tree with the value at the dot-separated path
// removed, and whether the value was present. Like SetByPath it copies the
// spine and shares untouched branches.
func DeleteByPath(data map[string]any, path string) (map[string]any, bool) {
	if data == nil || path == "" {
		return data, false
	}
	parts := strings.Split(path, ".")
	return deleteRecursive(data, parts)
}

func deleteRecursive(data map[string]any, parts []string) (map[string]any, bool) {
	key := parts[0]
	cur, exists := data[key]
	if !exists {
		return data, false
	}

	if len(parts) == 1 {
		out := make(map[string]any, len(data))
		for k, v := range data {
			if k != key {
				out[k] = v
			}
		}
		return out, true
	}

	child, ok := cur.(map[string]any)
	if !ok {
		return data, false
	}
	newChild, deleted := deleteRecursive(child, parts[1:])
	if !deleted {
		return data, false
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	out[key] = newChild
	return out, true
}
