package layer

// DeepMerge recursively merges src into dst and returns dst.
// Values in src override values in dst key by key. Mappings merge
// recursively; every other type is replaced. Merged-in values are cloned so
// dst never aliases src.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	if src == nil {
		return dst
	}

	for key, srcVal := range src {
		dstVal, exists := dst[key]
		if !exists {
			dst[key] = CloneValue(srcVal)
			continue
		}

		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dstVal.(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
		} else {
			dst[key] = CloneValue(srcVal)
		}
	}

	return dst
}

// MergeValue merges src into dst at a single key position: two mappings
// deep-merge, anything else replaces. Returns the merged value.
func MergeValue(dst, src any) any {
	srcMap, srcIsMap := src.(map[string]any)
	dstMap, dstIsMap := dst.(map[string]any)
	if srcIsMap && dstIsMap {
		return DeepMerge(dstMap, srcMap)
	}
	return CloneValue(src)
}

// CloneValue creates a deep copy of a value. Scalars are returned as-is.
func CloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return CloneMap(v)
	case []any:
		return CloneSlice(v)
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return val
	}
}

// CloneMap creates a deep copy of a nested map.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = CloneValue(v)
	}
	return dst
}

// CloneSlice creates a deep copy of a slice.
func CloneSlice(src []any) []any {
	if src == nil {
		return nil
	}
	dst := make([]any, len(src))
	for i, v := range src {
		dst[i] = CloneValue(v)
	}
	return dst
}
