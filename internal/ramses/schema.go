package ramses

// Schema is the nested device/system model exchanged with the gateway: a
// mapping from device ids (and a small set of reserved keys) to role and
// child-relationship descriptions. Values are plain JSON/YAML shapes.
type Schema map[string]any

// Reserved top-level schema keys. Anything else at the top level must be a
// controller device id.
const (
	SchemaKeyBlockList = "block_list"
	SchemaKeyKnownList = "known_list"
)

// DeepCopy creates an independent copy of the schema. Nested maps and
// slices are cloned so mutation of the copy never leaks into the original.
func (s Schema) DeepCopy() Schema {
	if s == nil {
		return nil
	}
	return Schema(deepCopyMap(s))
}

// CopyValue deep-copies a single schema value: nested maps and slices are
// cloned, primitives returned as-is.
func CopyValue(v any) any {
	return deepCopyValue(v)
}

func deepCopyMap(m map[string]any) map[string]any {
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case Schema:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives are safe to copy by value.
		return v
	}
}
