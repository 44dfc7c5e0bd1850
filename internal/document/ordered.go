package document

// Node is one key of an ordered mapping. Value is a scalar (string, int64,
// float64, bool, nil), a []any list, or a nested Map.
type Node struct {
	Key   string
	Value any
}

// Map is a mapping that keeps document order.
type Map []Node

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Key == key {
			return m[i].Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in document order.
func (m Map) Keys() []string {
	out := make([]string, 0, len(m))
	for _, n := range m {
		out = append(out, n.Key)
	}
	return out
}

// set replaces an existing key in place or appends a new one.
func (m *Map) set(key string, value any) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Node{Key: key, Value: value})
}

func normalizeScalar(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeScalar(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizeScalar(item)
		}
		return out
	default:
		return v
	}
}
