package configsync

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ListSeparator joins list elements in canonical form.
const ListSeparator = ", "

// Canonical renders v into the string both sides of a comparison are reduced
// to:
//
//	nil            -> ""
//	string         -> itself
//	bool           -> "1" / ""
//	integers       -> base 10
//	floats         -> shortest decimal, integral floats without fraction
//	lists          -> canonical elements joined with ", "
//	maps           -> "k: v" pairs sorted by key, joined with ", "
func Canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return ""
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Canonical(item)
		}
		return strings.Join(parts, ListSeparator)
	case []string:
		return strings.Join(x, ListSeparator)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Canonical(x[k])
		}
		return strings.Join(parts, ListSeparator)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
