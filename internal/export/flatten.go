package export

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ArraySeparator joins array elements in flattened output.
const ArraySeparator = " | "

// field is one flattened key/value pair. Order is preserved so tabular
// output can derive deterministic column ordering.
type field struct {
	Key   string
	Value string
}

// Flatten converts an arbitrarily nested payload into single-level
// key/value pairs. Nested object keys are joined with ".", arrays are
// joined with ArraySeparator, and all leaf values are stringified. The
// transformation is purely structural: it assumes nothing about the payload
// beyond objects, arrays, and scalars.
func Flatten(v any) map[string]string {
	fields := flattenOrdered(v)
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

// flattenOrdered is the ordered core of Flatten. Object keys are visited in
// lexicographic order at every level, which keeps output deterministic for
// payloads decoded from JSON (where source order is not preserved).
func flattenOrdered(v any) []field {
	var out []field
	walk("", normalize(v), &out)
	return out
}

// walk descends into the normalized value, accumulating flattened fields.
func walk(prefix string, v any, out *[]field) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(joinKey(prefix, k), val[k], out)
		}
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = stringify(elem)
		}
		*out = append(*out, field{Key: prefix, Value: strings.Join(parts, ArraySeparator)})
	default:
		*out = append(*out, field{Key: prefix, Value: stringify(val)})
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// normalize round-trips the value through JSON so that structs, typed maps
// and typed slices all collapse to the map/slice/scalar shapes walk expects.
// Values that cannot be marshalled are kept as-is and stringified later.
func normalize(v any) any {
	switch v.(type) {
	case nil, bool, string, float64, map[string]any, []any:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return v
	}
	return normalized
}

// stringify renders a leaf value. JSON numbers render without a trailing
// fraction (1, not 1.000000); nested structures inside arrays render as
// compact JSON rather than being dropped.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any, []any:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(raw), `"`)
	}
}
