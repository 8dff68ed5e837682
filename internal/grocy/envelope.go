package grocy

import "strconv"

// Object is a raw Grocy object. Field names drift across backend versions,
// so objects stay dynamic and are read through the accessor helpers below.
type Object = map[string]any

// normalizeList coerces the response envelopes Grocy is known to produce
// into a flat object list:
//
//   - bare array:        [ {...}, {...} ]
//   - wrapped:           { "data": [ {...} ] }
//   - keyed map:         { "1": {...}, "2": {...} }
//
// Returns false when the value matches none of the shapes.
func normalizeList(data any) ([]Object, bool) {
	switch v := data.(type) {
	case []any:
		return objectSlice(v), true
	case map[string]any:
		if inner, ok := v["data"].([]any); ok {
			return objectSlice(inner), true
		}
		// Keyed map: keep only object-valued entries.
		var out []Object
		for _, val := range v {
			if obj, ok := val.(Object); ok {
				out = append(out, obj)
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

func objectSlice(items []any) []Object {
	out := make([]Object, 0, len(items))
	for _, it := range items {
		if obj, ok := it.(Object); ok {
			out = append(out, obj)
		}
	}
	return out
}

// extractCreatedID pulls the created object id out of a create response.
// Grocy returns different shapes depending on version/config:
// {"created_object_id": "123"}, {"id": 123}, or plain "123".
func extractCreatedID(resp any) (int, bool) {
	switch v := resp.(type) {
	case map[string]any:
		for _, key := range []string{"created_object_id", "id", "last_inserted_id", "last_inserted_row_id", "rowid", "row_id"} {
			if raw, ok := v[key]; ok {
				if id, ok := asInt(raw); ok {
					return id, true
				}
			}
		}
	default:
		if id, ok := asInt(v); ok {
			return id, true
		}
	}
	return 0, false
}

// asFloat coerces a dynamic JSON value to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// asInt coerces a dynamic JSON value to int.
func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// truthy interprets the loose boolean encodings Grocy uses for flags:
// true, 1, 1.0, "1", "true".
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		return b == "1" || b == "true" || b == "True"
	}
	return false
}

// firstTruthy returns true when any of the candidate keys is present and
// truthy, consulting candidates in order. Field-name drift for flags is
// handled here and nowhere else.
func firstTruthy(obj Object, candidates []string) bool {
	for _, key := range candidates {
		if v, ok := obj[key]; ok && truthy(v) {
			return true
		}
	}
	return false
}

// firstFloat returns the first candidate key holding a numeric value,
// or def when none does.
func firstFloat(obj Object, candidates []string, def float64) float64 {
	for _, key := range candidates {
		if v, ok := obj[key]; ok {
			if f, ok := asFloat(v); ok {
				return f
			}
		}
	}
	return def
}
