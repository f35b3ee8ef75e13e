package graph

import (
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

func encodeProperties(props map[string]any) ([]byte, error) {
	if len(props) == 0 {
		return nil, nil
	}
	b, err := msgpack.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to encode properties: %w", err)
	}
	return b, nil
}

func decodeProperties(b []byte) (map[string]any, error) {
	props := map[string]any{}
	if len(b) == 0 {
		return props, nil
	}
	if err := msgpack.Unmarshal(b, &props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return props, nil
}

// matchProperties reports whether every key in want is present in have with
// an equal value. Numbers compare by value regardless of their Go type, so a
// stored int8 matches a requested float64 from JSON.
func matchProperties(have, want map[string]any) bool {
	for k, w := range want {
		h, ok := have[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalize(h), normalize(w)) {
			return false
		}
	}
	return true
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value().Interface())
		}
		return out
	}
	return v
}
