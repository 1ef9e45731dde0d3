package query

import (
	"encoding/json"
	"fmt"
	"time"
)

// NormalizeValue converts driver-specific scan values into JSON-friendly
// values. Byte slices become strings; nested maps and slices are normalized
// recursively; anything that already marshals cleanly is returned unchanged.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = NormalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = NormalizeValue(e)
		}
		return out
	case json.Marshaler, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return val
	}
}

// NormalizeRecord normalizes every value of a record in place and returns it.
func NormalizeRecord(rec map[string]any) map[string]any {
	for k, v := range rec {
		rec[k] = NormalizeValue(v)
	}
	return rec
}
