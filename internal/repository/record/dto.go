package record

import (
	"strconv"

	"github.com/ovunque/nlsearch/internal/domain/record"
)

// recordToHash flattens attribute values to strings for HSET.
func recordToHash(rec record.Record) map[string]string {
	values := rec.Values()
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = encodeValue(v)
	}
	return out
}

// recordFromHash hydrates a record from an HGETALL result. Values stay
// as strings; filter evaluation coerces them by operand type.
func recordFromHash(id int64, entity string, m map[string]string) record.Record {
	values := make(map[string]any, len(m))
	for k, v := range m {
		values[k] = v
	}
	return record.Reconstruct(id, entity, values)
}

func encodeValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}
