// file: store/codec.go
package store

import (
	"time"

	"github.com/goccy/go-json"
)

// timestamps are persisted as {"_seconds": s, "_nanoseconds": ns}
const (
	secondsField = "_seconds"
	nanosField   = "_nanoseconds"
)

// Encode serialises data for storage.
func Encode(data Data) ([]byte, error) {
	return json.Marshal(encodeValue(map[string]any(data)))
}

// Decode parses stored bytes and normalises timestamps back to time.Time.
func Decode(raw []byte) (Data, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return Data{}, nil
	}
	return Data(Normalize(m).(map[string]any)), nil
}

func encodeValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return map[string]any{secondsField: x.Unix(), nanosField: x.Nanosecond()}
	case *time.Time:
		if x == nil {
			return nil
		}
		return encodeValue(*x)
	case Data:
		return encodeValue(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = encodeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = encodeValue(val)
		}
		return out
	default:
		return v
	}
}

// Normalize walks a decoded value and turns timestamp objects into time.Time.
func Normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if t, ok := asTimestamp(x); ok {
			return t
		}
		for k, val := range x {
			x[k] = Normalize(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = Normalize(val)
		}
		return x
	default:
		return v
	}
}

func asTimestamp(m map[string]any) (time.Time, bool) {
	if len(m) != 2 {
		return time.Time{}, false
	}
	sec, ok := m[secondsField].(float64)
	if !ok {
		return time.Time{}, false
	}
	ns, ok := m[nanosField].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(sec), int64(ns)).UTC(), true
}
