// Package attrs reads values back out of slog-style argument lists, the flat
// key, value, key, value slices passed to Logger.Log.
package attrs

import (
	"fmt"
	"reflect"
)

// Value returns the value paired with key. Non-string keys are skipped and a
// trailing key without a value is ignored.
func Value(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

// FirstString returns the first non-empty string found under keys, tried in
// order. Named string types such as ids count as strings.
func FirstString(kv []any, keys ...string) string {
	for _, key := range keys {
		v, ok := Value(kv, key)
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String()
	}
	return ""
}
