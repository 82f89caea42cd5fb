// Package sanitize flattens arbitrary metadata into the scalar-only shape the
// vector store accepts.
package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// ListDelimiter joins string lists into a single metadata value.
const ListDelimiter = "; "

// Metadata returns a copy of in where every value is nil, a string, a bool,
// an integer or a float. It never fails.
func Metadata(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = Value(v)
	}
	return out
}

func Value(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case []string:
		return strings.Join(val, ListDelimiter)
	case []interface{}:
		if items, ok := stringItems(val); ok {
			return strings.Join(items, ListDelimiter)
		}
		return encode(val)
	}
	if scalar, ok := underlyingScalar(v); ok {
		return scalar
	}
	return encode(v)
}

// IsScalar reports whether v is already acceptable as a metadata value.
func IsScalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func stringItems(items []interface{}) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// underlyingScalar unwraps named types such as `type Year string`.
func underlyingScalar(v interface{}) (interface{}, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.String {
			items := make([]string, rv.Len())
			for i := range items {
				items[i] = rv.Index(i).String()
			}
			return strings.Join(items, ListDelimiter), true
		}
	}
	return nil, false
}

func encode(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
