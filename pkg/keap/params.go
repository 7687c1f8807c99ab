package keap

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Params is a caller-supplied query parameter object.
type Params map[string]any

// CleanParams drops nil values, nil pointers, blank strings and empty
// slices. Slice elements that are blank are filtered out and the key is
// omitted when nothing remains. Zero numbers and false are kept.
func CleanParams(p Params) Params {
	out := make(Params, len(p))
	for k, v := range p {
		if cleaned, ok := cleanValue(v); ok {
			out[k] = cleaned
		}
	}
	return out
}

func cleanValue(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		if strings.TrimSpace(rv.String()) == "" {
			return nil, false
		}
		return rv.Interface(), true
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte is a scalar
			if rv.Len() == 0 {
				return nil, false
			}
			return rv.Interface(), true
		}
		kept := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			if _, ok := cleanValue(el.Interface()); ok {
				kept = reflect.Append(kept, el)
			}
		}
		if kept.Len() == 0 {
			return nil, false
		}
		return kept.Interface(), true
	case reflect.Map:
		if rv.Len() == 0 {
			return nil, false
		}
		return rv.Interface(), true
	default:
		return rv.Interface(), true
	}
}

// Values encodes the cleaned parameters as a query string. Slices become
// repeated keys.
func (p Params) Values() url.Values {
	cleaned := CleanParams(p)
	q := make(url.Values, len(cleaned))
	for k, v := range cleaned {
		rv := reflect.ValueOf(v)
		if (rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8) || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				q.Add(k, formatScalar(rv.Index(i).Interface()))
			}
			continue
		}
		q.Set(k, formatScalar(v))
	}
	return q
}

func formatScalar(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch t := rv.Interface().(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(rv.Interface())
}
