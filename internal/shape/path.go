package shape

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Decode parses a JSON body keeping numbers as json.Number.
func Decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get walks a dotted path through nested objects.
func Get(root any, path string) (any, bool) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Unwrap returns the first envelope that holds an object, or raw itself.
func (o Object) Unwrap(raw any) map[string]any {
	for _, env := range o.Envelopes {
		if v, ok := Get(raw, env); ok {
			if m, ok := v.(map[string]any); ok {
				return m
			}
		}
	}
	if m, ok := raw.(map[string]any); ok {
		return m
	}
	return nil
}

// UnwrapList returns the first envelope that holds an array, or raw itself.
func (o Object) UnwrapList(raw any) []any {
	if list, ok := raw.([]any); ok {
		return list
	}
	for _, env := range o.Envelopes {
		if v, ok := Get(raw, env); ok {
			if list, ok := v.([]any); ok {
				return list
			}
		}
	}
	return nil
}

// Lookup returns the first non-blank candidate value for field.
func (o Object) Lookup(obj map[string]any, field string) (any, bool) {
	return first(o, obj, field, func(v any) (any, bool) { return v, true })
}

// String resolves field as text. Numbers are rendered in their JSON form.
func (o Object) String(obj map[string]any, field string) string {
	s, _ := first(o, obj, field, toString)
	return s
}

// Decimal resolves field as a decimal amount.
func (o Object) Decimal(obj map[string]any, field string) (decimal.Decimal, bool) {
	return first(o, obj, field, toDecimal)
}

// Int resolves field as a whole number.
func (o Object) Int(obj map[string]any, field string) (int, bool) {
	return first(o, obj, field, func(v any) (int, bool) {
		d, ok := toDecimal(v)
		if !ok {
			return 0, false
		}
		return int(d.IntPart()), true
	})
}

// Map resolves field as a nested object.
func (o Object) Map(obj map[string]any, field string) map[string]any {
	m, _ := first(o, obj, field, func(v any) (map[string]any, bool) {
		m, ok := v.(map[string]any)
		return m, ok
	})
	return m
}

// List resolves field as an array.
func (o Object) List(obj map[string]any, field string) []any {
	l, _ := first(o, obj, field, func(v any) ([]any, bool) {
		l, ok := v.([]any)
		return l, ok
	})
	return l
}

func first[T any](o Object, obj map[string]any, field string, convert func(any) (T, bool)) (T, bool) {
	var zero T
	if obj == nil {
		return zero, false
	}

	for _, c := range o.Fields[field] {
		v, ok := Get(obj, c.Path)
		if !ok || isBlank(v) {
			continue
		}
		v = applyTransform(c.Transform, v)
		if isBlank(v) {
			continue
		}
		if out, ok := convert(v); ok {
			return out, true
		}
	}
	return zero, false
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func applyTransform(name string, v any) any {
	if name != TransformShortID {
		return v
	}
	s, ok := toString(v)
	if !ok {
		return nil
	}
	if len(s) > 8 {
		s = s[len(s)-8:]
	}
	return strings.ToUpper(s)
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	return decimal.Zero, false
}
