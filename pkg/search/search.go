// Package search parses, validates and serializes the query-string part of
// a location.
//
// Raw values are JSON-aware: "?page=2&tags=[\"a\"]" parses to a float64 and
// a []any, while values that are not valid JSON stay strings. Stringify is
// the inverse, so Parse(Stringify(v)) returns v for any JSON-shaped Values.
package search

import (
	"encoding/json"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// Values is a search object: query keys mapped to decoded values.
type Values map[string]any

// Parse decodes a raw query string (with or without the leading "?").
// Repeated keys collect into a []any in order of appearance.
func Parse(raw string) Values {
	raw = strings.TrimPrefix(raw, "?")
	out := Values{}
	if raw == "" {
		return out
	}

	// ParseQuery keeps the pairs it could decode even when it errors.
	q, _ := url.ParseQuery(raw)
	for key, vals := range q {
		if len(vals) == 1 {
			out[key] = decodeValue(vals[0])
			continue
		}
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = decodeValue(v)
		}
		out[key] = list
	}
	return out
}

func decodeValue(s string) any {
	if s == "" || !json.Valid([]byte(s)) {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Stringify encodes values as a query string without the leading "?".
// Keys are sorted. Nil values are dropped. Strings that would parse back as
// a non-string JSON value are quoted so they survive a round trip.
func Stringify(v Values) string {
	if len(v) == 0 {
		return ""
	}
	q := url.Values{}
	for key, val := range v {
		if val == nil {
			continue
		}
		q.Set(key, encodeValue(val))
	}
	return q.Encode()
}

// Href appends the stringified values to path, with "?" only when needed.
func Href(path string, v Values) string {
	qs := Stringify(v)
	if qs == "" {
		return path
	}
	return path + "?" + qs
}

func encodeValue(val any) string {
	if s, ok := val.(string); ok {
		if _, isString := decodeValue(s).(string); isString {
			return s
		}
		b, _ := json.Marshal(s)
		return string(b)
	}
	b, err := json.Marshal(val)
	if err != nil {
		return ""
	}
	return string(b)
}

// Clone returns a shallow copy of v. A nil v clones to an empty Values.
func Clone(v Values) Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge returns base overlaid with each of overlays, left to right.
func Merge(base Values, overlays ...Values) Values {
	out := Clone(base)
	for _, o := range overlays {
		for k, val := range o {
			out[k] = val
		}
	}
	return out
}

// Equal reports whether a and b hold deeply equal values. Nil and empty are
// equal.
func Equal(a, b Values) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Keys returns the keys of v in sorted order.
func Keys(v Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
