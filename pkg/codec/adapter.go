// Package codec turns loader data into wire-safe values and back.
//
// Loader data may hold types the wire encodings cannot express (times,
// big numbers, application types). A Chain of Adapters rewrites such
// values into tagged plain values on the way out and restores them on the
// way in. Marshal and Unmarshal then encode the plain result as msgpack or
// JSON.
package codec

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Adapter converts one family of values to and from a serializable form.
type Adapter interface {
	// Key names the adapter in the tagged output. It must be unique
	// within a Chain.
	Key() string
	Test(v any) bool
	ToSerializable(v any) (any, error)
	FromSerializable(v any) (any, error)
}

// tagPrefix marks a single-key map produced by an adapter.
const tagPrefix = "$rk/t/"

// Chain tries adapters in registration order.
type Chain struct {
	adapters []Adapter
	byKey    map[string]Adapter
}

// NewChain builds a chain. Adapters with a duplicate key are rejected.
func NewChain(adapters ...Adapter) (*Chain, error) {
	c := &Chain{byKey: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := c.byKey[a.Key()]; dup {
			return nil, fmt.Errorf("codec: duplicate adapter key %q", a.Key())
		}
		c.byKey[a.Key()] = a
		c.adapters = append(c.adapters, a)
	}
	return c, nil
}

// MustChain is NewChain that panics on error.
func MustChain(adapters ...Adapter) *Chain {
	c, err := NewChain(adapters...)
	if err != nil {
		panic(err)
	}
	return c
}

// Keys returns the registered adapter keys in order.
func (c *Chain) Keys() []string {
	keys := make([]string, len(c.adapters))
	for i, a := range c.adapters {
		keys[i] = a.Key()
	}
	return keys
}

// Encode walks v and replaces every value an adapter accepts with a tagged
// map. Maps and slices of any are walked recursively.
func (c *Chain) Encode(v any) (any, error) {
	if c == nil {
		return v, nil
	}
	for _, a := range c.adapters {
		if !a.Test(v) {
			continue
		}
		out, err := a.ToSerializable(v)
		if err != nil {
			return nil, fmt.Errorf("codec: adapter %q: %w", a.Key(), err)
		}
		return map[string]any{tagPrefix + a.Key(): out}, nil
	}

	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range sortedKeys(t) {
			ev, err := c.Encode(t[k])
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			ev, err := c.Encode(item)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	default:
		return v, nil
	}
}

// Decode reverses Encode. A tagged map whose adapter is not registered is
// an error.
func (c *Chain) Decode(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			for k, inner := range t {
				if key, ok := strings.CutPrefix(k, tagPrefix); ok {
					return c.decodeTagged(key, inner)
				}
			}
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			dv, err := c.Decode(item)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			dv, err := c.Decode(item)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (c *Chain) decodeTagged(key string, v any) (any, error) {
	var a Adapter
	if c != nil {
		a = c.byKey[key]
	}
	if a == nil {
		return nil, fmt.Errorf("codec: no adapter registered for %q", key)
	}
	out, err := a.FromSerializable(v)
	if err != nil {
		return nil, fmt.Errorf("codec: adapter %q: %w", key, err)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// Built-in adapters
// =============================================================================

// Func builds an Adapter from functions.
type Func struct {
	Name string
	Is   func(v any) bool
	To   func(v any) (any, error)
	From func(v any) (any, error)
}

func (f Func) Key() string { return f.Name }
func (f Func) Test(v any) bool { return f.Is(v) }
func (f Func) ToSerializable(v any) (any, error) { return f.To(v) }
func (f Func) FromSerializable(v any) (any, error) { return f.From(v) }

// Time round-trips time.Time through an RFC 3339 string with nanoseconds.
func Time() Adapter {
	return Func{
		Name: "time",
		Is: func(v any) bool {
			_, ok := v.(time.Time)
			return ok
		},
		To: func(v any) (any, error) {
			return v.(time.Time).Format(time.RFC3339Nano), nil
		},
		From: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("want string, got %T", v)
			}
			return time.Parse(time.RFC3339Nano, s)
		},
	}
}

// Duration round-trips time.Duration through its String form.
func Duration() Adapter {
	return Func{
		Name: "duration",
		Is: func(v any) bool {
			_, ok := v.(time.Duration)
			return ok
		},
		To: func(v any) (any, error) {
			return v.(time.Duration).String(), nil
		},
		From: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("want string, got %T", v)
			}
			return time.ParseDuration(s)
		},
	}
}

// Default returns a chain with the built-in adapters.
func Default() *Chain {
	return MustChain(Time(), Duration())
}
