package search

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

// Type is the scalar type a Field coerces to.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	StringSlice
)

// Field declares one key accepted by a Defaults validator.
type Field struct {
	Type     Type
	Default  any
	Required bool
}

// MissingError reports a required key that was absent.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("search param %q is required", e.Key)
}

// CoerceError reports a value that could not be converted to its Field type.
type CoerceError struct {
	Key   string
	Value any
	Err   error
}

func (e *CoerceError) Error() string {
	return fmt.Sprintf("search param %q: cannot use %v: %v", e.Key, e.Value, e.Err)
}

func (e *CoerceError) Unwrap() error { return e.Err }

// Defaults returns a Validator that keeps only the declared keys, coerces
// each to its Type and fills in defaults for absent keys.
func Defaults(fields map[string]Field) Validator {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return ValidatorFunc(func(input Values) (Values, error) {
		out := Values{}
		for _, key := range keys {
			f := fields[key]
			raw, ok := input[key]
			if !ok || raw == nil {
				if f.Required {
					return nil, &MissingError{Key: key}
				}
				if f.Default != nil {
					out[key] = f.Default
				}
				continue
			}
			v, err := coerce(f.Type, raw)
			if err != nil {
				return nil, &CoerceError{Key: key, Value: raw, Err: err}
			}
			out[key] = v
		}
		return out, nil
	})
}

func coerce(t Type, v any) (any, error) {
	switch t {
	case Int:
		return cast.ToIntE(v)
	case Float:
		return cast.ToFloat64E(v)
	case Bool:
		return cast.ToBoolE(v)
	case StringSlice:
		return cast.ToStringSliceE(v)
	default:
		return cast.ToStringE(v)
	}
}
