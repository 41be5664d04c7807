package router

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// ParamsInto returns a ParamsFunc that fills a T from raw params using
// `param` struct tags, then returns the fields as a map keyed by tag.
//
//	type PostParams struct {
//		PostID int `param:"postId"`
//	}
//	route.ParseParams = router.ParamsInto[PostParams]()
func ParamsInto[T any]() ParamsFunc {
	return func(raw map[string]string) (map[string]any, error) {
		var target T
		if err := DecodeParams(raw, &target); err != nil {
			return nil, err
		}
		out := make(map[string]any)
		v := reflect.ValueOf(target)
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			name := t.Field(i).Tag.Get("param")
			if name == "" {
				continue
			}
			if _, ok := raw[name]; !ok {
				continue
			}
			out[name] = v.Field(i).Interface()
		}
		return out, nil
	}
}

// DecodeParams populates a struct with values from the params map.
// The target must be a pointer to a struct with `param` tags.
func DecodeParams(params map[string]string, target any) error {
	if target == nil {
		return nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer, got %s", v.Kind())
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("param")
		if name == "" {
			continue
		}

		value, ok := params[name]
		if !ok {
			continue
		}

		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if err := setField(fv, value); err != nil {
			return fmt.Errorf("parsing param %q: %w", name, err)
		}
	}

	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(value)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		// Splat values: "a/b/c" → ["a", "b", "c"]
		var parts []string
		if value != "" {
			parts = strings.Split(value, "/")
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}

	return nil
}

// IntParams parses the named params as integers.
func IntParams(names ...string) ParamsFunc {
	types := make(map[string]string, len(names))
	for _, n := range names {
		types[n] = "int"
	}
	return TypedParams(types)
}

// TypedParams parses params by declared type name: int, uint, float,
// bool, uuid or string. Unlisted params are left as strings.
func TypedParams(types map[string]string) ParamsFunc {
	return func(raw map[string]string) (map[string]any, error) {
		out := make(map[string]any, len(types))
		for name, typ := range types {
			value, ok := raw[name]
			if !ok {
				continue
			}
			v, err := ParseParam(value, typ)
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", name, err)
			}
			out[name] = v
		}
		return out, nil
	}
}

// ParseParam converts one value to the named type.
func ParseParam(value, paramType string) (any, error) {
	switch paramType {
	case "int", "int64":
		n, err := cast.ToInt64E(value)
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %s", value)
		}
		if paramType == "int" {
			return int(n), nil
		}
		return n, nil
	case "uint", "uint64":
		n, err := cast.ToUint64E(value)
		if err != nil {
			return nil, fmt.Errorf("invalid unsigned integer: %s", value)
		}
		return n, nil
	case "float", "float64":
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("invalid float: %s", value)
		}
		return n, nil
	case "bool":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean: %s", value)
		}
		return b, nil
	case "uuid":
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID: %s", value)
		}
		return id.String(), nil
	case "string", "":
		return value, nil
	default:
		return nil, fmt.Errorf("unknown param type %q", paramType)
	}
}
