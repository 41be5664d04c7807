package search

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Validator turns raw search input into a route's strict search.
// Implementations must be pure: the same input yields the same output.
type Validator interface {
	Validate(input Values) (Values, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(input Values) (Values, error)

// Validate calls f(input).
func (f ValidatorFunc) Validate(input Values) (Values, error) {
	return f(input)
}

// TagName is the struct tag Struct and Decode read field names from.
const TagName = "search"

// FieldError describes one failed constraint.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value any
}

func (e FieldError) String() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s: failed %s", e.Field, e.Tag)
}

// FieldErrors is returned by Struct validators when constraints fail.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.String()
	}
	return "invalid search: " + strings.Join(parts, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func tagValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get(TagName), ",")
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Decode weakly decodes v into a T using `search` struct tags. Strings are
// coerced to numbers and bools, comma strings to slices.
func Decode[T any](v Values) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(v)); err != nil {
		return out, fmt.Errorf("decode search: %w", err)
	}
	return out, nil
}

// Struct returns a Validator backed by the struct type T. Input is decoded
// with Decode, checked against `validate` tags, then encoded back into
// Values keyed by the `search` tag names. Unknown keys are dropped.
//
//	type PostsSearch struct {
//		Page int    `search:"page" validate:"gte=1"`
//		Sort string `search:"sort,omitempty" validate:"omitempty,oneof=asc desc"`
//	}
//	route.ValidateSearch = search.Struct[PostsSearch]()
func Struct[T any]() Validator {
	return ValidatorFunc(func(input Values) (Values, error) {
		typed, err := Decode[T](input)
		if err != nil {
			return nil, err
		}
		if err := checkStruct(typed); err != nil {
			return nil, err
		}
		return encodeStruct(typed)
	})
}

func checkStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	err := tagValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}

func encodeStruct(v any) (Values, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: TagName,
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}
	return Values(out), nil
}
