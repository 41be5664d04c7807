package router

import (
	"fmt"

	"github.com/vango-dev/routekit/pkg/search"
)

// validated is one node's validated slice of the location.
type validated struct {
	node *Node

	params    map[string]any
	rawParams map[string]string
	strict    search.Values
	search    search.Values
	err       error
}

// validateChain runs params parsers and search validators root to leaf.
//
// Each search validator sees the raw search overlaid with the parent's
// accumulated search and returns its strict search; the accumulated
// search is the parent's overlaid with that. Routes without a validator
// contribute nothing. Params layer by name. Once a node fails, it and
// every descendant carry the same error.
func validateChain(chain []*Node, raw map[string]string, rawSearch search.Values) []validated {
	out := make([]validated, len(chain))

	params := make(map[string]any, len(raw))
	for k, v := range raw {
		params[k] = v
	}
	acc := search.Values{}
	var failed error

	for i, n := range chain {
		v := validated{node: n, rawParams: raw}
		if failed != nil {
			v.err = failed
			v.params = params
			v.search = acc
			out[i] = v
			continue
		}

		if n.route.ParseParams != nil {
			parsed, err := callParams(n.route.ParseParams, raw)
			if err != nil {
				failed = &ValidationError{RouteID: n.id, Source: "params", Err: err}
			} else {
				next := make(map[string]any, len(params)+len(parsed))
				for k, pv := range params {
					next[k] = pv
				}
				for k, pv := range parsed {
					next[k] = pv
				}
				params = next
			}
		}

		if failed == nil && n.route.ValidateSearch != nil {
			strict, err := callSearch(n.route.ValidateSearch, search.Merge(rawSearch, acc))
			if err != nil {
				failed = &ValidationError{RouteID: n.id, Source: "search", Err: err}
			} else {
				v.strict = strict
				acc = search.Merge(acc, strict)
			}
		}

		v.params = params
		v.search = acc
		v.err = failed
		out[i] = v
	}
	return out
}

// callParams and callSearch turn validator panics into errors.
func callParams(fn ParamsFunc, raw map[string]string) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("params parser panicked: %v", r)
		}
	}()
	return fn(raw)
}

func callSearch(v search.Validator, in search.Values) (out search.Values, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search validator panicked: %v", r)
		}
	}()
	return v.Validate(in)
}
