package search

import "reflect"

// Middleware rewrites the search of a location being built. current is the
// search of the location navigated from; next produces the search the
// remaining chain would build.
type Middleware func(current Values, next func(Values) Values) Values

// Run applies mws to current, outermost first. build produces the
// destination search from whatever current value reaches it.
func Run(current Values, mws []Middleware, build func(Values) Values) Values {
	var call func(i int, v Values) Values
	call = func(i int, v Values) Values {
		if i == len(mws) {
			return build(v)
		}
		return mws[i](v, func(nv Values) Values { return call(i+1, nv) })
	}
	return call(0, current)
}

// Retain copies keys from the current search into the result when the
// destination does not set them. With no keys every current key is
// retained.
func Retain(keys ...string) Middleware {
	return func(current Values, next func(Values) Values) Values {
		result := Clone(next(current))
		if len(keys) == 0 {
			for k, v := range current {
				if _, ok := result[k]; !ok {
					result[k] = v
				}
			}
			return result
		}
		for _, k := range keys {
			if _, ok := result[k]; ok {
				continue
			}
			if v, ok := current[k]; ok {
				result[k] = v
			}
		}
		return result
	}
}

// Strip removes keys whose value equals the given default, keeping URLs
// short when a param is at its default.
func Strip(defaults Values) Middleware {
	return func(current Values, next func(Values) Values) Values {
		result := Clone(next(current))
		for k, def := range defaults {
			if v, ok := result[k]; ok && reflect.DeepEqual(v, def) {
				delete(result, k)
			}
		}
		return result
	}
}

// StripKeys removes the named keys from the result. With no keys the
// result is emptied.
func StripKeys(keys ...string) Middleware {
	return func(current Values, next func(Values) Values) Values {
		result := next(current)
		if len(keys) == 0 {
			return Values{}
		}
		result = Clone(result)
		for _, k := range keys {
			delete(result, k)
		}
		return result
	}
}
