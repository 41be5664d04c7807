package router

// RouterStatus is the navigation state machine's position.
type RouterStatus string

const (
	StatusIdle       RouterStatus = "idle"
	StatusLoading    RouterStatus = "pending"
	StatusCommitting RouterStatus = "committing"
)

// State is a committed snapshot. Subscribers receive it by value; the
// Matches slice and its elements must be treated as read-only.
type State struct {
	Location Location
	Matches  []*Match

	// NotFound is set when the pathname matched nothing or a route
	// returned a NotFound.
	NotFound *NotFound

	// Error is a path error or a fatal redirect loop.
	Error error

	TransitionID string
	Seq          uint64
	Redirects    []string

	// ScrollKey is the scroll restoration key of Location.
	ScrollKey string

	// RouterContext is the base context every fold starts from.
	RouterContext map[string]any
}

// Leaf returns the last match, or nil.
func (s State) Leaf() *Match {
	if len(s.Matches) == 0 {
		return nil
	}
	return s.Matches[len(s.Matches)-1]
}

// Match returns the match for routeID.
func (s State) Match(routeID string) (*Match, bool) {
	for _, m := range s.Matches {
		if m.RouteID == routeID {
			return m, true
		}
	}
	return nil, false
}

// FullContext folds the router context and the contexts of matches 0..i.
func (s State) FullContext(i int) map[string]any {
	return foldContext(s.RouterContext, s.Matches, i)
}

// RenderedMatches drops the direct parent of every non-nested match, the
// layout it escapes. The root is always rendered.
func (s State) RenderedMatches() []*Match {
	skip := make(map[int]bool)
	for i, m := range s.Matches {
		if m.NonNested && i > 1 {
			skip[i-1] = true
		}
	}
	if len(skip) == 0 {
		return s.Matches
	}
	out := make([]*Match, 0, len(s.Matches)-len(skip))
	for i, m := range s.Matches {
		if !skip[i] {
			out = append(out, m)
		}
	}
	return out
}

// Pending reports whether any match is still pending.
func (s State) Pending() bool {
	for _, m := range s.Matches {
		if m.Status == StatusPending {
			return true
		}
	}
	return false
}

func foldContext(base map[string]any, matches []*Match, upto int) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i <= upto && i < len(matches); i++ {
		for k, v := range matches[i].Context {
			out[k] = v
		}
	}
	return out
}
