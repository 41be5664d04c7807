package router

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/vango-dev/routekit/pkg/routepath"
	"github.com/vango-dev/routekit/pkg/search"
)

// Status is a match's loading state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusRedirected Status = "redirected"
	StatusNotFound   Status = "notFound"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Match is one route of a resolved chain. A committed Match is never
// mutated; the router swaps in new Matches instead.
type Match struct {
	// ID is the cache key: route id, interpolated path and a hash of the
	// loader deps.
	ID      string
	RouteID string

	// Pathname is this route's own interpolated full path.
	Pathname string

	Params    map[string]any
	RawParams map[string]string

	// Search is the accumulated validated search; StrictSearch is this
	// route's own validator output.
	Search       search.Values
	StrictSearch search.Values
	LoaderDeps   map[string]any

	Status     Status
	LoaderData any
	Error      error

	// Context is this match's own contribution. Use State.FullContext for
	// the folded view.
	Context map[string]any

	UpdatedAt time.Time
	MaxAge    time.Duration

	Preload   bool
	NonNested bool
	Cause     Cause

	// FromCache is set when data came from the loader cache without
	// running the loader.
	FromCache bool

	node *Node
}

// Node returns the route node.
func (m *Match) Node() *Node { return m.node }

// fresh reports whether a committed m can be reused at now. A zero MaxAge
// keeps m while it stays in the committed chain; its cache entry is
// already stale, so leaving and coming back reloads it.
func (m *Match) fresh(now time.Time) bool {
	switch {
	case m.MaxAge < 0:
		return false
	case m.MaxAge == 0:
		return true
	default:
		return now.Sub(m.UpdatedAt) < m.MaxAge
	}
}

func (m *Match) clone() *Match {
	cp := *m
	return &cp
}

// matchKey builds the cache key for node under raw params and deps.
func matchKey(n *Node, raw map[string]string, deps map[string]any) (key, pathname string) {
	pathname = routepath.Interpolate(n.full, raw).Path
	key = n.id + "|" + pathname
	if len(deps) > 0 {
		// json.Marshal sorts map keys, so equal deps hash equally.
		b, err := json.Marshal(deps)
		if err == nil {
			key += "|" + strconv.FormatUint(xxhash.Sum64(b), 16)
		}
	}
	return key, pathname
}

type resolveOpts struct {
	preload       bool
	now           time.Time
	invalid       map[string]bool
	defaultMaxAge time.Duration
	preloadMaxAge time.Duration
}

// resolve turns validated nodes into matches. The longest prefix of prev
// whose keys, strict search and freshness are unchanged is reused by
// pointer; the rest are new pending matches.
func resolve(vals []validated, prev []*Match, o resolveOpts) []*Match {
	prevIDs := make(map[string]bool, len(prev))
	for _, m := range prev {
		prevIDs[m.RouteID] = true
	}

	out := make([]*Match, len(vals))
	reusing := true
	for i, v := range vals {
		n := v.node
		var deps map[string]any
		if n.route.LoaderDeps != nil && v.err == nil {
			deps = n.route.LoaderDeps(v.search)
		}
		key, pathname := matchKey(n, v.rawParams, deps)

		if reusing && !o.preload && i < len(prev) && v.err == nil && n.route.ShouldReload == nil {
			p := prev[i]
			if p.ID == key && p.RouteID == n.id &&
				p.Status == StatusSuccess &&
				search.Equal(p.StrictSearch, v.strict) &&
				!o.invalid[key] &&
				p.fresh(o.now) {
				out[i] = p
				continue
			}
		}
		reusing = false

		cause := CauseEnter
		switch {
		case o.preload:
			cause = CausePreload
		case prevIDs[n.id]:
			cause = CauseStay
		}

		m := &Match{
			ID:           key,
			RouteID:      n.id,
			Pathname:     pathname,
			Params:       v.params,
			RawParams:    v.rawParams,
			Search:       v.search,
			StrictSearch: v.strict,
			LoaderDeps:   deps,
			Status:       StatusPending,
			MaxAge:       maxAgeFor(n.route, o),
			Preload:      o.preload,
			NonNested:    n.route.NonNested,
			Cause:        cause,
			node:         n,
		}
		if v.err != nil {
			m.Status = StatusError
			m.Error = v.err
		}
		out[i] = m
	}
	return out
}

func maxAgeFor(r *Route, o resolveOpts) time.Duration {
	if o.preload {
		if r.PreloadMaxAge != 0 {
			return r.PreloadMaxAge
		}
		return o.preloadMaxAge
	}
	if r.MaxAge != 0 {
		return r.MaxAge
	}
	return o.defaultMaxAge
}
