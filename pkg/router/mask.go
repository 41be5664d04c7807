package router

import (
	"fmt"

	"github.com/vango-dev/routekit/pkg/history"
	"github.com/vango-dev/routekit/pkg/routepath"
	"github.com/vango-dev/routekit/pkg/search"
)

// History state keys used to carry a masked location's real href.
const (
	TempLocationKey   = "__tempLocation"
	UnmaskOnReloadKey = "__unmaskOnReload"
)

// RouteMask shows To in history while From is loaded. The first mask whose
// From matches a built location applies.
type RouteMask struct {
	From string
	To   string

	// Params maps the params matched by From to the params of To. When
	// nil the matched params are used as is.
	Params func(matched map[string]string) map[string]string

	// DropParams interpolates To with no params at all.
	DropParams bool

	// OverrideParams are laid over the params after Params.
	OverrideParams map[string]string

	Search search.Values
	Hash   string
	State  history.State

	// UnmaskOnReload makes a reload load the masked href instead of the
	// real one.
	UnmaskOnReload bool
}

type compiledMask struct {
	RouteMask
	from []routepath.Segment
	to   []routepath.Segment
}

func compileMasks(masks []RouteMask) ([]*compiledMask, error) {
	out := make([]*compiledMask, 0, len(masks))
	for i, m := range masks {
		from, err := routepath.ParsePattern(m.From)
		if err != nil {
			return nil, fmt.Errorf("route mask %d: from %q: %w", i, m.From, err)
		}
		to, err := routepath.ParsePattern(m.To)
		if err != nil {
			return nil, fmt.Errorf("route mask %d: to %q: %w", i, m.To, err)
		}
		out = append(out, &compiledMask{RouteMask: m, from: from, to: to})
	}
	return out, nil
}

// params resolves the params To is interpolated with.
func (m *compiledMask) params(matched map[string]string) map[string]string {
	var out map[string]string
	switch {
	case m.DropParams:
		out = map[string]string{}
	case m.Params != nil:
		out = m.Params(matched)
	default:
		out = matched
	}
	if len(m.OverrideParams) == 0 {
		return out
	}
	merged := make(map[string]string, len(out)+len(m.OverrideParams))
	for k, v := range out {
		merged[k] = v
	}
	for k, v := range m.OverrideParams {
		merged[k] = v
	}
	return merged
}

// apply builds the displayed location for loc, which From matched with
// matched params.
func (m *compiledMask) apply(matched map[string]string) (*Location, error) {
	res := routepath.Interpolate(m.to, m.params(matched))
	if res.Missing {
		return nil, fmt.Errorf("route mask %s -> %s: missing params", m.From, m.To)
	}
	masked := newLocation(res.Path, m.Search, m.Hash, cloneState(m.State))
	return &masked, nil
}

// findMask returns the displayed location of the first mask matching
// pathname, or nil, and whether that mask unmasks on reload.
func (r *Router) findMask(pathname string) (*Location, bool, error) {
	for _, m := range r.masks {
		matched, ok := matchPattern(m.from, pathname, r.tree.caseSensitive)
		if !ok {
			continue
		}
		masked, err := m.apply(matched)
		return masked, m.UnmaskOnReload, err
	}
	return nil, false, nil
}

// maskFromOption builds the displayed location for an explicit WithMask.
func (r *Router) maskFromOption(rm *RouteMask, matched map[string]string) (*Location, error) {
	to, err := routepath.ParsePattern(rm.To)
	if err != nil {
		return nil, fmt.Errorf("mask to %q: %w", rm.To, err)
	}
	cm := &compiledMask{RouteMask: *rm, to: to}
	return cm.apply(matched)
}
