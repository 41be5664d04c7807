package router

import (
	"github.com/vango-dev/routekit/pkg/history"
	"github.com/vango-dev/routekit/pkg/routepath"
	"github.com/vango-dev/routekit/pkg/search"
)

// Location is a parsed href.
type Location struct {
	// Href is Pathname plus the stringified Search and the Hash.
	Href     string
	Pathname string

	// Search is the parsed query; SearchStr is the raw query without "?".
	Search    search.Values
	SearchStr string

	Hash  string
	State history.State

	// MaskedLocation is what history shows instead of this location.
	MaskedLocation *Location

	// UnmaskOnReload drops the mask when the page is reloaded.
	UnmaskOnReload bool
}

// ParseLocation parses an href. The pathname is canonicalized; a
// malformed pathname is kept as given so matching can report it.
func ParseLocation(href string, state history.State) Location {
	p, q, h := routepath.SplitHref(href)
	if canon, err := routepath.Canonicalize(p); err == nil {
		p = canon.Path
	}
	loc := Location{
		Pathname:  p,
		SearchStr: q,
		Search:    search.Parse(q),
		Hash:      h,
		State:     state,
	}
	loc.Href = buildHref(p, q, h)
	return loc
}

// newLocation builds a Location from parts, stringifying search.
func newLocation(pathname string, s search.Values, hash string, state history.State) Location {
	qs := search.Stringify(s)
	return Location{
		Href:      buildHref(pathname, qs, hash),
		Pathname:  pathname,
		Search:    search.Clone(s),
		SearchStr: qs,
		Hash:      hash,
		State:     state,
	}
}

func buildHref(pathname, query, hash string) string {
	href := pathname
	if query != "" {
		href += "?" + query
	}
	if hash != "" {
		href += "#" + hash
	}
	return href
}

// Equal reports whether two locations have the same href.
func (l Location) Equal(o Location) bool {
	return l.Href == o.Href
}
