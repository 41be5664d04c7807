package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/routekit/pkg/history"
	"github.com/vango-dev/routekit/pkg/routepath"
	"github.com/vango-dev/routekit/pkg/search"
)

// ErrAbsoluteURL is returned when navigating to an href with a scheme or
// host.
var ErrAbsoluteURL = errors.New("absolute URLs are not routable")

// NavigateOption configures a navigation.
type NavigateOption func(*navOptions)

type navOptions struct {
	replace  bool
	noScroll bool
	from     string
	params   map[string]string

	search    search.Values
	searchSet bool
	searchFn  func(current search.Values) search.Values

	hash    string
	hashSet bool
	state   history.State
	mask    *RouteMask
}

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *navOptions) {
		o.replace = true
	}
}

// WithoutScroll keeps the scroll position.
func WithoutScroll() NavigateOption {
	return func(o *navOptions) {
		o.noScroll = true
	}
}

// WithParams sets the params interpolated into a pattern target such as
// "/posts/$postId".
func WithParams(params map[string]string) NavigateOption {
	return func(o *navOptions) {
		if len(params) == 0 {
			return
		}
		if o.params == nil {
			o.params = make(map[string]string, len(params))
		}
		for k, v := range params {
			o.params[k] = v
		}
	}
}

// WithSearch sets the destination search, replacing any query in the
// target href.
func WithSearch(v search.Values) NavigateOption {
	return func(o *navOptions) {
		o.search, o.searchSet = v, true
		o.searchFn = nil
	}
}

// WithSearchFunc derives the destination search from the current one.
func WithSearchFunc(fn func(current search.Values) search.Values) NavigateOption {
	return func(o *navOptions) {
		o.searchFn = fn
	}
}

// WithHash sets the fragment, without "#".
func WithHash(hash string) NavigateOption {
	return func(o *navOptions) {
		o.hash, o.hashSet = strings.TrimPrefix(hash, "#"), true
	}
}

// WithState attaches history state.
func WithState(s history.State) NavigateOption {
	return func(o *navOptions) {
		o.state = s
	}
}

// WithMask displays a different location in history.
func WithMask(m RouteMask) NavigateOption {
	return func(o *navOptions) {
		o.mask = &m
	}
}

// WithFrom sets the pathname relative targets resolve against. Default:
// the committed pathname.
func WithFrom(pathname string) NavigateOption {
	return func(o *navOptions) {
		o.from = pathname
	}
}

// Navigate loads to and commits it, pushing a history entry. It returns
// ErrSuperseded if another navigation started first and ctx's error if
// ctx ends. A notFound or failed route is committed, not returned; a
// redirect loop is committed and returned.
func (r *Router) Navigate(ctx context.Context, to string, opts ...NavigateOption) error {
	loc, o, err := r.buildLocation(to, opts)
	if err != nil {
		return err
	}
	nav := navigation{action: actionPush, resetScroll: !o.noScroll}
	if o.replace {
		nav.action = actionReplace
	}
	return r.transition(ctx, loc, nav)
}

// BuildLocation resolves to and opts into the location Navigate would
// load, without loading it.
func (r *Router) BuildLocation(to string, opts ...NavigateOption) (Location, error) {
	loc, _, err := r.buildLocation(to, opts)
	return loc, err
}

func (r *Router) buildLocation(to string, opts []NavigateOption) (Location, *navOptions, error) {
	o := &navOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if routepath.IsAbsoluteURL(to) {
		return Location{}, o, fmt.Errorf("%w: %s", ErrAbsoluteURL, to)
	}

	cur := r.State().Location
	from := o.from
	if from == "" {
		from = cur.Pathname
	}
	if from == "" {
		from = "/"
	}

	p, q, h := routepath.SplitHref(to)
	pathname := from
	if p != "" {
		pathname = routepath.Resolve(from, p)
	}
	if strings.ContainsAny(pathname, "${") {
		segs, err := routepath.ParsePattern(pathname)
		if err != nil {
			return Location{}, o, err
		}
		res := routepath.Interpolate(segs, o.params)
		if res.Missing {
			return Location{}, o, fmt.Errorf("navigate to %s: missing params", to)
		}
		pathname = res.Path
	}

	dest := search.Parse(q)
	build := func(current search.Values) search.Values {
		switch {
		case o.searchFn != nil:
			return o.searchFn(search.Clone(current))
		case o.searchSet:
			return o.search
		default:
			return dest
		}
	}
	s := search.Run(cur.Search, r.searchMiddlewares(pathname), build)

	hash := h
	if o.hashSet {
		hash = o.hash
	}
	loc := newLocation(pathname, s, hash, cloneState(o.state))

	var (
		masked *Location
		err    error
	)
	if o.mask != nil {
		masked, err = r.maskFromOption(o.mask, o.params)
		loc.UnmaskOnReload = o.mask.UnmaskOnReload
	} else {
		masked, loc.UnmaskOnReload, err = r.findMask(pathname)
	}
	if err != nil {
		return Location{}, o, err
	}
	loc.MaskedLocation = masked
	return loc, o, nil
}

// searchMiddlewares collects the search middlewares of the chain that
// pathname matches, root first.
func (r *Router) searchMiddlewares(pathname string) []search.Middleware {
	res, err := r.tree.Match(pathname)
	if err != nil {
		return nil
	}
	var mws []search.Middleware
	for _, n := range res.Chain {
		mws = append(mws, n.route.SearchMiddlewares...)
	}
	return mws
}
