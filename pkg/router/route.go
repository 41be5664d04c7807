package router

import (
	"context"
	"time"

	"github.com/vango-dev/routekit/pkg/search"
)

// Route declares one node of the route tree. Routes are plain values; build
// them into a Tree with NewTree.
//
//	root := &router.Route{Children: []*router.Route{
//		{Path: "posts", BeforeLoad: auth, Children: []*router.Route{
//			{Path: "$postId", Loader: loadPost},
//		}},
//	}}
type Route struct {
	// ID overrides the derived id. Required for pathless routes.
	ID string

	// Path is the segment pattern relative to the parent: "posts",
	// "$postId", "{-$lang}", "$", "post-{$id}.html", "/" for an index, or
	// "" for a pathless layout.
	Path string

	Children []*Route

	// CaseSensitive makes this route's literal segments match exactly.
	CaseSensitive bool

	// NonNested routes still inherit their parent's context, but the UI
	// should not render them inside the parent's layout.
	NonNested bool

	// ValidateSearch produces this route's strict search.
	ValidateSearch search.Validator

	// SearchMiddlewares rewrite search when building hrefs into this route.
	SearchMiddlewares []search.Middleware

	// ParseParams turns raw path params into typed values. The output is
	// layered over the raw strings by name.
	ParseParams ParamsFunc

	// LoaderDeps picks the values, usually from search, that make up the
	// loader cache key.
	LoaderDeps func(s search.Values) map[string]any

	BeforeLoad BeforeLoadFunc
	Loader     LoaderFunc

	// WaitForParent makes the loader wait for the parent loader and
	// receive its data.
	WaitForParent bool

	// ShouldReload, when set, decides whether the loader runs instead of
	// the MaxAge check. An invalidated entry always reloads. Matches of a
	// route with ShouldReload are never reused across navigations, so it
	// is asked on every load.
	ShouldReload func(args LoaderArgs) bool

	// OnEnter, OnStay and OnLeave run when a commit adds this route's
	// match, keeps it, or drops it. Matches are compared by ID, so a
	// params change leaves the old match and enters the new one. They run
	// on the committing goroutine and must not navigate synchronously.
	OnEnter func(m *Match)
	OnStay  func(m *Match)
	OnLeave func(m *Match)

	// MaxAge overrides the router default freshness of loaded data. Zero
	// inherits the default; loadercache.NeverExpires keeps data until
	// invalidated.
	MaxAge time.Duration

	// PreloadMaxAge overrides the router default for preloaded data.
	PreloadMaxAge time.Duration

	// StaleWhileRevalidate serves stale data and reloads in the
	// background.
	StaleWhileRevalidate bool

	// StaticData is opaque per-route data for the UI layer.
	StaticData map[string]any
}

// ParamsFunc parses raw params.
type ParamsFunc func(raw map[string]string) (map[string]any, error)

// Cause says why a match is being loaded.
type Cause string

const (
	CauseEnter   Cause = "enter"
	CauseStay    Cause = "stay"
	CausePreload Cause = "preload"
)

// BeforeLoadArgs is passed to BeforeLoad.
type BeforeLoadArgs struct {
	Location Location
	Params   map[string]any
	Search   search.Values

	// Context is the folded context of the router and all ancestors.
	Context map[string]any

	Cause   Cause
	Preload bool
}

// LoaderArgs is passed to Loader.
type LoaderArgs struct {
	Location Location
	Params   map[string]any
	Search   search.Values
	Deps     map[string]any

	// Context is the folded context including this route's beforeLoad.
	Context map[string]any

	// ParentData is the parent loader's data when WaitForParent is set.
	ParentData any

	Cause   Cause
	Preload bool
}

// BeforeLoadFunc runs root to leaf, one route at a time.
type BeforeLoadFunc func(ctx context.Context, args BeforeLoadArgs) Result

// LoaderFunc runs concurrently with sibling loaders.
type LoaderFunc func(ctx context.Context, args LoaderArgs) Result
