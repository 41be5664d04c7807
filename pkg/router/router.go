package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/routekit/pkg/codec"
	"github.com/vango-dev/routekit/pkg/history"
	"github.com/vango-dev/routekit/pkg/loadercache"
)

// =============================================================================
// Options
// =============================================================================

const (
	// DefaultMaxRedirects caps a redirect chain.
	DefaultMaxRedirects = 10

	// DefaultPreloadMaxAge is how long preloaded data stays fresh.
	DefaultPreloadMaxAge = 30 * time.Second
)

// Option configures a Router.
type Option func(*Router)

// WithHistory sets the location store. Default: history.NewMemory().
func WithHistory(h history.History) Option {
	return func(r *Router) {
		r.history = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCache sets the loader cache, e.g. one built with telemetry hooks.
func WithCache(c *loadercache.Cache) Option {
	return func(r *Router) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithObserver installs metrics and tracing hooks.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		if o != nil {
			r.obs = o
		}
	}
}

// WithDefaultMaxAge sets how long loaded data stays fresh for routes that
// do not set MaxAge. The default, zero, keeps a match while it stays
// committed and reloads it when a navigation enters it again.
// loadercache.NeverExpires keeps data until invalidated.
func WithDefaultMaxAge(d time.Duration) Option {
	return func(r *Router) {
		r.defaultMaxAge = d
	}
}

// WithPreloadMaxAge sets how long preloaded data stays fresh.
func WithPreloadMaxAge(d time.Duration) Option {
	return func(r *Router) {
		r.preloadMaxAge = d
	}
}

// WithMaxRedirects sets the redirect hop limit.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// WithScrollKey sets the scroll restoration key function. By default the
// key is the history entry key.
func WithScrollKey(fn func(Location) string) Option {
	return func(r *Router) {
		r.scrollKey = fn
	}
}

// WithMasks registers route masks, tried in order.
func WithMasks(masks ...RouteMask) Option {
	return func(r *Router) {
		r.maskDecls = append(r.maskDecls, masks...)
	}
}

// WithCodec sets the adapter chain used by Dehydrate and Hydrate.
func WithCodec(c *codec.Chain) Option {
	return func(r *Router) {
		r.codec = c
	}
}

// WithRouterContext sets the base context every match context folds over.
func WithRouterContext(ctx map[string]any) Option {
	return func(r *Router) {
		r.routerContext = ctx
	}
}

// =============================================================================
// Router
// =============================================================================

// Router owns a route tree, a loader cache and the committed state.
type Router struct {
	tree    *Tree
	cache   *loadercache.Cache
	history history.History
	logger  *slog.Logger
	obs     Observer
	codec   *codec.Chain

	defaultMaxAge time.Duration
	preloadMaxAge time.Duration
	maxRedirects  int
	scrollKey     func(Location) string
	routerContext map[string]any
	maskDecls     []RouteMask
	masks         []*compiledMask

	mu      sync.Mutex
	state   State
	status  RouterStatus
	seq     uint64
	cancel  context.CancelFunc
	invalid map[string]bool
	loaded  bool
	subs    map[int]func(State)
	nextSub int

	// notifyMu serializes commits with their notifications so subscribers
	// see states in commit order.
	notifyMu sync.Mutex

	unlisten func()
}

// New creates a router over tree.
func New(tree *Tree, opts ...Option) (*Router, error) {
	if tree == nil {
		return nil, errors.New("router: nil tree")
	}
	r := &Router{
		tree:          tree,
		logger:        slog.Default().With("component", "router"),
		obs:           nopObserver{},
		preloadMaxAge: DefaultPreloadMaxAge,
		maxRedirects:  DefaultMaxRedirects,
		status:        StatusIdle,
		invalid:       make(map[string]bool),
		subs:          make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = loadercache.New()
	}
	if r.history == nil {
		r.history = history.NewMemory()
	}
	masks, err := compileMasks(r.maskDecls)
	if err != nil {
		return nil, err
	}
	r.masks = masks
	r.state.RouterContext = r.routerContext
	r.unlisten = r.history.Subscribe(r.onHistory)
	return r, nil
}

// Close stops listening to history and cancels any in-flight navigation.
func (r *Router) Close() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	if r.unlisten != nil {
		r.unlisten()
	}
}

// Tree returns the route tree.
func (r *Router) Tree() *Tree { return r.tree }

// Cache returns the loader cache.
func (r *Router) Cache() *loadercache.Cache { return r.cache }

// History returns the location store.
func (r *Router) History() history.History { return r.history }

// State returns the committed snapshot.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the state machine position.
func (r *Router) Status() RouterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Subscribe registers fn to receive every committed State, in commit
// order. fn runs on the committing goroutine and must not navigate
// synchronously. It returns a func that removes fn.
func (r *Router) Subscribe(fn func(State)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// MatchRoutes resolves href against the tree without loading or touching
// any state. Matches are pending unless validation failed.
func (r *Router) MatchRoutes(href string) ([]*Match, error) {
	loc := ParseLocation(href, nil)
	res, err := r.tree.Match(loc.Pathname)
	if err != nil {
		return nil, err
	}
	vals := validateChain(res.Chain, res.Params, loc.Search)
	return resolve(vals, nil, r.resolveOptions(false)), nil
}

// Invalidate marks committed matches for which filter returns true (all
// when nil) and their cache entries as stale. The next Load or navigation
// reloads them. It returns the number of committed matches marked.
func (r *Router) Invalidate(filter func(*Match) bool) int {
	r.mu.Lock()
	keys := make(map[string]bool)
	for _, m := range r.state.Matches {
		if filter == nil || filter(m) {
			keys[m.ID] = true
			r.invalid[m.ID] = true
		}
	}
	r.mu.Unlock()

	r.cache.Invalidate(func(e *loadercache.Entry) bool {
		return filter == nil || keys[e.Key]
	})
	r.logger.Debug("invalidated", "matches", len(keys))
	return len(keys)
}

// Load runs the current location again, reloading anything stale or
// invalidated. Before the first commit it loads the history location.
func (r *Router) Load(ctx context.Context) error {
	r.mu.Lock()
	loaded, loc := r.loaded, r.state.Location
	r.mu.Unlock()

	if !loaded {
		loc = r.locationFromHistory(r.history.Location(), true)
	}
	return r.transition(ctx, loc, navigation{action: actionNone})
}

// Preload loads to into the cache without committing. A navigation to the
// same location before the data expires commits without running loaders.
func (r *Router) Preload(ctx context.Context, to string, opts ...NavigateOption) error {
	loc, _, err := r.buildLocation(to, opts)
	if err != nil {
		return err
	}
	res, err := r.tree.Match(loc.Pathname)
	if err != nil {
		return err
	}
	vals := validateChain(res.Chain, res.Params, loc.Search)
	matches := resolve(vals, nil, r.resolveOptions(true))

	out, err := r.runPipeline(ctx, loc, matches, loadPreload)
	if err != nil {
		return err
	}
	if out.redirect != nil {
		r.logger.Debug("preload redirected", "href", loc.Href, "to", out.redirect.To)
		return nil
	}
	for _, m := range matches {
		if m.Status == StatusError {
			return m.Error
		}
	}
	return nil
}

func (r *Router) resolveOptions(preload bool) resolveOpts {
	r.mu.Lock()
	invalid := make(map[string]bool, len(r.invalid))
	for k := range r.invalid {
		invalid[k] = true
	}
	r.mu.Unlock()
	return resolveOpts{
		preload:       preload,
		now:           r.cache.Now(),
		invalid:       invalid,
		defaultMaxAge: r.defaultMaxAge,
		preloadMaxAge: r.preloadMaxAge,
	}
}

// onHistory reloads on back/forward. Push and replace come from commits.
func (r *Router) onHistory(loc history.Location, action history.Action) {
	if action != history.Pop {
		return
	}
	target := r.locationFromHistory(loc, false)
	if err := r.transition(context.Background(), target, navigation{action: actionNone, resetScroll: true}); err != nil && !errors.Is(err, ErrSuperseded) {
		r.logger.Warn("history navigation failed", "href", target.Href, "error", err)
	}
}
