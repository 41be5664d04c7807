package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/routekit/pkg/history"
	"github.com/vango-dev/routekit/pkg/loadercache"
	"github.com/vango-dev/routekit/pkg/search"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// postsTree is root -> posts -> posts/$postId. posts contributes
// {source: cache} to the context; the leaf loader reads it.
func postsTree(loads *atomic.Int32) *Tree {
	return MustTree(&Route{Children: []*Route{
		{
			Path: "posts",
			BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
				return Ok(map[string]any{"source": "cache"})
			},
			Children: []*Route{
				{
					Path: "$postId",
					Loader: func(ctx context.Context, args LoaderArgs) Result {
						loads.Add(1)
						return Data(fmt.Sprintf("post %v via %v", args.Params["postId"], args.Context["source"]))
					},
				},
			},
		},
		{Path: "about"},
	}})
}

func newRouter(t *testing.T, tree *Tree, opts ...Option) *Router {
	t.Helper()
	r, err := New(tree, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestNavigatePostsContext(t *testing.T) {
	var loads atomic.Int32
	r := newRouter(t, postsTree(&loads))

	require.NoError(t, r.Navigate(context.Background(), "/posts/42"))

	st := r.State()
	require.Len(t, st.Matches, 3)
	assert.Equal(t, []string{RootID, "/posts", "/posts/$postId"}, []string{
		st.Matches[0].RouteID, st.Matches[1].RouteID, st.Matches[2].RouteID,
	})

	leaf := st.Leaf()
	assert.Equal(t, StatusSuccess, leaf.Status)
	assert.Equal(t, "42", leaf.Params["postId"])
	assert.Equal(t, "post 42 via cache", leaf.LoaderData)
	assert.Equal(t, "cache", st.FullContext(2)["source"])
	assert.Nil(t, leaf.Context)
	assert.Equal(t, map[string]any{"source": "cache"}, st.Matches[1].Context)

	assert.Equal(t, "/posts/42", st.Location.Href)
	assert.Equal(t, "/posts/42", r.History().Location().Href)
	assert.Equal(t, StatusIdle, r.Status())
	assert.NotEmpty(t, st.TransitionID)
	assert.Equal(t, int32(1), loads.Load())
}

func TestNavigateSameLocationReusesMatches(t *testing.T) {
	var loads atomic.Int32
	r := newRouter(t, postsTree(&loads))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/posts/42"))
	first := r.State()
	require.NoError(t, r.Navigate(ctx, "/posts/42"))
	second := r.State()

	require.Len(t, second.Matches, 3)
	for i := range first.Matches {
		assert.Same(t, first.Matches[i], second.Matches[i])
	}
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 2, r.History().(*history.Memory).Len(), "same href replaces")
	assert.Greater(t, second.Seq, first.Seq)
}

func TestSearchChangeKeepsAncestorIdentity(t *testing.T) {
	var loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path: "a",
			ValidateSearch: search.Defaults(map[string]search.Field{
				"x": {Type: search.Int, Default: 0},
			}),
			LoaderDeps: func(s search.Values) map[string]any {
				return map[string]any{"x": s["x"]}
			},
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				loads.Add(1)
				return Data(args.Deps["x"])
			},
		},
	}})
	r := newRouter(t, tree)
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/a"))
	before := r.State()
	assert.Equal(t, 0, before.Leaf().Search["x"])
	assert.Equal(t, 0, before.Leaf().LoaderData)

	require.NoError(t, r.Navigate(ctx, "/a?x=1"))
	after := r.State()
	assert.Equal(t, 1, after.Leaf().Search["x"])
	assert.Equal(t, 1, after.Leaf().LoaderData)

	assert.Same(t, before.Matches[0], after.Matches[0])
	assert.NotSame(t, before.Leaf(), after.Leaf())
	assert.NotEqual(t, before.Leaf().ID, after.Leaf().ID)
	assert.Equal(t, CauseStay, after.Leaf().Cause)
	assert.Equal(t, int32(2), loads.Load())

	t.Run("validating twice is idempotent", func(t *testing.T) {
		res, err := tree.Match("/a")
		require.NoError(t, err)
		raw := search.Parse("x=3")
		v1 := validateChain(res.Chain, res.Params, raw)
		v2 := validateChain(res.Chain, res.Params, raw)
		assert.Equal(t, v1[1].search, v2[1].search)
		assert.Equal(t, search.Values{"x": 3}, v1[1].strict)
	})
}

func TestLoaderMaxAge(t *testing.T) {
	clk := newFakeClock()
	var loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path:   "p",
			MaxAge: 10 * time.Second,
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				return Data(loads.Add(1))
			},
		},
		{Path: "other"},
	}})
	r := newRouter(t, tree, WithCache(loadercache.New(loadercache.WithClock(clk.Now))))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/p"))
	assert.Equal(t, int32(1), loads.Load())

	clk.Advance(5 * time.Second)
	require.NoError(t, r.Navigate(ctx, "/other"))
	require.NoError(t, r.Navigate(ctx, "/p"))
	assert.Equal(t, int32(1), loads.Load(), "within max age")
	assert.True(t, r.State().Leaf().FromCache)

	clk.Advance(6 * time.Second)
	require.NoError(t, r.Navigate(ctx, "/p"))
	assert.Equal(t, int32(2), loads.Load(), "expired")
	assert.Equal(t, int32(2), r.State().Leaf().LoaderData)
	assert.False(t, r.State().Leaf().FromCache)
}

func TestAlwaysStaleReloadsEveryNavigation(t *testing.T) {
	var loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{Path: "p", Loader: func(ctx context.Context, args LoaderArgs) Result {
			loads.Add(1)
			return Data("x")
		}},
	}})
	r := newRouter(t, tree, WithDefaultMaxAge(loadercache.AlwaysStale))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/p"))
	require.NoError(t, r.Navigate(ctx, "/p"))
	assert.Equal(t, int32(2), loads.Load())
}

func TestStaleWhileRevalidate(t *testing.T) {
	clk := newFakeClock()
	var loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path:                 "p",
			MaxAge:               time.Second,
			StaleWhileRevalidate: true,
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				return Data(loads.Add(1))
			},
		},
	}})
	cache := loadercache.New(loadercache.WithClock(clk.Now))
	r := newRouter(t, tree, WithCache(cache))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/p"))
	clk.Advance(2 * time.Second)
	require.NoError(t, r.Navigate(ctx, "/p"))

	leaf := r.State().Leaf()
	assert.Equal(t, int32(1), leaf.LoaderData, "stale data served")
	assert.True(t, leaf.FromCache)
	assert.Eventually(t, func() bool { return loads.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestNavigationRace(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	tree := MustTree(&Route{Children: []*Route{
		{Path: "slow/$id", Loader: func(ctx context.Context, args LoaderArgs) Result {
			if args.Params["id"] == "a" {
				close(started)
				<-release
			}
			return Data("data " + args.Params["id"].(string))
		}},
	}})
	r := newRouter(t, tree)

	errA := make(chan error, 1)
	go func() {
		errA <- r.Navigate(context.Background(), "/slow/a")
	}()
	<-started

	require.NoError(t, r.Navigate(context.Background(), "/slow/b"))
	assert.ErrorIs(t, <-errA, ErrSuperseded)

	close(release)
	assert.Eventually(t, func() bool {
		_, ok := r.Cache().Get("/slow/$id|/slow/a")
		return ok
	}, time.Second, 5*time.Millisecond, "superseded loader still writes the cache")

	st := r.State()
	assert.Equal(t, "/slow/b", st.Location.Pathname)
	assert.Equal(t, "data b", st.Leaf().LoaderData)
	assert.Equal(t, "/slow/b", r.History().Location().Href)
}

func TestSupersededByNavigationToSameLocation(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 2)
	tree := MustTree(&Route{Children: []*Route{
		{Path: "slow", Loader: func(ctx context.Context, args LoaderArgs) Result {
			calls.Add(1)
			select {
			case started <- struct{}{}:
			default:
			}
			select {
			case <-ctx.Done():
				return Fail(ctx.Err())
			case <-time.After(50 * time.Millisecond):
				return Data("slow")
			}
		}},
	}})
	r := newRouter(t, tree)

	errA := make(chan error, 1)
	go func() {
		errA <- r.Navigate(context.Background(), "/slow")
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, r.Navigate(context.Background(), "/slow"))
	assert.ErrorIs(t, <-errA, ErrSuperseded)

	leaf := r.State().Leaf()
	assert.Equal(t, StatusSuccess, leaf.Status, "error: %v", leaf.Error)
	assert.Equal(t, "slow", leaf.LoaderData)
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestPreloadCancelledWhileNavigationWaits(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{Path: "p", Loader: func(ctx context.Context, args LoaderArgs) Result {
			if calls.Add(1) == 1 {
				close(started)
			}
			select {
			case <-ctx.Done():
				return Fail(ctx.Err())
			case <-release:
				return Data("p")
			}
		}},
	}})
	r := newRouter(t, tree, WithPreloadMaxAge(0))

	pctx, cancelPreload := context.WithCancel(context.Background())
	preloaded := make(chan error, 1)
	go func() {
		preloaded <- r.Preload(pctx, "/p")
	}()
	<-started

	navigated := make(chan error, 1)
	go func() {
		navigated <- r.Navigate(context.Background(), "/p")
	}()
	time.Sleep(20 * time.Millisecond)
	cancelPreload()
	assert.ErrorIs(t, <-preloaded, context.Canceled)

	close(release)
	require.NoError(t, <-navigated)
	assert.Equal(t, "p", r.State().Leaf().LoaderData)
}

func TestNavigateCallerCancellation(t *testing.T) {
	tree := MustTree(&Route{Children: []*Route{
		{Path: "slow", Loader: func(ctx context.Context, args LoaderArgs) Result {
			<-ctx.Done()
			return Fail(ctx.Err())
		}},
	}})
	r := newRouter(t, tree)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Navigate(ctx, "/slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, r.State().TransitionID)
	assert.Equal(t, StatusIdle, r.Status())
}

func TestRedirect(t *testing.T) {
	tree := MustTree(&Route{Children: []*Route{
		{Path: "old", BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
			return RedirectTo("/new")
		}},
		{Path: "gone", Loader: func(ctx context.Context, args LoaderArgs) Result {
			return Fail(&Redirect{To: "/new", Replace: true})
		}},
		{Path: "new"},
	}})

	t.Run("push", func(t *testing.T) {
		r := newRouter(t, tree)
		require.NoError(t, r.Navigate(context.Background(), "/old"))

		st := r.State()
		assert.Equal(t, "/new", st.Location.Pathname)
		assert.Equal(t, []string{"/old"}, st.Redirects)
		assert.Equal(t, "/new", r.History().Location().Href)
		assert.Equal(t, 2, r.History().(*history.Memory).Len())
	})

	t.Run("replace from loader error", func(t *testing.T) {
		r := newRouter(t, tree)
		require.NoError(t, r.Navigate(context.Background(), "/gone"))

		assert.Equal(t, "/new", r.State().Location.Pathname)
		assert.Equal(t, 1, r.History().(*history.Memory).Len())
	})
}

func TestRedirectLoop(t *testing.T) {
	var calls atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{Path: "loop", BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
			calls.Add(1)
			return RedirectTo("/loop")
		}},
	}})
	r := newRouter(t, tree, WithMaxRedirects(5))

	err := r.Navigate(context.Background(), "/loop")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRedirectLoop)

	var le *LoaderError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, PhaseRedirect, le.Phase)
	assert.Equal(t, "/loop", le.RouteID)
	assert.Equal(t, "R005", Describe(err).Code)

	st := r.State()
	assert.Len(t, st.Redirects, 5)
	assert.ErrorIs(t, st.Error, ErrRedirectLoop)
	assert.Equal(t, StatusError, st.Leaf().Status)
	assert.Equal(t, int32(6), calls.Load())
}

func TestNotFound(t *testing.T) {
	var loads atomic.Int32

	t.Run("no route", func(t *testing.T) {
		r := newRouter(t, postsTree(&loads))
		require.NoError(t, r.Navigate(context.Background(), "/nowhere"))

		st := r.State()
		require.Len(t, st.Matches, 1)
		assert.Equal(t, RootID, st.Matches[0].RouteID)
		require.NotNil(t, st.NotFound)
		assert.Equal(t, RootID, st.NotFound.RouteID)
		assert.ErrorIs(t, st.Error, ErrNoMatch)
	})

	t.Run("malformed path", func(t *testing.T) {
		r := newRouter(t, postsTree(&loads))
		require.NoError(t, r.Navigate(context.Background(), "/posts/%zz"))

		var pe *PathError
		require.True(t, errors.As(r.State().Error, &pe))
		assert.Equal(t, KindBadRequest, pe.Kind)
	})

	t.Run("from loader", func(t *testing.T) {
		tree := MustTree(&Route{Children: []*Route{
			{Path: "posts", Children: []*Route{
				{Path: "$postId", Loader: func(ctx context.Context, args LoaderArgs) Result {
					return NotFoundResult(&NotFound{Data: args.Params["postId"]})
				}},
			}},
		}})
		r := newRouter(t, tree)
		require.NoError(t, r.Navigate(context.Background(), "/posts/9"))

		st := r.State()
		assert.Equal(t, StatusSuccess, st.Matches[1].Status)
		assert.Equal(t, StatusNotFound, st.Leaf().Status)
		require.NotNil(t, st.NotFound)
		assert.Equal(t, "/posts/$postId", st.NotFound.RouteID)
		assert.Equal(t, "9", st.NotFound.Data)
	})
}

func TestLoaderErrorCascades(t *testing.T) {
	boom := errors.New("boom")
	var childLoads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path: "p",
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				return Fail(boom)
			},
			Children: []*Route{
				{Path: "c", WaitForParent: true, Loader: func(ctx context.Context, args LoaderArgs) Result {
					childLoads.Add(1)
					return Data("child")
				}},
			},
		},
	}})
	r := newRouter(t, tree)
	require.NoError(t, r.Navigate(context.Background(), "/p/c"))

	st := r.State()
	require.Len(t, st.Matches, 3)
	assert.Equal(t, StatusSuccess, st.Matches[0].Status)
	assert.Equal(t, StatusError, st.Matches[1].Status)
	assert.Equal(t, StatusError, st.Matches[2].Status)
	assert.ErrorIs(t, st.Matches[2].Error, boom)

	var le *LoaderError
	require.True(t, errors.As(st.Matches[1].Error, &le))
	assert.Equal(t, PhaseLoader, le.Phase)
	assert.Equal(t, "/p", le.RouteID)
	assert.Zero(t, childLoads.Load(), "child waits for parent and never runs")
}

func TestWaitForParentReceivesData(t *testing.T) {
	tree := MustTree(&Route{Children: []*Route{
		{
			Path: "p",
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				time.Sleep(10 * time.Millisecond)
				return Data("parent")
			},
			Children: []*Route{
				{Path: "c", WaitForParent: true, Loader: func(ctx context.Context, args LoaderArgs) Result {
					return Data("child of " + args.ParentData.(string))
				}},
			},
		},
	}})
	r := newRouter(t, tree)
	require.NoError(t, r.Navigate(context.Background(), "/p/c"))
	assert.Equal(t, "child of parent", r.State().Leaf().LoaderData)
}

func TestBeforeLoadFailureSkipsLoaders(t *testing.T) {
	var loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path: "guard",
			BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
				return Fail(errors.New("denied"))
			},
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				loads.Add(1)
				return Data(nil)
			},
		},
	}})
	r := newRouter(t, tree)
	require.NoError(t, r.Navigate(context.Background(), "/guard"))

	leaf := r.State().Leaf()
	assert.Equal(t, StatusError, leaf.Status)
	var le *LoaderError
	require.True(t, errors.As(leaf.Error, &le))
	assert.Equal(t, PhaseBeforeLoad, le.Phase)
	assert.Zero(t, loads.Load())
}

func TestLoaderPanicBecomesError(t *testing.T) {
	tree := MustTree(&Route{Children: []*Route{
		{Path: "p", Loader: func(ctx context.Context, args LoaderArgs) Result {
			panic("kaboom")
		}},
	}})
	r := newRouter(t, tree)
	require.NoError(t, r.Navigate(context.Background(), "/p"))

	leaf := r.State().Leaf()
	assert.Equal(t, StatusError, leaf.Status)
	assert.Contains(t, leaf.Error.Error(), "loader panicked: kaboom")
}

func TestSearchValidationError(t *testing.T) {
	var loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path: "list",
			ValidateSearch: search.Defaults(map[string]search.Field{
				"page": {Type: search.Int, Required: true},
			}),
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				loads.Add(1)
				return Data(nil)
			},
		},
	}})
	r := newRouter(t, tree)
	require.NoError(t, r.Navigate(context.Background(), "/list"))

	leaf := r.State().Leaf()
	assert.Equal(t, StatusError, leaf.Status)
	var ve *ValidationError
	require.True(t, errors.As(leaf.Error, &ve))
	assert.Equal(t, "search", ve.Source)
	assert.Equal(t, "R003", Describe(leaf.Error).Code)
	assert.Zero(t, loads.Load())

	require.NoError(t, r.Navigate(context.Background(), "/list?page=2"))
	assert.Equal(t, StatusSuccess, r.State().Leaf().Status)
	assert.Equal(t, int32(1), loads.Load())
}

func TestParamsParsingFeedsLoaders(t *testing.T) {
	type postParams struct {
		PostID int `param:"postId"`
	}
	tree := MustTree(&Route{Children: []*Route{
		{Path: "posts/$postId", ParseParams: ParamsInto[postParams](), Loader: func(ctx context.Context, args LoaderArgs) Result {
			return Data(args.Params["postId"].(int) * 2)
		}},
	}})
	r := newRouter(t, tree)

	require.NoError(t, r.Navigate(context.Background(), "/posts/21"))
	leaf := r.State().Leaf()
	assert.Equal(t, 42, leaf.LoaderData)
	assert.Equal(t, "21", leaf.RawParams["postId"])

	require.NoError(t, r.Navigate(context.Background(), "/posts/abc"))
	var ve *ValidationError
	require.True(t, errors.As(r.State().Leaf().Error, &ve))
	assert.Equal(t, "params", ve.Source)
}

func TestSubscribe(t *testing.T) {
	var loads atomic.Int32
	r := newRouter(t, postsTree(&loads))
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen []string
	)
	unsubscribe := r.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st.Location.Href)
		mu.Unlock()
	})

	require.NoError(t, r.Navigate(ctx, "/posts/1"))
	require.NoError(t, r.Navigate(ctx, "/about"))
	unsubscribe()
	unsubscribe()
	require.NoError(t, r.Navigate(ctx, "/posts/2"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/posts/1", "/about"}, seen)
}

func TestHistoryBackReloadsFromCache(t *testing.T) {
	var loads atomic.Int32
	h := history.NewMemory()
	r := newRouter(t, postsTree(&loads), WithHistory(h), WithDefaultMaxAge(time.Minute))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/posts/1"))
	require.NoError(t, r.Navigate(ctx, "/posts/2"))
	require.Equal(t, int32(2), loads.Load())

	h.Back()

	st := r.State()
	assert.Equal(t, "/posts/1", st.Location.Pathname)
	assert.Equal(t, "post 1 via cache", st.Leaf().LoaderData)
	assert.True(t, st.Leaf().FromCache)
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, 3, h.Len(), "pop does not push")
}

func TestReentryRunsBeforeLoadAndReloads(t *testing.T) {
	var guards, loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path: "dashboard",
			BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
				guards.Add(1)
				return Ok(map[string]any{"visit": args.Context["visit"]})
			},
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				return Data(loads.Add(1))
			},
		},
		{Path: "about"},
	}})
	r := newRouter(t, tree)
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/dashboard"))
	require.NoError(t, r.Navigate(ctx, "/about"))
	require.NoError(t, r.Navigate(ctx, "/dashboard"))

	assert.Equal(t, int32(2), guards.Load())
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, int32(2), r.State().Leaf().LoaderData)
	assert.False(t, r.State().Leaf().FromCache)
	assert.Equal(t, CauseEnter, r.State().Leaf().Cause)
}

func TestCacheHitStillRunsBeforeLoad(t *testing.T) {
	var guards, loads atomic.Int32
	tree := MustTree(&Route{Children: []*Route{
		{
			Path:   "dashboard",
			MaxAge: loadercache.NeverExpires,
			BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
				return Ok(map[string]any{"guard": guards.Add(1)})
			},
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				loads.Add(1)
				return Ok(map[string]any{"loaded": true})
			},
		},
		{Path: "about"},
	}})
	r := newRouter(t, tree)
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/dashboard"))
	require.NoError(t, r.Navigate(ctx, "/about"))
	require.NoError(t, r.Navigate(ctx, "/dashboard"))

	leaf := r.State().Leaf()
	assert.Equal(t, int32(2), guards.Load())
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, leaf.FromCache)
	assert.Equal(t, int32(2), leaf.Context["guard"], "fresh beforeLoad context wins over the cached one")
	assert.Equal(t, true, leaf.Context["loaded"])
}

func TestBeforeLoadRedirectsOnCachedRoute(t *testing.T) {
	var allowed atomic.Bool
	allowed.Store(true)
	tree := MustTree(&Route{Children: []*Route{
		{
			Path:   "admin",
			MaxAge: loadercache.NeverExpires,
			BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
				if !allowed.Load() {
					return RedirectTo("/login")
				}
				return Ok(nil)
			},
			Loader: func(ctx context.Context, args LoaderArgs) Result { return Data("secret") },
		},
		{Path: "login"},
	}})
	r := newRouter(t, tree)
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/admin"))
	require.NoError(t, r.Navigate(ctx, "/login"))
	allowed.Store(false)
	require.NoError(t, r.Navigate(ctx, "/admin"))
	assert.Equal(t, "/login", r.State().Location.Pathname)
}

func TestShouldReload(t *testing.T) {
	var loads atomic.Int32
	var reload atomic.Bool
	tree := MustTree(&Route{Children: []*Route{
		{
			Path:   "feed",
			MaxAge: loadercache.NeverExpires,
			ShouldReload: func(args LoaderArgs) bool {
				return reload.Load()
			},
			Loader: func(ctx context.Context, args LoaderArgs) Result {
				return Data(loads.Add(1))
			},
		},
	}})
	r := newRouter(t, tree)
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/feed"))
	require.NoError(t, r.Navigate(ctx, "/feed"))
	assert.Equal(t, int32(1), loads.Load(), "declined reload serves the cached entry")
	assert.True(t, r.State().Leaf().FromCache)

	reload.Store(true)
	require.NoError(t, r.Navigate(ctx, "/feed"))
	assert.Equal(t, int32(2), loads.Load(), "reload forced despite a fresh entry")
	assert.Equal(t, int32(2), r.State().Leaf().LoaderData)

	reload.Store(false)
	r.Invalidate(nil)
	require.NoError(t, r.Load(ctx))
	assert.Equal(t, int32(3), loads.Load(), "invalidated entries reload regardless")
}

func TestLifecycleHooks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(kind string) func(*Match) {
		return func(m *Match) {
			mu.Lock()
			events = append(events, kind+" "+m.Pathname)
			mu.Unlock()
		}
	}
	tree := MustTree(&Route{Children: []*Route{
		{
			Path:    "posts",
			OnEnter: record("enter"),
			OnStay:  record("stay"),
			OnLeave: record("leave"),
			Children: []*Route{
				{
					Path:    "$postId",
					OnEnter: record("enter"),
					OnStay:  record("stay"),
					OnLeave: record("leave"),
				},
			},
		},
		{Path: "about", OnEnter: record("enter")},
	}})
	r := newRouter(t, tree)
	ctx := context.Background()

	take := func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := events
		events = nil
		return out
	}

	require.NoError(t, r.Navigate(ctx, "/posts/1"))
	assert.Equal(t, []string{"enter /posts", "enter /posts/1"}, take())

	require.NoError(t, r.Navigate(ctx, "/posts/2"))
	assert.Equal(t, []string{"leave /posts/1", "stay /posts", "enter /posts/2"}, take())

	require.NoError(t, r.Navigate(ctx, "/about"))
	assert.Equal(t, []string{"leave /posts", "leave /posts/2", "enter /about"}, take())
}

func TestInvalidateAndLoad(t *testing.T) {
	var loads atomic.Int32
	r := newRouter(t, postsTree(&loads))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/posts/1"))
	before := r.State().Leaf()

	n := r.Invalidate(func(m *Match) bool { return m.RouteID == "/posts/$postId" })
	assert.Equal(t, 1, n)

	require.NoError(t, r.Load(ctx))
	after := r.State().Leaf()
	assert.Equal(t, int32(2), loads.Load())
	assert.NotSame(t, before, after)

	require.NoError(t, r.Load(ctx))
	assert.Equal(t, int32(2), loads.Load(), "invalid mark cleared on commit")
	assert.Same(t, after, r.State().Leaf())
}

func TestLoadStartsFromHistory(t *testing.T) {
	var loads atomic.Int32
	h := history.NewMemory("/posts/7")
	r := newRouter(t, postsTree(&loads), WithHistory(h))

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "/posts/7", r.State().Location.Href)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, h.Location().Key, r.State().ScrollKey)
}

func TestPreload(t *testing.T) {
	var loads atomic.Int32
	r := newRouter(t, postsTree(&loads))
	ctx := context.Background()

	require.NoError(t, r.Preload(ctx, "/posts/9"))
	assert.Equal(t, int32(1), loads.Load())
	assert.Empty(t, r.State().TransitionID, "preload does not commit")

	e, ok := r.Cache().Get("/posts/$postId|/posts/9")
	require.True(t, ok)
	assert.True(t, e.Preload)
	assert.Equal(t, DefaultPreloadMaxAge, e.MaxAge)

	require.NoError(t, r.Navigate(ctx, "/posts/9"))
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, "post 9 via cache", r.State().Leaf().LoaderData)

	e, _ = r.Cache().Get("/posts/$postId|/posts/9")
	assert.False(t, e.Preload, "committed entries drop the preload mark")
}

func TestPreloadReturnsLoaderError(t *testing.T) {
	boom := errors.New("boom")
	tree := MustTree(&Route{Children: []*Route{
		{Path: "p", Loader: func(ctx context.Context, args LoaderArgs) Result { return Fail(boom) }},
	}})
	r := newRouter(t, tree)
	assert.ErrorIs(t, r.Preload(context.Background(), "/p"), boom)
}

func TestMatchRoutesIsPure(t *testing.T) {
	var loads atomic.Int32
	r := newRouter(t, postsTree(&loads))

	matches, err := r.MatchRoutes("/posts/3?tab=info")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Equal(t, StatusPending, m.Status)
	}
	assert.Equal(t, "/posts/3", matches[2].Pathname)
	assert.Zero(t, loads.Load())
	assert.Zero(t, r.Cache().Len())
	assert.Empty(t, r.State().TransitionID)

	_, err = r.MatchRoutes("/nothing/here")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestScrollKey(t *testing.T) {
	var loads atomic.Int32
	r := newRouter(t, postsTree(&loads), WithScrollKey(func(l Location) string { return "k:" + l.Pathname }))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/posts/1"))
	assert.Equal(t, "k:/posts/1", r.State().ScrollKey)

	require.NoError(t, r.Navigate(ctx, "/posts/2", WithoutScroll()))
	assert.Equal(t, "k:/posts/1", r.State().ScrollKey)

	require.NoError(t, r.Navigate(ctx, "/about"))
	assert.Equal(t, "k:/about", r.State().ScrollKey)
}

func TestRouterContextFolds(t *testing.T) {
	tree := MustTree(&Route{
		BeforeLoad: func(ctx context.Context, args BeforeLoadArgs) Result {
			return Ok(map[string]any{"user": args.Context["tenant"].(string) + "/alice"})
		},
		Children: []*Route{
			{Path: "me", Loader: func(ctx context.Context, args LoaderArgs) Result {
				return Data(args.Context["user"])
			}},
		},
	})
	r := newRouter(t, tree, WithRouterContext(map[string]any{"tenant": "acme"}))

	require.NoError(t, r.Navigate(context.Background(), "/me"))
	st := r.State()
	assert.Equal(t, "acme/alice", st.Leaf().LoaderData)
	assert.Equal(t, "acme", st.FullContext(1)["tenant"])
}

type recordingObserver struct {
	mu        sync.Mutex
	outcomes  []string
	phases    []string
	cache     []string
	redirects []string
}

func (o *recordingObserver) TransitionStarted(ctx context.Context, id, href string) (context.Context, func(string, error)) {
	return ctx, func(outcome string, err error) {
		o.mu.Lock()
		o.outcomes = append(o.outcomes, outcome)
		o.mu.Unlock()
	}
}

func (o *recordingObserver) PhaseStarted(ctx context.Context, phase, routeID string) (context.Context, func(error)) {
	o.mu.Lock()
	o.phases = append(o.phases, phase+":"+routeID)
	o.mu.Unlock()
	return ctx, func(error) {}
}

func (o *recordingObserver) CacheResult(routeID, outcome string) {
	o.mu.Lock()
	o.cache = append(o.cache, routeID+":"+outcome)
	o.mu.Unlock()
}

func (o *recordingObserver) Redirected(from, to string) {
	o.mu.Lock()
	o.redirects = append(o.redirects, from+"->"+to)
	o.mu.Unlock()
}

func TestObserver(t *testing.T) {
	var loads atomic.Int32
	obs := &recordingObserver{}
	r := newRouter(t, postsTree(&loads), WithObserver(obs), WithDefaultMaxAge(loadercache.NeverExpires))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/posts/1"))
	require.NoError(t, r.Navigate(ctx, "/about"))
	require.NoError(t, r.Navigate(ctx, "/posts/1"))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{OutcomeCommitted, OutcomeCommitted, OutcomeCommitted}, obs.outcomes)
	assert.Contains(t, obs.phases, "beforeLoad:/posts")
	assert.Contains(t, obs.phases, "loader:/posts/$postId")
	assert.Contains(t, obs.cache, "/posts/$postId:miss")
	assert.Contains(t, obs.cache, "/posts/$postId:hit")
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(MustTree(&Route{}), WithMasks(RouteMask{From: "$a/$a", To: "/"}))
	assert.Error(t, err)
}
