// Package router resolves locations against a nested route tree, loads
// the matched routes and commits the result as a State.
//
// The router provides:
//   - A route tree with derived ids and full paths, built once by NewTree
//   - Ranked path matching with static, param, optional and splat segments
//   - Params parsing and search validation per route, layered root to leaf
//   - Match reuse across navigations when nothing a route depends on changed
//   - A beforeLoad/loader pipeline backed by a keyed loader cache
//   - Cancellable navigations where only the newest one commits
//   - Route masks, preloading and SSR dehydration
//
// # Patterns
//
// Route paths are made of segments:
//
//	/posts          static
//	/$postId        param, one segment
//	/{-$lang}       optional param, zero or one segment
//	/files/$        splat, the rest of the path as params["*"]
//	/img{$id}.png   param with prefix and suffix
//	/               index, matches only at the end
//
// Pathless routes (empty Path, explicit ID) group children without
// consuming a segment.
//
// # Building a Router
//
//	tree := router.MustTree(&router.Route{
//	    Children: []*router.Route{
//	        {Path: "/posts", Children: []*router.Route{
//	            {Path: "/$postId", Loader: loadPost},
//	        }},
//	    },
//	})
//	r, err := router.New(tree, router.WithDefaultMaxAge(time.Minute))
//	err = r.Navigate(ctx, "/posts/$postId", router.WithParams(map[string]string{"postId": "1"}))
//	st := r.State()
//
// # Loading
//
// For a committed navigation, beforeLoad hooks run root to leaf, each
// seeing the folded context of its ancestors. Loaders then run
// concurrently unless a route sets WaitForParent. A route returns Ok,
// Data, RedirectTo or NotFoundResult, or fails with an error. The first
// redirect restarts the navigation; notFound and errors end the chain
// below the failing route.
//
// Loader results are cached under the match ID, which combines the route
// id, the interpolated path and a hash of the route's loader deps. A
// fresh entry skips the loader; beforeLoad still runs and its context is
// layered over the cached one. By default data is reloaded whenever a
// navigation enters a route again. Set a MaxAge to keep it longer.
//
// # Lifecycle
//
// After a commit, OnLeave runs for matches that left the chain, then
// OnEnter for new ones and OnStay for the rest.
package router
