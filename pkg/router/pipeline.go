package router

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/routekit/pkg/loadercache"
)

// pipelineOutcome is how a pipeline run ended when it did not fail on
// cancellation.
type pipelineOutcome struct {
	redirect     *Redirect
	redirectFrom string
	notFound     *NotFound
}

type loaderResult struct {
	entry   *loadercache.Entry
	outcome loadercache.Outcome
	err     error

	// parentFailed is set when a WaitForParent loader never ran.
	parentFailed bool
}

// loadMode says what a pipeline run is for.
type loadMode int

const (
	loadNavigate loadMode = iota
	loadPreload
	loadHydrate
)

// runPipeline drives every pending match to a terminal status. beforeLoad
// runs root to leaf, one at a time. Loaders then run concurrently, except
// that a WaitForParent loader waits for its parent. Results are applied
// root to leaf: the first redirect wins, a notFound or error ends the
// chain below it. The only error returned is ctx's.
//
// When hydrating, a match whose entry was seeded from a dehydrated state
// takes it as is: the server already ran its beforeLoad and loader.
//
// matches must not be visible to other goroutines yet.
func (r *Router) runPipeline(ctx context.Context, loc Location, matches []*Match, mode loadMode) (pipelineOutcome, error) {
	var out pipelineOutcome
	preload := mode == loadPreload
	own := make([]map[string]any, len(matches))
	stop := len(matches)

beforeLoad:
	for i, m := range matches {
		switch m.Status {
		case StatusPending:
		case StatusError:
			cascade(matches, i+1, m.Error)
			stop = i
			break beforeLoad
		default:
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if mode == loadHydrate {
			if e, ok := r.cache.Get(m.ID); ok && !e.Invalid {
				m.LoaderData, m.Context = e.Data, e.Context
				m.UpdatedAt, m.MaxAge = e.UpdatedAt, e.MaxAge
				m.Status = StatusSuccess
				m.FromCache = true
				r.obs.CacheResult(m.RouteID, loadercache.Hit.String())
				continue
			}
		}

		rt := m.node.route
		if rt.BeforeLoad == nil {
			continue
		}

		res := r.callBeforeLoad(ctx, rt.BeforeLoad, m, BeforeLoadArgs{
			Location: loc,
			Params:   m.Params,
			Search:   m.Search,
			Context:  foldContext(r.routerContext, matches, i-1),
			Cause:    m.Cause,
			Preload:  preload,
		})
		switch res.Kind() {
		case ResultOK:
			own[i] = res.Context()
			m.Context = res.Context()
		case ResultRedirect:
			m.Status = StatusRedirected
			out.redirect, out.redirectFrom = res.redirect, m.RouteID
			return out, nil
		case ResultNotFound:
			out.notFound = markNotFound(matches, i, res.notFound)
			stop = i
			break beforeLoad
		default:
			if err := ctx.Err(); err != nil {
				return out, err
			}
			m.Status = StatusError
			m.Error = &LoaderError{RouteID: m.RouteID, Phase: PhaseBeforeLoad, Err: res.Err()}
			cascade(matches, i+1, m.Error)
			stop = i
			break beforeLoad
		}
	}

	results, err := r.runLoaders(ctx, loc, matches[:stop], own, preload)
	if err != nil {
		return out, err
	}

	for i := 0; i < stop; i++ {
		m := matches[i]
		if m.Status != StatusPending {
			continue
		}
		res := results[i]
		if res.parentFailed {
			continue
		}
		if res.err != nil {
			sig := Fail(res.err)
			switch sig.Kind() {
			case ResultRedirect:
				m.Status = StatusRedirected
				out.redirect, out.redirectFrom = sig.redirect, m.RouteID
				return out, nil
			case ResultNotFound:
				if out.notFound == nil {
					out.notFound = markNotFound(matches, i, sig.notFound)
				}
				return out, nil
			default:
				m.Status = StatusError
				m.Error = &LoaderError{RouteID: m.RouteID, Phase: PhaseLoader, Err: res.err}
				cascade(matches, i+1, m.Error)
				return out, nil
			}
		}
		r.obs.CacheResult(m.RouteID, res.outcome.String())
		m.LoaderData = res.entry.Data
		// The entry may come from an earlier load or another caller's;
		// this run's beforeLoad context wins over whatever it stored.
		m.Context = layerContext(res.entry.Context, own[i])
		m.UpdatedAt = res.entry.UpdatedAt
		m.MaxAge = res.entry.MaxAge
		m.FromCache = res.outcome != loadercache.Miss
		m.Status = StatusSuccess
	}
	return out, nil
}

// runLoaders runs the loaders of pending matches. Loader failures are
// per-match results; the group only fails when ctx ends, which stops
// loaders still waiting on a parent.
func (r *Router) runLoaders(ctx context.Context, loc Location, matches []*Match, own []map[string]any, preload bool) ([]loaderResult, error) {
	results := make([]loaderResult, len(matches))
	done := make([]chan struct{}, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range matches {
		done[i] = make(chan struct{})
		if m.Status != StatusPending {
			close(done[i])
			continue
		}

		args := LoaderArgs{
			Location: loc,
			Params:   m.Params,
			Search:   m.Search,
			Deps:     m.LoaderDeps,
			Context:  foldContext(r.routerContext, matches, i),
			Cause:    m.Cause,
			Preload:  preload,
		}
		g.Go(func() error {
			defer close(done[i])
			if m.node.route.WaitForParent && i > 0 {
				select {
				case <-done[i-1]:
				case <-gctx.Done():
					results[i] = loaderResult{err: gctx.Err()}
					return gctx.Err()
				}
				parent := matches[i-1]
				if parent.Status == StatusPending {
					pr := results[i-1]
					if pr.err != nil || pr.parentFailed {
						results[i] = loaderResult{parentFailed: true}
						return nil
					}
					args.ParentData = pr.entry.Data
				} else {
					args.ParentData = parent.LoaderData
				}
			}
			results[i] = r.load(gctx, m, own[i], args, preload)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A loader that ignores cancellation can finish after ctx ended.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// load runs one loader through the cache.
func (r *Router) load(ctx context.Context, m *Match, own map[string]any, args LoaderArgs, preload bool) loaderResult {
	rt := m.node.route
	policy := loadercache.Policy{
		MaxAge:               m.MaxAge,
		StaleWhileRevalidate: rt.StaleWhileRevalidate,
		Preload:              preload,
	}
	if rt.ShouldReload != nil {
		if rt.ShouldReload(args) {
			policy.Force = true
		} else if e, ok := r.cache.Get(m.ID); ok && !e.Invalid {
			return loaderResult{entry: e, outcome: loadercache.Hit}
		}
	}
	entry, outcome, err := r.cache.Load(ctx, m.ID, policy, func(lctx context.Context) (*loadercache.Entry, error) {
		if rt.Loader == nil {
			return &loadercache.Entry{RouteID: m.RouteID, Context: own}, nil
		}
		res := r.callLoader(lctx, rt.Loader, m, args)
		if res.Kind() != ResultOK {
			return nil, res.Err()
		}
		return &loadercache.Entry{
			RouteID: m.RouteID,
			Data:    res.Value(),
			Context: layerContext(res.Context(), own),
		}, nil
	})
	return loaderResult{entry: entry, outcome: outcome, err: err}
}

func (r *Router) callBeforeLoad(ctx context.Context, fn BeforeLoadFunc, m *Match, args BeforeLoadArgs) (res Result) {
	ctx, end := r.obs.PhaseStarted(ctx, string(PhaseBeforeLoad), m.RouteID)
	defer func() {
		if p := recover(); p != nil {
			res = Fail(fmt.Errorf("beforeLoad panicked: %v", p))
		}
		end(res.Err())
	}()
	return fn(ctx, args)
}

func (r *Router) callLoader(ctx context.Context, fn LoaderFunc, m *Match, args LoaderArgs) (res Result) {
	ctx, end := r.obs.PhaseStarted(ctx, string(PhaseLoader), m.RouteID)
	defer func() {
		if p := recover(); p != nil {
			res = Fail(fmt.Errorf("loader panicked: %v", p))
		}
		end(res.Err())
	}()
	return fn(ctx, args)
}

// cascade fails every match from index from on with cause.
func cascade(matches []*Match, from int, cause error) {
	for j := from; j < len(matches); j++ {
		matches[j].Status = StatusError
		matches[j].Error = cause
	}
}

// markNotFound ends matches i and below in notFound and returns the
// signal with its RouteID filled in.
func markNotFound(matches []*Match, i int, nf *NotFound) *NotFound {
	cp := NotFound{}
	if nf != nil {
		cp = *nf
	}
	if cp.RouteID == "" {
		cp.RouteID = matches[i].RouteID
	}
	for j := i; j < len(matches); j++ {
		matches[j].Status = StatusNotFound
		matches[j].Error = &cp
	}
	return &cp
}

// layerContext overlays top on bottom.
func layerContext(bottom, top map[string]any) map[string]any {
	if len(bottom) == 0 {
		return top
	}
	out := make(map[string]any, len(bottom)+len(top))
	for k, v := range bottom {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}
