package router

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/routekit/pkg/history"
)

// Transition is one navigation attempt. Only the transition holding the
// router's current sequence may commit.
type Transition struct {
	ID        string
	Seq       uint64
	Location  Location
	Redirects []string
	Started   time.Time
}

type historyAction int

const (
	actionPush historyAction = iota
	actionReplace
	actionNone
)

// navigation says how a committed transition writes history.
type navigation struct {
	action      historyAction
	resetScroll bool

	// hydrate takes seeded cache entries without running their routes.
	hydrate bool
}

// Transition outcomes reported to the Observer.
const (
	OutcomeCommitted  = "committed"
	OutcomeSuperseded = "superseded"
	OutcomeCancelled  = "cancelled"
	OutcomeFailed     = "failed"
)

// transition runs loc through match, validate, resolve and the loader
// pipeline, following redirects, and commits the result unless a newer
// transition started meanwhile.
func (r *Router) transition(parent context.Context, loc Location, nav navigation) error {
	tr, ctx, cancel := r.begin(parent, loc)
	defer cancel()

	ctx, end := r.obs.TransitionStarted(ctx, tr.ID, loc.Href)
	outcome, err := r.run(ctx, parent, tr, loc, nav)
	end(outcome, err)
	return err
}

func (r *Router) begin(parent context.Context, loc Location) (*Transition, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	r.seq++
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.status = StatusLoading
	tr := &Transition{
		ID:       uuid.NewString(),
		Seq:      r.seq,
		Location: loc,
		Started:  time.Now(),
	}
	r.mu.Unlock()

	r.logger.Debug("transition started", "id", tr.ID, "seq", tr.Seq, "href", loc.Href)
	return tr, ctx, cancel
}

func (r *Router) run(ctx, parent context.Context, tr *Transition, loc Location, nav navigation) (string, error) {
	prev := r.State().Matches
	mode := loadNavigate
	if nav.hydrate {
		mode = loadHydrate
	}

	for {
		matches, nf, pathErr := r.matchLocation(loc, prev)

		out, err := r.runPipeline(ctx, loc, matches, mode)
		if err != nil {
			return r.abort(parent, tr, err)
		}

		if out.redirect != nil {
			if len(tr.Redirects) >= r.maxRedirects {
				return r.redirectLoop(tr, loc, matches, nav)
			}
			next, err := r.redirectLocation(loc, out.redirect)
			if err != nil {
				markRedirectError(matches, out.redirectFrom, err)
				st := r.stateFor(tr, loc, matches, nil, nil)
				if !r.commit(tr, st, nav) {
					return r.abort(parent, tr, ctx.Err())
				}
				return OutcomeFailed, err
			}
			tr.Redirects = append(tr.Redirects, loc.Href)
			r.obs.Redirected(loc.Href, next.Href)
			r.logger.Debug("redirect", "id", tr.ID, "from", loc.Href, "to", next.Href, "route", out.redirectFrom)
			if out.redirect.Replace {
				nav.action = actionReplace
			}
			loc = next
			tr.Location = loc
			continue
		}

		if out.notFound != nil {
			nf = out.notFound
		}
		st := r.stateFor(tr, loc, matches, nf, pathErr)
		if !r.commit(tr, st, nav) {
			return r.abort(parent, tr, ctx.Err())
		}
		return OutcomeCommitted, nil
	}
}

// matchLocation resolves loc against the tree. An unmatched or malformed
// pathname yields the root chain alone, a NotFound on the root and the
// path error.
func (r *Router) matchLocation(loc Location, prev []*Match) ([]*Match, *NotFound, error) {
	opts := r.resolveOptions(false)
	res, err := r.tree.Match(loc.Pathname)
	if err != nil {
		vals := validateChain([]*Node{r.tree.Root()}, map[string]string{}, loc.Search)
		return resolve(vals, prev, opts), &NotFound{RouteID: RootID}, err
	}
	vals := validateChain(res.Chain, res.Params, loc.Search)
	return resolve(vals, prev, opts), nil, nil
}

func (r *Router) stateFor(tr *Transition, loc Location, matches []*Match, nf *NotFound, err error) State {
	return State{
		Location:      loc,
		Matches:       matches,
		NotFound:      nf,
		Error:         err,
		TransitionID:  tr.ID,
		Seq:           tr.Seq,
		Redirects:     tr.Redirects,
		RouterContext: r.routerContext,
	}
}

// abort ends a transition that cannot commit. It reports the caller's own
// cancellation as is and everything else as ErrSuperseded.
func (r *Router) abort(parent context.Context, tr *Transition, cause error) (string, error) {
	r.mu.Lock()
	if tr.Seq == r.seq {
		r.status = StatusIdle
		r.cancel = nil
	}
	r.mu.Unlock()

	if err := parent.Err(); err != nil {
		r.logger.Debug("transition cancelled", "id", tr.ID, "seq", tr.Seq)
		return OutcomeCancelled, err
	}
	r.logger.Debug("transition superseded", "id", tr.ID, "seq", tr.Seq, "cause", cause)
	return OutcomeSuperseded, ErrSuperseded
}

// redirectLoop commits the fatal state of a transition that redirected
// too many times.
func (r *Router) redirectLoop(tr *Transition, loc Location, matches []*Match, nav navigation) (string, error) {
	var lerr *LoaderError
	for _, m := range matches {
		if m.Status == StatusRedirected {
			lerr = &LoaderError{RouteID: m.RouteID, Phase: PhaseRedirect, Err: ErrRedirectLoop}
			m.Status = StatusError
			m.Error = lerr
			break
		}
	}
	if lerr == nil {
		lerr = &LoaderError{RouteID: RootID, Phase: PhaseRedirect, Err: ErrRedirectLoop}
	}
	r.logger.Warn("redirect loop", "id", tr.ID, "href", loc.Href, "hops", len(tr.Redirects))

	st := r.stateFor(tr, loc, matches, nil, lerr)
	if !r.commit(tr, st, nav) {
		return OutcomeSuperseded, ErrSuperseded
	}
	return OutcomeFailed, lerr
}

func markRedirectError(matches []*Match, routeID string, err error) {
	for _, m := range matches {
		if m.RouteID == routeID {
			m.Status = StatusError
			m.Error = &LoaderError{RouteID: routeID, Phase: PhaseRedirect, Err: err}
			return
		}
	}
}

// redirectLocation builds the target of a redirect issued while loading
// from.
func (r *Router) redirectLocation(from Location, rd *Redirect) (Location, error) {
	if rd.To == "" {
		return Location{}, fmt.Errorf("redirect from %s: empty target", from.Href)
	}
	opts := []NavigateOption{WithFrom(from.Pathname), WithParams(rd.Params)}
	if rd.Search != nil {
		opts = append(opts, WithSearch(rd.Search))
	}
	if rd.Hash != "" {
		opts = append(opts, WithHash(rd.Hash))
	}
	loc, _, err := r.buildLocation(rd.To, opts)
	return loc, err
}

// commit installs st if tr is still current. History is written and the
// cache trimmed before subscribers are notified.
func (r *Router) commit(tr *Transition, st State, nav navigation) bool {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if tr.Seq != r.seq {
		r.mu.Unlock()
		return false
	}
	r.status = StatusCommitting
	prevScroll := r.state.ScrollKey
	r.mu.Unlock()

	r.writeHistory(st.Location, nav)
	switch {
	case !nav.resetScroll && prevScroll != "":
		st.ScrollKey = prevScroll
	case r.scrollKey != nil:
		st.ScrollKey = r.scrollKey(st.Location)
	default:
		st.ScrollKey = r.history.Location().Key
	}

	keep := make(map[string]bool, len(st.Matches))
	for _, m := range st.Matches {
		keep[m.ID] = true
	}

	r.mu.Lock()
	if tr.Seq != r.seq {
		// A newer transition began while history was written; it will
		// commit over this one.
		r.mu.Unlock()
		return false
	}
	prev := r.state.Matches
	r.state = st
	r.loaded = true
	r.status = StatusIdle
	r.cancel = nil
	for k := range keep {
		delete(r.invalid, k)
	}
	subs := make([]func(State), 0, len(r.subs))
	ids := sortedKeys(r.subs)
	for _, id := range ids {
		subs = append(subs, r.subs[id])
	}
	r.mu.Unlock()

	for k := range keep {
		r.cache.Commit(k)
	}
	if n := r.cache.GC(keep); n > 0 {
		r.logger.Debug("cache gc", "removed", n)
	}
	r.logger.Debug("transition committed", "id", tr.ID, "seq", tr.Seq, "href", st.Location.Href, "matches", len(st.Matches))

	runLifecycle(prev, st.Matches)
	for _, fn := range subs {
		fn(st)
	}
	return true
}

// runLifecycle calls OnLeave for matches of prev missing from next, then
// OnEnter for matches new in next and OnStay for the rest. Matches are
// compared by ID.
func runLifecycle(prev, next []*Match) {
	inNext := make(map[string]bool, len(next))
	for _, m := range next {
		inNext[m.ID] = true
	}
	inPrev := make(map[string]bool, len(prev))
	for _, m := range prev {
		inPrev[m.ID] = true
		if !inNext[m.ID] && m.node.route.OnLeave != nil {
			m.node.route.OnLeave(m)
		}
	}
	for _, m := range next {
		rt := m.node.route
		switch {
		case !inPrev[m.ID]:
			if rt.OnEnter != nil {
				rt.OnEnter(m)
			}
		case rt.OnStay != nil:
			rt.OnStay(m)
		}
	}
}

func (r *Router) writeHistory(loc Location, nav navigation) {
	if nav.action == actionNone {
		return
	}
	href, state := loc.Href, cloneState(loc.State)
	if loc.MaskedLocation != nil {
		href = loc.MaskedLocation.Href
		if state == nil {
			state = history.State{}
		}
		state[TempLocationKey] = loc.Href
		if loc.UnmaskOnReload {
			state[UnmaskOnReloadKey] = true
		}
	}
	if nav.action == actionReplace || href == r.history.Location().Href {
		r.history.Replace(href, state)
		return
	}
	r.history.Push(href, state)
}

// locationFromHistory turns a history entry back into the location that
// was committed. On reload a mask with UnmaskOnReload is dropped so the
// displayed href becomes the real one.
func (r *Router) locationFromHistory(h history.Location, reload bool) Location {
	temp, _ := h.State[TempLocationKey].(string)
	unmask, _ := h.State[UnmaskOnReloadKey].(bool)

	state := cloneState(h.State)
	delete(state, TempLocationKey)
	delete(state, UnmaskOnReloadKey)

	if temp == "" || (reload && unmask) {
		return ParseLocation(h.Href, state)
	}
	loc := ParseLocation(temp, state)
	masked := ParseLocation(h.Href, nil)
	loc.MaskedLocation = &masked
	loc.UnmaskOnReload = unmask
	return loc
}

func cloneState(s history.State) history.State {
	if s == nil {
		return nil
	}
	out := make(history.State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[int]func(State)) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
