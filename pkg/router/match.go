package router

import (
	"fmt"
	"sort"

	"github.com/vango-dev/routekit/pkg/routepath"
)

// Candidate is one way of matching a pathname to a chain of routes.
type Candidate struct {
	// RouteID is the leaf route.
	RouteID string

	// Params are the raw decoded params captured along the chain.
	Params map[string]string

	// Consumed is the number of URL segments consumed.
	Consumed int

	// Skipped counts optional params that matched nothing.
	Skipped int

	// Order is the discovery order.
	Order int

	node *Node
}

// Node returns the leaf node.
func (c *Candidate) Node() *Node { return c.node }

// Scores returns the ranking vector of the leaf's full pattern.
func (c *Candidate) Scores() []float64 { return c.node.scores }

// Pattern returns the leaf's full pattern.
func (c *Candidate) Pattern() string { return c.node.fullPath }

// String summarizes the candidate for --explain output.
func (c *Candidate) String() string {
	return fmt.Sprintf("%s %s scores=%v optionals=%d skipped=%d order=%d",
		c.RouteID, c.node.fullPath, c.node.scores, c.node.optionals, c.Skipped, c.Order)
}

// MatchResult is the winning chain for a pathname.
type MatchResult struct {
	// Pathname is the canonical pathname that was matched.
	Pathname string

	// Chain runs from the root to the leaf, pathless routes included.
	Chain []*Node

	Params map[string]string

	Winner *Candidate
}

// Leaf returns the last node of the chain.
func (m *MatchResult) Leaf() *Node {
	return m.Chain[len(m.Chain)-1]
}

// Match finds the best chain for pathname. The error is a *PathError of
// kind KindBadRequest for undecodable input and KindNotFound otherwise.
func (t *Tree) Match(pathname string) (*MatchResult, error) {
	canon, ranked, err := t.rank(pathname)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, &PathError{Path: canon, Kind: KindNotFound, Err: ErrNoMatch}
	}
	best := ranked[0]
	return &MatchResult{
		Pathname: canon,
		Chain:    best.node.Chain(),
		Params:   best.Params,
		Winner:   best,
	}, nil
}

// Explain returns every candidate for pathname, best first.
func (t *Tree) Explain(pathname string) ([]*Candidate, error) {
	_, ranked, err := t.rank(pathname)
	return ranked, err
}

func (t *Tree) rank(pathname string) (string, []*Candidate, error) {
	p, _, _ := routepath.SplitHref(pathname)
	canon, err := routepath.Canonicalize(p)
	if err != nil {
		return p, nil, &PathError{Path: p, Kind: KindBadRequest, Err: fmt.Errorf("%w: %w", ErrMalformedPath, err)}
	}
	segs, err := routepath.SplitSegments(canon.Path)
	if err != nil {
		return canon.Path, nil, &PathError{Path: canon.Path, Kind: KindBadRequest, Err: fmt.Errorf("%w: %w", ErrMalformedPath, err)}
	}

	w := &walker{tree: t, segs: segs}
	w.visit(t.root, 0, map[string]string{}, 0)

	sort.SliceStable(w.out, func(i, j int) bool {
		return compareCandidates(w.out[i], w.out[j]) < 0
	})
	return canon.Path, w.out, nil
}

type walker struct {
	tree *Tree
	segs []string
	out  []*Candidate
}

// visit consumes n's own segments every possible way starting at URL
// position pos, then emits a candidate if the URL is used up and descends
// into the children.
func (w *walker) visit(n *Node, pos int, params map[string]string, skipped int) {
	caseSensitive := w.tree.caseSensitive || n.route.CaseSensitive
	consumeSegments(n.segs, w.segs, pos, params, skipped, caseSensitive, func(end int, params map[string]string, skipped int, splat bool) {
		if end == len(w.segs) {
			w.out = append(w.out, &Candidate{
				RouteID:  n.id,
				Params:   params,
				Consumed: end,
				Skipped:  skipped,
				Order:    len(w.out),
				node:     n,
			})
		}
		if splat {
			return
		}
		for _, child := range n.children {
			w.visit(child, end, params, skipped)
		}
	})
}

// consumeSegments matches pattern against url from pos and calls emit for
// every way the whole pattern can be consumed. Optional params try
// consuming before skipping. params is copied before each write.
func consumeSegments(pattern []routepath.Segment, url []string, pos int, params map[string]string, skipped int, caseSensitive bool,
	emit func(end int, params map[string]string, skipped int, splat bool)) {
	if len(pattern) == 0 {
		emit(pos, params, skipped, false)
		return
	}

	s, rest := pattern[0], pattern[1:]
	switch s.Kind {
	case routepath.Static:
		if pos < len(url) {
			if _, ok := routepath.MatchSegment(s, url[pos], caseSensitive); ok {
				consumeSegments(rest, url, pos+1, params, skipped, caseSensitive, emit)
			}
		}
	case routepath.Index:
		if pos == len(url) {
			consumeSegments(rest, url, pos, params, skipped, caseSensitive, emit)
		}
	case routepath.Param:
		if pos < len(url) {
			if v, ok := routepath.MatchSegment(s, url[pos], caseSensitive); ok {
				consumeSegments(rest, url, pos+1, with(params, s.Value, v), skipped, caseSensitive, emit)
			}
		}
	case routepath.Optional:
		if pos < len(url) {
			if v, ok := routepath.MatchSegment(s, url[pos], caseSensitive); ok {
				consumeSegments(rest, url, pos+1, with(params, s.Value, v), skipped, caseSensitive, emit)
			}
		}
		consumeSegments(rest, url, pos, params, skipped+1, caseSensitive, emit)
	case routepath.Splat:
		if v, ok := routepath.MatchSplat(s, url[pos:]); ok {
			emit(len(url), with(params, routepath.SplatKey, v), skipped, true)
		}
	}
}

func with(params map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for pk, pv := range params {
		out[pk] = pv
	}
	out[k] = v
	return out
}

// matchPattern matches a whole pathname against one pattern, used for
// route masks.
func matchPattern(pattern []routepath.Segment, pathname string, caseSensitive bool) (map[string]string, bool) {
	canon, err := routepath.Canonicalize(pathname)
	if err != nil {
		return nil, false
	}
	segs, err := routepath.SplitSegments(canon.Path)
	if err != nil {
		return nil, false
	}
	var (
		found  map[string]string
		bestSk = -1
	)
	consumeSegments(pattern, segs, 0, map[string]string{}, 0, caseSensitive, func(end int, params map[string]string, skipped int, _ bool) {
		if end != len(segs) {
			return
		}
		if bestSk == -1 || skipped < bestSk {
			found, bestSk = params, skipped
		}
	})
	return found, bestSk != -1
}
