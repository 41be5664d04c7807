package router

import (
	"fmt"
	"strings"

	"github.com/vango-dev/routekit/pkg/routepath"
)

// RootID is the id of the root route.
const RootID = "__root__"

// Node is a built route: the declaration plus everything derived from its
// position in the tree.
type Node struct {
	route    *Route
	id       string
	parent   *Node
	children []*Node

	// segs are this node's own pattern segments; full is the whole chain's.
	segs []routepath.Segment
	full []routepath.Segment

	fullPath string
	depth    int
	order    int

	// scores, optionals and staticAfter describe full for ranking.
	scores      []float64
	optionals   int
	staticAfter bool
}

// ID returns the route id.
func (n *Node) ID() string { return n.id }

// Route returns the declaration.
func (n *Node) Route() *Route { return n.route }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in declaration order.
func (n *Node) Children() []*Node { return n.children }

// Segments returns the node's own parsed pattern.
func (n *Node) Segments() []routepath.Segment { return n.segs }

// FullPath returns the joined pattern of the node and all ancestors.
func (n *Node) FullPath() string { return n.fullPath }

// Depth returns 0 for the root.
func (n *Node) Depth() int { return n.depth }

// Chain returns the nodes from the root to n.
func (n *Node) Chain() []*Node {
	chain := make([]*Node, n.depth+1)
	for cur := n; cur != nil; cur = cur.parent {
		chain[cur.depth] = cur
	}
	return chain
}

// Tree is an immutable route tree with flat lookup tables.
type Tree struct {
	root          *Node
	byID          map[string]*Node
	nodes         []*Node
	caseSensitive bool
}

// TreeOption configures NewTree.
type TreeOption func(*Tree)

// WithCaseSensitive makes every literal segment match case-sensitively.
func WithCaseSensitive(on bool) TreeOption {
	return func(t *Tree) {
		t.caseSensitive = on
	}
}

// NewTree builds a tree from a root declaration. The root's Path is
// ignored and its id is always RootID.
func NewTree(root *Route, opts ...TreeOption) (*Tree, error) {
	if root == nil {
		return nil, &MatchError{Reason: "nil root route"}
	}
	t := &Tree{byID: make(map[string]*Node)}
	for _, opt := range opts {
		opt(t)
	}

	seen := make(map[*Route]bool)
	rootNode := &Node{route: root, id: RootID}
	if err := t.add(rootNode, seen); err != nil {
		return nil, err
	}
	t.root = rootNode
	return t, nil
}

// MustTree is NewTree that panics on error.
func MustTree(root *Route, opts ...TreeOption) *Tree {
	t, err := NewTree(root, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) add(n *Node, seen map[*Route]bool) error {
	if seen[n.route] {
		return &MatchError{RouteID: n.id, Reason: "route declared twice (cycle or shared child)"}
	}
	seen[n.route] = true

	if _, dup := t.byID[n.id]; dup {
		return &MatchError{RouteID: n.id, Reason: "duplicate route id"}
	}

	if n.parent != nil {
		segs, err := routepath.ParsePattern(n.route.Path)
		if err != nil {
			return &MatchError{RouteID: n.id, Reason: "bad path pattern", Err: err}
		}
		n.segs = segs
		n.full = append(append([]routepath.Segment(nil), n.parent.full...), segs...)
		if err := checkChain(n.full); err != nil {
			return &MatchError{RouteID: n.id, Reason: "bad path pattern", Err: err}
		}
	}
	n.fullPath = routepath.FormatPattern(n.full)
	n.scores, n.optionals, n.staticAfter = scorePattern(n.full)
	n.order = len(t.nodes)

	t.byID[n.id] = n
	t.nodes = append(t.nodes, n)

	for i, child := range n.route.Children {
		if child == nil {
			return &MatchError{RouteID: n.id, Reason: fmt.Sprintf("child %d is nil", i)}
		}
		id, err := deriveID(n, child)
		if err != nil {
			return err
		}
		cn := &Node{route: child, id: id, parent: n, depth: n.depth + 1}
		n.children = append(n.children, cn)
		if err := t.add(cn, seen); err != nil {
			return err
		}
	}
	return nil
}

// checkChain rejects segments after a splat or an index anywhere in the
// joined chain.
func checkChain(full []routepath.Segment) error {
	for i, s := range full {
		if i == len(full)-1 {
			break
		}
		switch s.Kind {
		case routepath.Splat:
			return routepath.ErrSplatNotLast
		case routepath.Index:
			return fmt.Errorf("index segment must be last")
		}
	}
	return nil
}

func deriveID(parent *Node, child *Route) (string, error) {
	if child.ID != "" {
		if child.ID == RootID {
			return "", &MatchError{RouteID: child.ID, Reason: "reserved route id"}
		}
		return child.ID, nil
	}
	if child.Path == "" {
		return "", &MatchError{RouteID: parent.id, Reason: "pathless child needs an explicit ID"}
	}

	prefix := parent.id
	if parent.parent == nil {
		prefix = ""
	}
	trimmed := strings.Trim(child.Path, "/")
	id := prefix + "/" + trimmed
	if trimmed != "" && strings.HasSuffix(child.Path, "/") {
		id += "/"
	}
	return routepath.CleanPath(id), nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Node returns the node with id.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// FullPath returns the joined pattern of id, or "" if unknown.
func (t *Tree) FullPath(id string) string {
	if n, ok := t.byID[id]; ok {
		return n.fullPath
	}
	return ""
}

// Ancestors returns the ids from the root down to and including id.
func (t *Tree) Ancestors(id string) []string {
	n, ok := t.byID[id]
	if !ok {
		return nil
	}
	chain := n.Chain()
	ids := make([]string, len(chain))
	for i, c := range chain {
		ids[i] = c.id
	}
	return ids
}

// Nodes returns every node in declaration order, depth first.
func (t *Tree) Nodes() []*Node {
	return t.nodes
}

// Len returns the number of routes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// ByFullPath returns the first node, in declaration order, whose full
// pattern equals pattern.
func (t *Tree) ByFullPath(pattern string) (*Node, bool) {
	segs, err := routepath.ParsePattern(pattern)
	if err != nil {
		return nil, false
	}
	want := routepath.FormatPattern(segs)
	for _, n := range t.nodes {
		if n.fullPath == want {
			return n, true
		}
	}
	return nil, false
}
