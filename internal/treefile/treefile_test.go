package treefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
)

const blogYAML = `
context:
  tenant: acme
routes:
  - path: posts
    context: {section: blog}
    search:
      page: {type: int, default: 1}
      q: string
    deps: [page]
    data: [first, second]
    children:
      - path: $postId
        params: {postId: int}
        maxAge: 30s
        data: {title: hello}
  - path: old
    redirect: /posts
  - path: moved
    redirect: {to: /posts/$id, params: {id: "7"}, replace: true}
  - path: gone
    notFound: true
  - path: broken
    fail: database unavailable
  - id: _auth
    children:
      - path: settings
        staticData: {title: Settings}
masks:
  - from: /posts/$postId
    to: /p/$postId
`

func newRouter(t *testing.T, src string) *router.Router {
	t.Helper()
	f, err := Parse([]byte(src))
	require.NoError(t, err)
	tree, err := f.Tree()
	require.NoError(t, err)
	r, err := router.New(tree, f.Options()...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(blogYAML))
	require.NoError(t, err)

	require.Len(t, f.Routes, 6)
	posts := f.Routes[0]
	assert.Equal(t, "posts", posts.Path)
	assert.Equal(t, Field{Type: "int", Default: 1}, posts.Search["page"])
	assert.Equal(t, Field{Type: "string"}, posts.Search["q"], "scalar shorthand")
	assert.Equal(t, 30*time.Second, posts.Children[0].MaxAge)
	assert.Equal(t, &Redirect{To: "/posts"}, f.Routes[1].Redirect)
	assert.Equal(t, &Redirect{To: "/posts/$id", Params: map[string]string{"id": "7"}, Replace: true}, f.Routes[2].Redirect)
	assert.Equal(t, []Mask{{From: "/posts/$postId", To: "/p/$postId"}}, f.Masks)
}

func TestTreeLoadsData(t *testing.T) {
	r := newRouter(t, blogYAML)
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/posts/42?page=2"))
	st := r.State()
	require.Len(t, st.Matches, 3)

	posts, leaf := st.Matches[1], st.Leaf()
	assert.Equal(t, []any{"first", "second"}, posts.LoaderData)
	assert.Equal(t, 2, posts.Search["page"])
	assert.Equal(t, map[string]any{"page": 2}, posts.LoaderDeps)
	assert.Equal(t, 42, leaf.Params["postId"])
	assert.Equal(t, map[string]any{"title": "hello"}, leaf.LoaderData)
	assert.Equal(t, 30*time.Second, leaf.MaxAge)

	full := st.FullContext(2)
	assert.Equal(t, "acme", full["tenant"])
	assert.Equal(t, "blog", full["section"])

	assert.Equal(t, "/p/42", r.History().Location().Href, "mask shows in history")
}

func TestTreeBeforeLoadSignals(t *testing.T) {
	r := newRouter(t, blogYAML)
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "/old"))
	assert.Equal(t, "/posts", r.State().Location.Pathname)

	require.NoError(t, r.Navigate(ctx, "/moved"))
	assert.Equal(t, "/posts/7", r.State().Location.Pathname)
	assert.Equal(t, "/posts/7", r.History().Location().Href)

	require.NoError(t, r.Navigate(ctx, "/gone"))
	assert.Equal(t, router.StatusNotFound, r.State().Leaf().Status)

	require.NoError(t, r.Navigate(ctx, "/broken"))
	leaf := r.State().Leaf()
	assert.Equal(t, router.StatusError, leaf.Status)
	assert.ErrorContains(t, leaf.Error, "database unavailable")
}

func TestTreePathlessLayout(t *testing.T) {
	f, err := Parse([]byte(blogYAML))
	require.NoError(t, err)
	tree, err := f.Tree()
	require.NoError(t, err)

	matches, err := tree.Match("/settings")
	require.NoError(t, err)
	ids := make([]string, len(matches.Chain))
	for i, n := range matches.Chain {
		ids[i] = n.ID()
	}
	assert.Equal(t, []string{router.RootID, "_auth", "_auth/settings"}, ids)
}

func TestDelayHonorsCancellation(t *testing.T) {
	r := newRouter(t, `
routes:
  - path: slow
    delay: 1h
    data: never
`)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Navigate(ctx, "/slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTreeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown search type", "routes:\n  - path: a\n    search: {x: decimal}\n"},
		{"pathless without id", "routes:\n  - children:\n      - path: a\n"},
		{"duplicate id", "routes:\n  - {id: x, path: a}\n  - {id: x, path: b}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			_, err = f.Tree()
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, "R102", errors.CodeOf(err))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("routes: [\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Equal(t, "R102", errors.CodeOf(err))

	good := filepath.Join(dir, "routes.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"routes": [{"path": "a", "data": 1}]}`), 0o644))
	f, err := Load(good)
	require.NoError(t, err)
	assert.Equal(t, "a", f.Routes[0].Path)
}
