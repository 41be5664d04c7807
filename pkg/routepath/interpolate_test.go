package routepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, p string) []Segment {
	t.Helper()
	segs, err := ParsePattern(p)
	require.NoError(t, err)
	return segs
}

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		params      map[string]string
		wantPath    string
		wantMissing bool
	}{
		{name: "static", pattern: "/about", wantPath: "/about"},
		{name: "param", pattern: "/posts/$postId", params: map[string]string{"postId": "42"}, wantPath: "/posts/42"},
		{name: "param escaped", pattern: "/tags/$tag", params: map[string]string{"tag": "a b/c"}, wantPath: "/tags/a%20b%2Fc"},
		{name: "missing param", pattern: "/posts/$postId", wantPath: "/posts", wantMissing: true},
		{name: "optional present", pattern: "/a/{-$id}", params: map[string]string{"id": "5"}, wantPath: "/a/5"},
		{name: "optional absent", pattern: "/a/{-$id}", wantPath: "/a"},
		{name: "optional absent with prefix", pattern: "/a/v{-$n}", wantPath: "/a/v"},
		{name: "splat", pattern: "/files/$", params: map[string]string{"*": "a/b c/d"}, wantPath: "/files/a/b%20c/d"},
		{name: "index", pattern: "/posts/", wantPath: "/posts"},
		{name: "root", pattern: "/", wantPath: "/"},
		{name: "affixes", pattern: "/post-{$id}.html", params: map[string]string{"id": "7"}, wantPath: "/post-7.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpolate(mustParse(t, tt.pattern), tt.params)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.wantMissing, got.Missing)
		})
	}
}

func TestInterpolateThenDecode(t *testing.T) {
	got := Interpolate(mustParse(t, "/q/$term"), map[string]string{"term": "100%"})
	assert.Equal(t, "/q/100%25", got.Path)

	segs, err := SplitSegments(got.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "100%"}, segs)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, to, want string
	}{
		{"/a/b/c", "./d", "/a/b/c/d"},
		{"/a/b/c", "../d", "/a/b/d"},
		{"/a/b/c", "./d/", "/a/b/c/d"},
		{"/a/b/c", "/d", "/d"},
		{"/a/b/c", "/", "/"},
		{"/a/b/c", "d/e", "/a/b/c/d/e"},
		{"/", "../..", "/"},
		{"/a/b", ".", "/a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.base+"+"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.base, tt.to))
		})
	}
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "/a/b", CleanPath("//a///b"))
	assert.Equal(t, "/a/b/c", JoinPaths("/a/", "/b", "c"))
	assert.Equal(t, "a/", TrimLeft("//a/"))
	assert.Equal(t, "/", TrimLeft("/"))
	assert.Equal(t, "/a", TrimRight("/a//"))
	assert.Equal(t, "/", TrimRight("/"))
}
