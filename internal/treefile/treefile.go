// Package treefile declares route trees in YAML for the routekit CLI.
//
//	caseSensitive: false
//	context:
//	  tenant: acme
//	routes:
//	  - path: posts
//	    context: {section: blog}
//	    search:
//	      page: {type: int, default: 1}
//	      q: string
//	    deps: [page]
//	    data: [first, second]
//	    children:
//	      - path: $postId
//	        params: {postId: int}
//	        maxAge: 30s
//	        data: {title: hello}
//	  - path: old
//	    redirect: /posts
//	masks:
//	  - from: /posts/$postId
//	    to: /p/$postId
//
// JSON is valid YAML, so routes.json files load too.
package treefile

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/search"
)

// File is a parsed route tree file.
type File struct {
	CaseSensitive bool           `yaml:"caseSensitive"`
	Context       map[string]any `yaml:"context"`
	Routes        []Route        `yaml:"routes"`
	Masks         []Mask         `yaml:"masks"`
}

// Route declares one route. Zero fields leave the router defaults.
type Route struct {
	ID            string `yaml:"id"`
	Path          string `yaml:"path"`
	CaseSensitive bool   `yaml:"caseSensitive"`
	NonNested     bool   `yaml:"nonNested"`

	// Params maps param names to int, uint, float, bool, uuid or string.
	Params map[string]string `yaml:"params"`

	Search       map[string]Field `yaml:"search"`
	RetainSearch []string         `yaml:"retainSearch"`
	StripSearch  map[string]any   `yaml:"stripSearch"`

	// Deps lists the search keys that make up the loader cache key.
	Deps []string `yaml:"deps"`

	// Context is returned by beforeLoad.
	Context map[string]any `yaml:"context"`

	// Redirect makes beforeLoad redirect.
	Redirect *Redirect `yaml:"redirect"`

	// NotFound makes beforeLoad raise notFound.
	NotFound bool `yaml:"notFound"`

	// Data is returned by the loader. Without Data the route has no loader.
	Data any `yaml:"data"`

	// Delay holds the loader back, honoring cancellation.
	Delay time.Duration `yaml:"delay"`

	// Fail makes the loader return this message as an error.
	Fail string `yaml:"fail"`

	MaxAge               time.Duration  `yaml:"maxAge"`
	PreloadMaxAge        time.Duration  `yaml:"preloadMaxAge"`
	StaleWhileRevalidate bool           `yaml:"staleWhileRevalidate"`
	WaitForParent        bool           `yaml:"waitForParent"`
	StaticData           map[string]any `yaml:"staticData"`

	Children []Route `yaml:"children"`
}

// Field declares one search key. A bare scalar is shorthand for the type.
type Field struct {
	Type     string `yaml:"type"`
	Default  any    `yaml:"default"`
	Required bool   `yaml:"required"`
}

// UnmarshalYAML accepts "int" as well as {type: int, default: 1}.
func (f *Field) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		f.Type = n.Value
		return nil
	}
	type plain Field
	return n.Decode((*plain)(f))
}

// Redirect is a beforeLoad redirect. A bare scalar is shorthand for To.
type Redirect struct {
	To      string            `yaml:"to"`
	Params  map[string]string `yaml:"params"`
	Search  map[string]any    `yaml:"search"`
	Hash    string            `yaml:"hash"`
	Replace bool              `yaml:"replace"`
	Status  int               `yaml:"status"`
}

// UnmarshalYAML accepts "/login" as well as {to: /login, replace: true}.
func (r *Redirect) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		r.To = n.Value
		return nil
	}
	type plain Redirect
	return n.Decode((*plain)(r))
}

// Mask declares a route mask.
type Mask struct {
	From           string `yaml:"from"`
	To             string `yaml:"to"`
	UnmaskOnReload bool   `yaml:"unmaskOnReload"`
}

// Load reads and parses a tree file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("R102").
			WithDetail("Cannot read " + path).
			Wrap(err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.FromError(err, "R102").WithDetail(path + ": " + err.Error())
	}
	return f, nil
}

// Parse decodes a tree file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Tree builds the router tree. The root route is implicit.
func (f *File) Tree() (*router.Tree, error) {
	children, err := buildRoutes(f.Routes)
	if err != nil {
		return nil, err
	}
	return router.NewTree(&router.Route{Children: children}, router.WithCaseSensitive(f.CaseSensitive))
}

// Options returns the router options the file carries: its base context
// and its masks.
func (f *File) Options() []router.Option {
	opts := []router.Option{}
	if len(f.Context) > 0 {
		opts = append(opts, router.WithRouterContext(f.Context))
	}
	if len(f.Masks) > 0 {
		masks := make([]router.RouteMask, len(f.Masks))
		for i, m := range f.Masks {
			masks[i] = router.RouteMask{From: m.From, To: m.To, UnmaskOnReload: m.UnmaskOnReload}
		}
		opts = append(opts, router.WithMasks(masks...))
	}
	return opts
}

func buildRoutes(specs []Route) ([]*router.Route, error) {
	out := make([]*router.Route, 0, len(specs))
	for i := range specs {
		r, err := specs[i].build()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Route) build() (*router.Route, error) {
	r := &router.Route{
		ID:                   s.ID,
		Path:                 s.Path,
		CaseSensitive:        s.CaseSensitive,
		NonNested:            s.NonNested,
		MaxAge:               s.MaxAge,
		PreloadMaxAge:        s.PreloadMaxAge,
		StaleWhileRevalidate: s.StaleWhileRevalidate,
		WaitForParent:        s.WaitForParent,
		StaticData:           s.StaticData,
	}

	if len(s.Params) > 0 {
		r.ParseParams = router.TypedParams(s.Params)
	}

	if len(s.Search) > 0 {
		fields := make(map[string]search.Field, len(s.Search))
		for key, f := range s.Search {
			typ, err := parseType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("route %q: search %q: %w", s.label(), key, err)
			}
			fields[key] = search.Field{Type: typ, Default: f.Default, Required: f.Required}
		}
		r.ValidateSearch = search.Defaults(fields)
	}
	if len(s.RetainSearch) > 0 {
		r.SearchMiddlewares = append(r.SearchMiddlewares, search.Retain(s.RetainSearch...))
	}
	if len(s.StripSearch) > 0 {
		r.SearchMiddlewares = append(r.SearchMiddlewares, search.Strip(search.Values(s.StripSearch)))
	}
	if len(s.Deps) > 0 {
		keys := s.Deps
		r.LoaderDeps = func(v search.Values) map[string]any {
			deps := make(map[string]any, len(keys))
			for _, k := range keys {
				deps[k] = v[k]
			}
			return deps
		}
	}

	if s.Redirect != nil || s.NotFound || s.Context != nil {
		r.BeforeLoad = s.beforeLoad()
	}
	if s.Data != nil || s.Fail != "" {
		r.Loader = s.loader()
	}

	children, err := buildRoutes(s.Children)
	if err != nil {
		return nil, err
	}
	r.Children = children
	return r, nil
}

func (s *Route) label() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Path
}

func (s *Route) beforeLoad() router.BeforeLoadFunc {
	rd, notFound, ctx := s.Redirect, s.NotFound, s.Context
	return func(context.Context, router.BeforeLoadArgs) router.Result {
		switch {
		case rd != nil:
			return router.Redirected(&router.Redirect{
				To:      rd.To,
				Params:  rd.Params,
				Search:  search.Values(rd.Search),
				Hash:    rd.Hash,
				Replace: rd.Replace,
				Status:  rd.Status,
			})
		case notFound:
			return router.NotFoundResult(nil)
		}
		return router.Ok(ctx)
	}
}

func (s *Route) loader() router.LoaderFunc {
	data, delay, fail := s.Data, s.Delay, s.Fail
	return func(ctx context.Context, _ router.LoaderArgs) router.Result {
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return router.Fail(ctx.Err())
			}
		}
		if fail != "" {
			return router.Fail(fmt.Errorf("%s", fail))
		}
		return router.Data(data)
	}
}

func parseType(s string) (search.Type, error) {
	switch s {
	case "", "string":
		return search.String, nil
	case "int":
		return search.Int, nil
	case "float":
		return search.Float, nil
	case "bool":
		return search.Bool, nil
	case "[]string", "strings":
		return search.StringSlice, nil
	}
	return 0, fmt.Errorf("unknown type %q", s)
}
