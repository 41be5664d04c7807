package debugapi

import (
	"time"

	"github.com/vango-dev/routekit/pkg/loadercache"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/search"
)

type matchView struct {
	ID         string            `json:"id"`
	RouteID    string            `json:"routeId"`
	Pathname   string            `json:"pathname"`
	Params     map[string]any    `json:"params,omitempty"`
	RawParams  map[string]string `json:"rawParams,omitempty"`
	Search     search.Values     `json:"search,omitempty"`
	Status     router.Status     `json:"status"`
	LoaderData any               `json:"loaderData,omitempty"`
	Context    map[string]any    `json:"context,omitempty"`
	Error      string            `json:"error,omitempty"`
	UpdatedAt  *time.Time        `json:"updatedAt,omitempty"`
	MaxAge     string            `json:"maxAge,omitempty"`
	FromCache  bool              `json:"fromCache,omitempty"`
}

func newMatchView(m *router.Match) matchView {
	v := matchView{
		ID:         m.ID,
		RouteID:    m.RouteID,
		Pathname:   m.Pathname,
		Params:     m.Params,
		RawParams:  m.RawParams,
		Search:     m.Search,
		Status:     m.Status,
		LoaderData: m.LoaderData,
		Context:    m.Context,
		FromCache:  m.FromCache,
	}
	if m.Error != nil {
		v.Error = m.Error.Error()
	}
	if !m.UpdatedAt.IsZero() {
		t := m.UpdatedAt
		v.UpdatedAt = &t
	}
	switch m.MaxAge {
	case 0:
	case loadercache.NeverExpires:
		v.MaxAge = "never"
	default:
		v.MaxAge = m.MaxAge.String()
	}
	return v
}

type stateView struct {
	Href         string         `json:"href"`
	MaskedHref   string         `json:"maskedHref,omitempty"`
	Status       string         `json:"status"`
	Seq          uint64         `json:"seq"`
	TransitionID string         `json:"transitionId,omitempty"`
	Redirects    []string       `json:"redirects,omitempty"`
	ScrollKey    string         `json:"scrollKey,omitempty"`
	NotFound     string         `json:"notFound,omitempty"`
	Error        string         `json:"error,omitempty"`
	Matches      []matchView    `json:"matches"`
	Rendered     []string       `json:"rendered"`
	FullContext  map[string]any `json:"fullContext,omitempty"`
}

func newStateView(st router.State, status router.RouterStatus) stateView {
	v := stateView{
		Href:         st.Location.Href,
		Status:       string(status),
		Seq:          st.Seq,
		TransitionID: st.TransitionID,
		Redirects:    st.Redirects,
		ScrollKey:    st.ScrollKey,
		Matches:      make([]matchView, len(st.Matches)),
		Rendered:     []string{},
	}
	if st.Location.MaskedLocation != nil {
		v.MaskedHref = st.Location.MaskedLocation.Href
	}
	if st.NotFound != nil {
		v.NotFound = st.NotFound.Error()
	}
	if st.Error != nil {
		v.Error = st.Error.Error()
	}
	for i, m := range st.Matches {
		v.Matches[i] = newMatchView(m)
	}
	for _, m := range st.RenderedMatches() {
		v.Rendered = append(v.Rendered, m.RouteID)
	}
	if len(st.Matches) > 0 {
		v.FullContext = st.FullContext(len(st.Matches) - 1)
	}
	return v
}

type candidateView struct {
	RouteID  string            `json:"routeId"`
	Pattern  string            `json:"pattern"`
	Scores   []float64         `json:"scores"`
	Params   map[string]string `json:"params,omitempty"`
	Consumed int               `json:"consumed"`
	Skipped  int               `json:"skipped"`
	Order    int               `json:"order"`
}

func newCandidateView(c *router.Candidate) candidateView {
	return candidateView{
		RouteID:  c.RouteID,
		Pattern:  c.Pattern(),
		Scores:   c.Scores(),
		Params:   c.Params,
		Consumed: c.Consumed,
		Skipped:  c.Skipped,
		Order:    c.Order,
	}
}
