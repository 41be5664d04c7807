package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/routekit/pkg/codec"
	"github.com/vango-dev/routekit/pkg/loadercache"
)

// Dehydrated is a committed state reduced to what a client needs to pick
// up without running loaders again. Encode it with codec.Marshal.
type Dehydrated struct {
	Href    string            `msgpack:"href" json:"href"`
	Matches []DehydratedMatch `msgpack:"matches" json:"matches"`
}

// DehydratedMatch carries one match's loader output. Data and Context are
// already passed through the router's codec chain.
type DehydratedMatch struct {
	ID      string         `msgpack:"id" json:"id"`
	RouteID string         `msgpack:"routeId" json:"routeId"`
	Status  Status         `msgpack:"status" json:"status"`
	Data    any            `msgpack:"data,omitempty" json:"data,omitempty"`
	Context map[string]any `msgpack:"context,omitempty" json:"context,omitempty"`

	// UpdatedAt is in unix milliseconds; MaxAge in milliseconds, with -1
	// meaning always stale and -2 never expiring.
	UpdatedAt int64 `msgpack:"updatedAt" json:"updatedAt"`
	MaxAge    int64 `msgpack:"maxAge" json:"maxAge"`

	Error string `msgpack:"error,omitempty" json:"error,omitempty"`
}

func (r *Router) chain() *codec.Chain {
	if r.codec != nil {
		return r.codec
	}
	return codec.Default()
}

// Dehydrate snapshots the committed state.
func (r *Router) Dehydrate() (*Dehydrated, error) {
	st := r.State()
	if st.TransitionID == "" {
		return nil, errors.New("router: nothing committed to dehydrate")
	}
	c := r.chain()

	out := &Dehydrated{Href: st.Location.Href, Matches: make([]DehydratedMatch, 0, len(st.Matches))}
	for _, m := range st.Matches {
		dm := DehydratedMatch{
			ID:        m.ID,
			RouteID:   m.RouteID,
			Status:    m.Status,
			UpdatedAt: m.UpdatedAt.UnixMilli(),
			MaxAge:    maxAgeMillis(m.MaxAge),
		}
		if m.Error != nil {
			dm.Error = m.Error.Error()
		}
		if m.Status == StatusSuccess {
			data, err := c.Encode(m.LoaderData)
			if err != nil {
				return nil, fmt.Errorf("dehydrate %s data: %w", m.RouteID, err)
			}
			ctx, err := c.Encode(toAny(m.Context))
			if err != nil {
				return nil, fmt.Errorf("dehydrate %s context: %w", m.RouteID, err)
			}
			dm.Data = data
			dm.Context, _ = ctx.(map[string]any)
		}
		out.Matches = append(out.Matches, dm)
	}
	return out, nil
}

// Hydrate seeds the loader cache from d and commits d's location without
// writing history. Routes whose data was dehydrated do not run
// beforeLoad or their loader.
func (r *Router) Hydrate(d *Dehydrated) error {
	if d == nil {
		return errors.New("router: nil dehydrated state")
	}
	c := r.chain()

	for _, dm := range d.Matches {
		if dm.Status != StatusSuccess {
			continue
		}
		data, err := c.Decode(dm.Data)
		if err != nil {
			return fmt.Errorf("hydrate %s data: %w", dm.RouteID, err)
		}
		ctxv, err := c.Decode(toAny(dm.Context))
		if err != nil {
			return fmt.Errorf("hydrate %s context: %w", dm.RouteID, err)
		}
		ctx, _ := ctxv.(map[string]any)

		r.cache.Set(&loadercache.Entry{
			Key:       dm.ID,
			RouteID:   dm.RouteID,
			Data:      data,
			Context:   ctx,
			UpdatedAt: time.UnixMilli(dm.UpdatedAt),
			MaxAge:    maxAgeFromMillis(dm.MaxAge),
		})
	}

	r.logger.Debug("hydrating", "href", d.Href, "matches", len(d.Matches))
	return r.transition(context.Background(), ParseLocation(d.Href, nil), navigation{action: actionNone, hydrate: true})
}

// toAny keeps a nil map from becoming a typed nil inside an interface.
func toAny(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

func maxAgeMillis(d time.Duration) int64 {
	switch {
	case d == loadercache.NeverExpires:
		return -2
	case d < 0:
		return -1
	}
	return d.Milliseconds()
}

func maxAgeFromMillis(ms int64) time.Duration {
	switch {
	case ms == -2:
		return loadercache.NeverExpires
	case ms < 0:
		return loadercache.AlwaysStale
	}
	return time.Duration(ms) * time.Millisecond
}
