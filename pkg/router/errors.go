package router

import (
	"errors"
	"fmt"

	rkerrors "github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/search"
)

// Sentinel errors.
var (
	// ErrNoMatch means no chain of routes consumes the pathname.
	ErrNoMatch = errors.New("no route matched")

	// ErrMalformedPath means the pathname could not be decoded.
	ErrMalformedPath = errors.New("malformed path")

	// ErrSuperseded is returned by a navigation that a newer one replaced.
	ErrSuperseded = errors.New("navigation superseded")

	// ErrRedirectLoop means a redirect chain exceeded the hop limit.
	ErrRedirectLoop = errors.New("too many redirects")
)

// PathKind separates "nothing matched" from "the input is bad".
type PathKind int

const (
	KindNotFound PathKind = iota
	KindBadRequest
)

func (k PathKind) String() string {
	if k == KindBadRequest {
		return "bad-request"
	}
	return "not-found"
}

// PathError is returned by Tree.Match when no route applies.
type PathError struct {
	Path string
	Kind PathKind
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// =============================================================================
// Signals
// =============================================================================

// Redirect asks the router to navigate elsewhere. beforeLoad and loader
// return it with RedirectTo, or as an error.
type Redirect struct {
	// To is the target href. Relative hrefs resolve against the location
	// being loaded.
	To string

	// Params are interpolated into To when it is a route pattern.
	Params map[string]string

	Search  search.Values
	Hash    string
	Replace bool

	// Status and Headers are for server collaborators. Status defaults
	// to 307.
	Status  int
	Headers map[string]string
}

func (r *Redirect) Error() string {
	return "redirect to " + r.To
}

// StatusCode returns Status or 307.
func (r *Redirect) StatusCode() int {
	if r.Status == 0 {
		return 307
	}
	return r.Status
}

// NotFound ends a match in the notFound status. RouteID names the route
// whose not-found boundary should render it; empty means the match that
// raised it.
type NotFound struct {
	RouteID string
	Data    any
}

func (n *NotFound) Error() string {
	if n.RouteID == "" {
		return "not found"
	}
	return "not found in " + n.RouteID
}

// =============================================================================
// Errors attributed to a match
// =============================================================================

// ValidationError is a search or params validator rejection.
type ValidationError struct {
	RouteID string

	// Source is "search" or "params".
	Source string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("route %s: invalid %s: %v", e.RouteID, e.Source, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Phase names a pipeline stage.
type Phase string

const (
	PhaseBeforeLoad Phase = "beforeLoad"
	PhaseLoader     Phase = "loader"
	PhaseRedirect   Phase = "redirect"
)

// LoaderError is an error from beforeLoad or loader, or a fatal redirect
// loop.
type LoaderError struct {
	RouteID string
	Phase   Phase
	Err     error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("route %s: %s: %v", e.RouteID, e.Phase, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// MatchError is a route tree invariant violation found by NewTree.
type MatchError struct {
	RouteID string
	Reason  string
	Err     error
}

func (e *MatchError) Error() string {
	msg := "invalid route tree"
	if e.RouteID != "" {
		msg += " at " + e.RouteID
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MatchError) Unwrap() error { return e.Err }

// Describe converts any router error into a coded error.
func Describe(err error) *rkerrors.Error {
	if err == nil {
		return nil
	}
	var (
		pathErr  *PathError
		valErr   *ValidationError
		loadErr  *LoaderError
		matchErr *MatchError
		coded    *rkerrors.Error
	)
	switch {
	case errors.As(err, &coded):
		return coded
	case errors.As(err, &pathErr):
		code := "R001"
		if pathErr.Kind == KindBadRequest {
			code = "R002"
		}
		return rkerrors.New(code).Wrap(err)
	case errors.As(err, &valErr):
		return rkerrors.New("R003").WithRoute(valErr.RouteID).Wrap(valErr.Err)
	case errors.Is(err, ErrRedirectLoop):
		e := rkerrors.New("R005").Wrap(err)
		if errors.As(err, &loadErr) {
			e.WithRoute(loadErr.RouteID)
		}
		return e
	case errors.As(err, &loadErr):
		return rkerrors.New("R004").WithRoute(loadErr.RouteID).Wrap(loadErr.Err)
	case errors.As(err, &matchErr):
		return rkerrors.New("R006").WithRoute(matchErr.RouteID).Wrap(err)
	default:
		return rkerrors.FromError(err, "R004")
	}
}
