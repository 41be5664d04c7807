package router

import "errors"

// ResultKind tags a Result.
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultRedirect
	ResultNotFound
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultRedirect:
		return "redirect"
	case ResultNotFound:
		return "notFound"
	case ResultError:
		return "error"
	default:
		return "ok"
	}
}

// Result is what beforeLoad and loader return.
type Result struct {
	kind     ResultKind
	data     any
	context  map[string]any
	redirect *Redirect
	notFound *NotFound
	err      error
}

// Ok is a successful beforeLoad contributing ctx to the match context.
func Ok(ctx map[string]any) Result {
	return Result{kind: ResultOK, context: ctx}
}

// Data is a successful loader returning v.
func Data(v any) Result {
	return Result{kind: ResultOK, data: v}
}

// WithContext adds a context contribution to a successful result. For a
// loader it sits under the beforeLoad contribution.
func (r Result) WithContext(ctx map[string]any) Result {
	r.context = ctx
	return r
}

// RedirectTo returns a redirect result.
func RedirectTo(to string) Result {
	return Redirected(&Redirect{To: to})
}

// Redirected wraps a Redirect.
func Redirected(r *Redirect) Result {
	return Result{kind: ResultRedirect, redirect: r}
}

// NotFoundResult returns a notFound result.
func NotFoundResult(n *NotFound) Result {
	if n == nil {
		n = &NotFound{}
	}
	return Result{kind: ResultNotFound, notFound: n}
}

// Fail returns an error result. A *Redirect or *NotFound anywhere in err's
// chain becomes the matching signal instead. Fail(nil) is Ok(nil).
func Fail(err error) Result {
	if err == nil {
		return Result{kind: ResultOK}
	}
	var (
		rd *Redirect
		nf *NotFound
	)
	switch {
	case errors.As(err, &rd):
		return Redirected(rd)
	case errors.As(err, &nf):
		return NotFoundResult(nf)
	}
	return Result{kind: ResultError, err: err}
}

// Kind returns the result tag.
func (r Result) Kind() ResultKind { return r.kind }

// Value returns the loader data.
func (r Result) Value() any { return r.data }

// Context returns the context contribution.
func (r Result) Context() map[string]any { return r.context }

// Err returns the error for ResultError, or the signal otherwise.
func (r Result) Err() error {
	switch r.kind {
	case ResultRedirect:
		return r.redirect
	case ResultNotFound:
		return r.notFound
	case ResultError:
		return r.err
	}
	return nil
}
