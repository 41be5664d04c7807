package router

import "context"

// Observer receives lifecycle events for metrics and tracing. The returned
// funcs end the started span or timer.
type Observer interface {
	TransitionStarted(ctx context.Context, id, href string) (context.Context, func(outcome string, err error))
	PhaseStarted(ctx context.Context, phase, routeID string) (context.Context, func(err error))
	CacheResult(routeID, outcome string)
	Redirected(from, to string)
}

type nopObserver struct{}

func (nopObserver) TransitionStarted(ctx context.Context, _, _ string) (context.Context, func(string, error)) {
	return ctx, func(string, error) {}
}

func (nopObserver) PhaseStarted(ctx context.Context, _, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (nopObserver) CacheResult(string, string) {}

func (nopObserver) Redirected(string, string) {}
