// Package telemetry records router transitions as OpenTelemetry spans and
// Prometheus metrics.
//
// Observer implements router.Observer. Each transition gets a
// "routekit.transition" span with one child span per beforeLoad and loader
// call. With WithMetrics, the same events feed these collectors:
//
//	routekit_router_navigations_total{outcome}
//	routekit_router_navigation_duration_seconds{outcome}
//	routekit_router_phase_duration_seconds{phase,route}
//	routekit_router_phase_errors_total{phase,route}
//	routekit_router_loader_cache_results_total{route,result}
//	routekit_router_loader_cache_evictions_total
//	routekit_router_redirects_total
//
// Wire the eviction counter into the cache through CacheHooks:
//
//	obs := telemetry.New(telemetry.WithMetrics(telemetry.NewMetrics()))
//	cache := loadercache.New(loadercache.WithHooks(obs.CacheHooks()))
//	r, err := router.New(tree, router.WithCache(cache), router.WithObserver(obs))
package telemetry
