// Package config loads routekit.json for the routekit CLI.
//
// Values come from three layers, later ones winning: built-in defaults, the
// JSON file, then ROUTEKIT_* environment variables. A .env file next to
// routekit.json is loaded first and never overrides variables that are
// already set.
//
// # Configuration File Structure
//
//	{
//	  "tree": "routes.yaml",
//	  "caseSensitive": false,
//	  "router": {
//	    "defaultMaxAge": "0",
//	    "preloadMaxAge": "30s",
//	    "maxRedirects": 10,
//	    "codec": "msgpack"
//	  },
//	  "cache": {
//	    "maxEntries": 1000,
//	    "gcTime": "30m"
//	  },
//	  "serve": {"host": "localhost", "port": 7070},
//	  "log": {"level": "info", "format": "text"}
//	}
//
// # Environment
//
//	ROUTEKIT_TREE
//	ROUTEKIT_CASE_SENSITIVE
//	ROUTEKIT_ROUTER_DEFAULT_MAX_AGE
//	ROUTEKIT_ROUTER_PRELOAD_MAX_AGE
//	ROUTEKIT_ROUTER_MAX_REDIRECTS
//	ROUTEKIT_ROUTER_CODEC
//	ROUTEKIT_CACHE_MAX_ENTRIES
//	ROUTEKIT_CACHE_GC_TIME
//	ROUTEKIT_SERVE_HOST
//	ROUTEKIT_SERVE_PORT
//	ROUTEKIT_LOG_LEVEL
//	ROUTEKIT_LOG_FORMAT
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts, err := cfg.RouterOptions()
package config
