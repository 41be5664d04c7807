package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (R001-R009)
	// ============================================

	"R001": {
		Category:   CategoryRouting,
		Message:    "No route matched",
		Detail:     "No chain of routes in the tree consumes every segment of the pathname.",
		Suggestion: "Add a splat route ($) to catch unmatched paths, or check the route paths.",
	},
	"R002": {
		Category:   CategoryRouting,
		Message:    "Malformed pathname",
		Detail:     "The pathname contains an invalid percent-escape, a NUL byte or a backslash and cannot be decoded.",
		Suggestion: "Percent-encode reserved characters before navigating.",
	},
	"R003": {
		Category:   CategoryValidation,
		Message:    "Validation failed",
		Detail:     "A search or params validator rejected the input for this route.",
		Suggestion: "Check the validator attached to the route.",
	},
	"R004": {
		Category:   CategoryLoader,
		Message:    "Loader failed",
		Detail:     "A beforeLoad or loader function returned an error. Descendant matches are marked as failed as well.",
		Suggestion: "Inspect the wrapped error; return router.Redirect or router.NotFound for control flow instead of errors.",
	},
	"R005": {
		Category:   CategoryLoader,
		Message:    "Too many redirects",
		Detail:     "The redirect chain for this navigation exceeded the configured limit.",
		Suggestion: "Look for a beforeLoad that redirects to a location that redirects back.",
	},
	"R006": {
		Category:   CategoryTree,
		Message:    "Invalid route tree",
		Detail:     "The route tree has a duplicate id, a cycle, a missing id on a pathless route or a malformed path pattern.",
		Suggestion: "Give every pathless route an explicit ID and make route ids unique.",
	},

	// ============================================
	// Config Errors (R100-R199)
	// ============================================

	"R101": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Detail:     "The configuration file or environment could not be parsed.",
		Suggestion: "Run with a valid routekit.json or unset the offending ROUTEKIT_* variable.",
	},
	"R102": {
		Category:   CategoryCLI,
		Message:    "Route tree file could not be loaded",
		Detail:     "The route tree file is missing or is not valid YAML/JSON.",
		Suggestion: "Pass --tree with a path to a routes.yaml file.",
	},
	"R103": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Detail:     "No routekit.json was found.",
		Suggestion: "Create routekit.json or pass --config.",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
