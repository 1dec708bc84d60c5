package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file unreadable",
		Detail:   "The configuration file exists but could not be read or parsed as YAML.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "One or more configuration values failed validation.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Config file not saved",
		Detail:   "The configuration could not be written to disk.",
	},

	// ============================================
	// Command Line Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command line flag has a value outside its accepted range.",
	},
	"E121": {
		Category: CategoryCLI,
		Message:  "Unknown output format",
		Detail:   "Supported output formats are table, json and yaml.",
	},
	"E122": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The admin API server stopped with an error.",
	},

	// ============================================
	// Source Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategorySource,
		Message:  "Source unreachable",
		Detail:   "The call source could not be created or did not answer.",
	},
	"E141": {
		Category: CategorySource,
		Message:  "Request failed",
		Detail:   "The call source answered with a failure.",
	},
	"E142": {
		Category: CategorySource,
		Message:  "Object unavailable",
		Detail:   "The S3 object is missing, empty or not a valid JSON document.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
