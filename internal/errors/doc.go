// Package errors provides coded, actionable errors for the fetchkit CLI.
//
// Each error carries a code (e.g. "E101") that maps to a registered
// template with a category, a short message and a longer explanation.
// Call sites add a suggestion and wrap the underlying cause:
//
//	return errors.New("E101").
//	    WithDetail(err.Error()).
//	    WithSuggestion("check client.baseUrl in fetchkit.yaml").
//	    Wrap(err)
//
// # Error Categories
//
//   - config: loading, validating or saving configuration
//   - cli: invalid flags and command failures
//   - source: failures reported by HTTP or S3 call sources
//
// # Error Codes
//
//   - E100-E119: configuration
//   - E120-E139: command line
//   - E140-E159: sources
//
// Errors render with Format for terminals, FormatCompact for logs and
// FormatJSON for machine output.
package errors
