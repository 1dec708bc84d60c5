// Package config loads fetchkit CLI configuration.
//
// Values come from, in increasing precedence: built-in defaults, an
// optional fetchkit.yaml, and FETCHKIT_* environment variables (nested keys
// joined by underscores, e.g. FETCHKIT_CLIENT_BASEURL).
//
//	server:
//	  addr: ":8080"
//	  rateLimitPerMinute: 120
//	client:
//	  baseUrl: http://localhost:8080/api
//	  timeout: 10s
//	  retryMax: 3
//	polling:
//	  interval: 5s
//	  enabled: true
//	pagination:
//	  limit: 10
//	log:
//	  level: info
//	  format: text
package config
