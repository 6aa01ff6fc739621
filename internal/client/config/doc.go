// Package config loads runtime configuration for the dome client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. DOME_* environment variables.
//  4. Command-line flags.
//
// Supported flags
//
//	-a string   server URL
//	-p string   REST API path prefix
//	-d string   local database path
//	-l string   interface language
//	-t int      request timeout (seconds)
//
// # File schema
//
// Durations are decoded with timex.Duration, so "3s" and integer
// nanoseconds are both accepted:
//
//	{
//	  "server_url": "https://kanban.example.com",
//	  "api_prefix": "/api",
//	  "request_timeout": "10s",
//	  "reconnect_attempts": 5,
//	  "reconnect_base_delay": "500ms",
//	  "export_bucket": "boards"
//	}
//
// Invalid values in any source panic; main is expected to let that surface.
package config
