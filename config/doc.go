// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, breaker and retry defaults, cache TTLs, and the
// table of protected services with their static fallback payloads.
package config
